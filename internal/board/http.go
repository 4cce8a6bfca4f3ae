package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"join/internal/auth"
	"join/internal/contact"
	"join/internal/model"
	"join/internal/render"
	"join/internal/task"
)

// Handler handles board pages and drag/drop requests.
type Handler struct {
	tasks           *task.Service
	contacts        *contact.Service
	drags           *DragState
	sessionResolver func(*http.Request) string
}

func NewHandler(tasks *task.Service, contacts *contact.Service) *Handler {
	return &Handler{
		tasks:    tasks,
		contacts: contacts,
		drags:    NewDragState(tasks),
	}
}

func (h *Handler) SetSessionResolver(fn func(*http.Request) string) {
	h.sessionResolver = fn
}

func (h *Handler) sessionFromRequest(r *http.Request) string {
	if h.sessionResolver != nil {
		if id := h.sessionResolver(r); id != "" {
			return id
		}
	}
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		return sess.ID
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func (h *Handler) columns(r *http.Request) []render.ColumnView {
	ctx := r.Context()
	ts := h.tasks.Search(ctx, r.URL.Query().Get("q"))
	return render.NewBoard(ts, h.contacts.Index(ctx), h.tasks.PendingIDs())
}

func (h *Handler) columnsHTML(r *http.Request) (string, error) {
	var buf bytes.Buffer
	if err := render.Board(h.columns(r)).Render(r.Context(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GET /board
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	data := render.BoardPageData{
		Page:    auth.PageFor(r, "Board", "board"),
		Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		Columns: h.columns(r),
	}
	templ.Handler(render.BoardPage(data)).ServeHTTP(w, r)
}

// GET /board/columns
func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	templ.Handler(render.Board(h.columns(r)), templ.WithContentType("text/html; charset=utf-8")).ServeHTTP(w, r)
}

// POST /api/board/drag
func (h *Handler) Drag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	var in struct {
		TaskID string `json:"taskId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	session := h.sessionFromRequest(r)
	if strings.TrimSpace(in.TaskID) == "" {
		h.drags.Cancel(session)
		writeJSON(w, 200, map[string]any{"ok": true, "dragging": nil})
		return
	}
	if _, err := h.tasks.Get(r.Context(), in.TaskID); err != nil {
		task.WriteServiceErr(w, err)
		return
	}
	h.drags.Start(session, in.TaskID)
	writeJSON(w, 200, map[string]any{"ok": true, "dragging": in.TaskID})
}

// POST /api/board/drop
//
// The response always carries the re-rendered columns so the page shows
// what the store holds, including after a rolled back move.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	var in struct {
		Status string `json:"status"`
		TaskID string `json:"taskId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}

	session := h.sessionFromRequest(r)
	if in.TaskID != "" {
		h.drags.Start(session, in.TaskID)
	}
	status, _ := model.ParseStatus(in.Status)
	moved, err := h.drags.Drop(r.Context(), session, status)

	html, rerr := h.columnsHTML(r)
	if rerr != nil {
		writeErr(w, 500, rerr.Error())
		return
	}

	if err != nil {
		code := http.StatusBadGateway
		var verr *task.ValidationError
		switch {
		case errors.Is(err, ErrNoDrag):
			code = http.StatusConflict
		case errors.As(err, &verr):
			code = http.StatusUnprocessableEntity
		case errors.Is(err, task.ErrNotFound):
			code = http.StatusNotFound
		}
		writeJSON(w, code, map[string]any{"error": err.Error(), "columns": html})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "task": moved, "columns": html})
}
