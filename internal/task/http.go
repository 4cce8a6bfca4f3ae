package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"join/internal/model"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
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

// WriteServiceErr maps service errors onto status codes. Anything unknown is
// a store failure.
func WriteServiceErr(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSubtaskNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	default:
		writeErr(w, http.StatusBadGateway, err.Error())
	}
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ts := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
		if status := r.URL.Query().Get("status"); status != "" {
			out := ts[:0]
			for _, t := range ts {
				if string(t.Status) == status {
					out = append(out, t)
				}
			}
			ts = out
		}
		writeJSON(w, 200, ts)
		return

	case http.MethodPost:
		var in Input
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		t, err := h.svc.Create(r.Context(), in)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 201, t)
		return

	default:
		writeErr(w, 405, "method not allowed")
		return
	}
}

// POST /api/tasks:reload
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	ts, err := h.svc.Reload(r.Context())
	if err != nil {
		WriteServiceErr(w, err)
		return
	}
	writeJSON(w, 200, ts)
}

// /api/tasks/{id}[/...]
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	tail = strings.Trim(tail, "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}

	parts := strings.Split(tail, "/")
	id := parts[0]
	ctx := r.Context()

	// /api/tasks/{id}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			t, err := h.svc.Get(ctx, id)
			if err != nil {
				WriteServiceErr(w, err)
				return
			}
			writeJSON(w, 200, t)
			return

		case http.MethodPut:
			var in Input
			if err := decodeJSON(r, &in); err != nil {
				writeErr(w, 400, "bad json")
				return
			}
			t, err := h.svc.Update(ctx, id, in)
			if err != nil {
				WriteServiceErr(w, err)
				return
			}
			writeJSON(w, 200, t)
			return

		case http.MethodDelete:
			if err := h.svc.Delete(ctx, id); err != nil {
				WriteServiceErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return

		default:
			writeErr(w, 405, "method not allowed")
			return
		}
	}

	switch parts[1] {
	// /api/tasks/{id}/status
	case "status":
		if len(parts) != 2 || r.Method != http.MethodPut {
			writeErr(w, 405, "method not allowed")
			return
		}
		var in struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		st, _ := model.ParseStatus(in.Status)
		t, err := h.svc.Move(ctx, id, st)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)
		return

	// /api/tasks/{id}/subtasks[/{sid}[/toggle]]
	case "subtasks":
		h.subtasks(w, r, id, parts[2:])
		return

	// /api/tasks/{id}/assignees/{cid}
	case "assignees":
		if len(parts) != 3 {
			writeErr(w, 404, "not found")
			return
		}
		var (
			t   model.Task
			err error
		)
		switch r.Method {
		case http.MethodPut:
			t, err = h.svc.Assign(ctx, id, parts[2])
		case http.MethodDelete:
			t, err = h.svc.Unassign(ctx, id, parts[2])
		default:
			writeErr(w, 405, "method not allowed")
			return
		}
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)
		return
	}

	writeErr(w, 404, "not found")
}

func (h *Handler) subtasks(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		var in struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		t, st, err := h.svc.AddSubtask(ctx, id, in.Title)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 201, map[string]any{"task": t, "subtask": st})
		return
	}

	sid := rest[0]
	if len(rest) == 2 && rest[1] == "toggle" {
		if r.Method != http.MethodPost {
			writeErr(w, 405, "method not allowed")
			return
		}
		t, err := h.svc.ToggleSubtask(ctx, id, sid)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)
		return
	}
	if len(rest) != 1 {
		writeErr(w, 404, "not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var in struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		t, err := h.svc.EditSubtask(ctx, id, sid, in.Title)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)
	case http.MethodDelete:
		t, err := h.svc.DeleteSubtask(ctx, id, sid)
		if err != nil {
			WriteServiceErr(w, err)
			return
		}
		writeJSON(w, 200, t)
	default:
		writeErr(w, 405, "method not allowed")
	}
}
