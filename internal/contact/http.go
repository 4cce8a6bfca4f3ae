package contact

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"join/internal/auth"
	"join/internal/model"
	"join/internal/render"
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

func writeServiceErr(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	default:
		writeErr(w, http.StatusBadGateway, err.Error())
	}
}

// /api/contacts
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.svc.List(r.Context()))
	case http.MethodPost:
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		c, err := h.svc.Create(r.Context(), in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/contacts/{id}
func (h *Handler) Sub(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/contacts/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		c, err := h.svc.Get(ctx, id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		c, err := h.svc.Update(ctx, id, in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := h.svc.Delete(ctx, id); err != nil {
			writeServiceErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET/POST /contacts
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := render.ContactsPageData{Page: auth.PageFor(r, "Contacts", "contacts")}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	code := http.StatusOK

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("new") != "" {
			data.Form.Submitted = true
		}
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			writeErr(w, http.StatusBadRequest, "bad form")
			return
		}
		in := Input{
			Name:  r.PostForm.Get("name"),
			Email: r.PostForm.Get("email"),
			Phone: r.PostForm.Get("phone"),
		}
		var err error
		if id != "" {
			_, err = h.svc.Update(ctx, id, in)
		} else {
			var c model.Contact
			c, err = h.svc.Create(ctx, in)
			id = c.ID
		}
		if err == nil {
			http.Redirect(w, r, "/contacts?id="+id, http.StatusSeeOther)
			return
		}
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			code = http.StatusUnprocessableEntity
			data.Form.Errors = verr.Fields
		case errors.Is(err, ErrNotFound):
			code = http.StatusNotFound
		default:
			code = http.StatusBadGateway
			data.Form.Errors = map[string]string{"firstName": "Could not save contact, please try again"}
		}
		data.Form.Submitted = true
		data.Form.ID = strings.TrimSpace(r.URL.Query().Get("id"))
		data.Form.Name = in.Name
		data.Form.Email = in.Email
		data.Form.Phone = in.Phone
		id = data.Form.ID
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	contacts := h.svc.List(ctx)
	data.Groups = Groups(contacts)
	if id != "" {
		if c, err := h.svc.Get(ctx, id); err == nil {
			row := render.NewContactRow(c)
			data.Selected = &row
			if r.Method == http.MethodGet && r.URL.Query().Get("edit") != "" {
				data.Form = render.ContactForm{ID: c.ID, Name: c.FullName(), Email: c.Email, Phone: c.Phone}
			}
		}
	}
	templ.Handler(render.ContactsPage(data), templ.WithStatus(code)).ServeHTTP(w, r)
}
