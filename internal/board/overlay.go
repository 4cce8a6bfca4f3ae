package board

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"join/internal/auth"
	"join/internal/model"
	"join/internal/render"
	"join/internal/task"
)

func renderStatus(w http.ResponseWriter, r *http.Request, code int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(code)).ServeHTTP(w, r)
}

func (h *Handler) formData(r *http.Request, in task.Input, fieldErrs map[string]string) render.TaskFormData {
	d := render.TaskFormData{
		Page:        auth.PageFor(r, "Add Task", "add-task"),
		Action:      "/add-task",
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      in.Status,
		Assigned:    map[string]bool{},
		Errors:      fieldErrs,
	}
	if d.Errors == nil {
		d.Errors = map[string]string{}
	}
	if d.Priority == "" {
		d.Priority = string(model.PriorityMedium)
	}
	for _, id := range in.AssignedTo {
		d.Assigned[id] = true
	}
	for _, st := range in.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			continue
		}
		d.Subtasks = append(d.Subtasks, render.SubtaskRow{ID: st.ID, Title: st.Title})
	}

	for _, c := range h.contacts.List(r.Context()) {
		d.Contacts = append(d.Contacts, render.NewContactRow(c))
	}
	d.FormOptions()
	return d
}

func (h *Handler) editForm(r *http.Request, id string, in task.Input, fieldErrs map[string]string) render.TaskFormData {
	d := h.formData(r, in, fieldErrs)
	d.Page = auth.PageFor(r, "Edit Task", "board")
	d.Action = "/tasks/" + url.PathEscape(id) + "/edit"
	d.Editing = true
	d.TaskID = id
	return d
}

// GET/POST /add-task
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		in := task.Input{}
		if st, ok := model.ParseStatus(r.URL.Query().Get("status")); ok {
			in.Status = string(st)
		}
		renderStatus(w, r, http.StatusOK, render.TaskFormPage(h.formData(r, in, nil)))
	case http.MethodPost:
		in, err := task.InputFromForm(r)
		if err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if _, err := h.tasks.Create(r.Context(), in); err != nil {
			h.formFailed(w, r, h.formData(r, in, nil), err)
			return
		}
		http.Redirect(w, r, "/board", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// formFailed re-renders the form with the field errors, or with a general
// error when the store write failed.
func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, d render.TaskFormData, err error) {
	var verr *task.ValidationError
	if errors.As(err, &verr) {
		d.Errors = verr.Fields
		renderStatus(w, r, http.StatusUnprocessableEntity, render.TaskFormPage(d))
		return
	}
	if errors.Is(err, task.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	d.Errors["form"] = "Could not save the task. Please try again."
	renderStatus(w, r, http.StatusBadGateway, render.TaskFormPage(d))
}

// Tasks serves /tasks/{id} (detail overlay) and /tasks/{id}/edit.
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
	if tail == "" {
		http.Redirect(w, r, "/board", http.StatusSeeOther)
		return
	}
	parts := strings.Split(tail, "/")
	id := parts[0]
	ctx := r.Context()

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		t, err := h.tasks.Get(ctx, id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		card := render.NewCard(t, h.contacts.Index(ctx), h.tasks.Pending(id))
		renderStatus(w, r, http.StatusOK, render.TaskDetail(card))
		return
	}

	if len(parts) != 2 || parts[1] != "edit" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := h.tasks.Get(ctx, id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		renderStatus(w, r, http.StatusOK, render.TaskFormPage(h.editForm(r, id, task.InputFromTask(t), nil)))
	case http.MethodPost:
		in, err := task.InputFromForm(r)
		if err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if _, err := h.tasks.Update(ctx, id, in); err != nil {
			h.formFailed(w, r, h.editForm(r, id, in, nil), err)
			return
		}
		http.Redirect(w, r, "/board", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
