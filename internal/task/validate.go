package task

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"join/internal/model"
)

// DateLayout is how due dates are stored.
const DateLayout = "02/01/2006"

var inputDateLayouts = []string{DateLayout, "2006-01-02"}

// SubtaskInput is one subtask row of the task form. An empty ID marks a new
// subtask. A nil Done keeps the stored state; the form never sends it.
type SubtaskInput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Done  *bool  `json:"done,omitempty"`
}

// Input is what the add/edit forms and the JSON API submit.
type Input struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     string         `json:"dueDate"`
	Category    string         `json:"category"`
	Priority    string         `json:"priority"`
	Status      string         `json:"status"`
	AssignedTo  []string       `json:"assignedTo"`
	Subtasks    []SubtaskInput `json:"subtasks"`
}

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid task: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

// ParseDueDate accepts dd/mm/yyyy or yyyy-mm-dd.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Validate checks in and returns the normalized task fields. ID, subtask ids
// and (for an empty status) the status are left for the caller to fill.
func Validate(in Input) (model.Task, error) {
	verr := &ValidationError{}
	t := model.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    model.Category(strings.TrimSpace(in.Category)),
		Priority:    model.Priority(strings.ToLower(strings.TrimSpace(in.Priority))),
		AssignedTo:  model.IDList{},
		Subtasks:    model.SubtaskList{},
	}

	if t.Title == "" {
		verr.add("title", "This field is required")
	}

	if strings.TrimSpace(in.DueDate) == "" {
		verr.add("dueDate", "This field is required")
	} else if d, err := ParseDueDate(in.DueDate); err != nil {
		verr.add("dueDate", "Use dd/mm/yyyy")
	} else {
		t.DueDate = d.Format(DateLayout)
	}

	if t.Category == "" {
		verr.add("category", "This field is required")
	} else if !t.Category.Valid() {
		verr.add("category", "Unknown category")
	}

	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	} else if !t.Priority.Valid() {
		verr.add("priority", "Unknown priority")
	}

	if s := strings.TrimSpace(in.Status); s != "" {
		st, ok := model.ParseStatus(s)
		if !ok {
			verr.add("status", "Unknown status")
		}
		t.Status = st
	}

	seen := map[string]bool{}
	for _, id := range in.AssignedTo {
		id = strings.TrimSpace(id)
		if id == "" || id == model.EmptySentinel || seen[id] {
			continue
		}
		seen[id] = true
		t.AssignedTo = append(t.AssignedTo, id)
	}

	for _, st := range in.Subtasks {
		title := strings.TrimSpace(st.Title)
		if title == "" {
			continue
		}
		t.Subtasks = append(t.Subtasks, model.Subtask{ID: strings.TrimSpace(st.ID), Title: title, Done: st.Done != nil && *st.Done})
	}

	if len(verr.Fields) > 0 {
		return model.Task{}, verr
	}
	return t, nil
}

// InputFromForm reads the add/edit task form. Subtasks are submitted as
// parallel "subtask" and "subtaskId" fields.
func InputFromForm(r *http.Request) (Input, error) {
	if err := r.ParseForm(); err != nil {
		return Input{}, err
	}
	in := Input{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		DueDate:     r.PostForm.Get("dueDate"),
		Category:    r.PostForm.Get("category"),
		Priority:    r.PostForm.Get("priority"),
		Status:      r.PostForm.Get("status"),
		AssignedTo:  r.PostForm["assignedTo"],
	}
	titles := r.PostForm["subtask"]
	ids := r.PostForm["subtaskId"]
	for i, title := range titles {
		st := SubtaskInput{Title: title}
		if i < len(ids) {
			st.ID = ids[i]
		}
		in.Subtasks = append(in.Subtasks, st)
	}
	return in, nil
}

// InputFromTask is the inverse of Validate, used to prefill the edit form.
func InputFromTask(t model.Task) Input {
	in := Input{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Category:    string(t.Category),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		AssignedTo:  append([]string(nil), t.AssignedTo...),
	}
	for _, st := range t.Subtasks {
		done := st.Done
		in.Subtasks = append(in.Subtasks, SubtaskInput{ID: st.ID, Title: st.Title, Done: &done})
	}
	return in
}
