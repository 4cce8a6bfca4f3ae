package model

import (
	"strings"

	"github.com/google/uuid"
)

type Status string

const (
	StatusToDo          Status = "to-do"
	StatusInProgress    Status = "in-progress"
	StatusAwaitFeedback Status = "await-feedback"
	StatusDone          Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusAwaitFeedback, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusAwaitFeedback, StatusDone:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityUrgent:
		return true
	}
	return false
}

type Category string

const (
	CategoryTechnicalTask Category = "technical_task"
	CategoryUserStory     Category = "user_story"
)

// Categories lists the selectable task categories.
var Categories = []Category{CategoryTechnicalTask, CategoryUserStory}

func (c Category) Valid() bool {
	switch c {
	case CategoryTechnicalTask, CategoryUserStory:
		return true
	}
	return false
}

type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func NewSubtask(title string) Subtask {
	return Subtask{
		ID:    uuid.NewString(),
		Title: strings.TrimSpace(title),
	}
}

type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     string      `json:"dueDate"` // dd/mm/yyyy
	Category    Category    `json:"category"`
	Priority    Priority    `json:"priority"`
	Status      Status      `json:"status"`
	AssignedTo  IDList      `json:"assignedTo"`
	Subtasks    SubtaskList `json:"subtasks"`
}

// Clone returns a deep copy so cached tasks can be handed out safely.
func (t Task) Clone() Task {
	out := t
	if t.AssignedTo != nil {
		out.AssignedTo = append(IDList{}, t.AssignedTo...)
	}
	if t.Subtasks != nil {
		out.Subtasks = append(SubtaskList{}, t.Subtasks...)
	}
	return out
}

func (t *Task) IsAssigned(contactID string) bool {
	for _, id := range t.AssignedTo {
		if id == contactID {
			return true
		}
	}
	return false
}

// EnsureSubtaskIDs gives legacy subtasks stored without an id a durable one.
// It reports whether anything changed.
func (t *Task) EnsureSubtaskIDs() bool {
	changed := false
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == "" {
			t.Subtasks[i].ID = uuid.NewString()
			changed = true
		}
	}
	return changed
}

func (t *Task) SubtaskIndex(id string) int {
	for i, st := range t.Subtasks {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (t *Task) CompletedSubtasks() int {
	n := 0
	for _, st := range t.Subtasks {
		if st.Done {
			n++
		}
	}
	return n
}
