// Package render builds the HTML for the board, contacts, summary and auth
// screens. View models are plain structs assembled from model types; the
// markup lives in embedded html/template files.
package render

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"join/internal/model"
)

var categoryLabels = map[model.Category]string{
	model.CategoryTechnicalTask: "Technical Task",
	model.CategoryUserStory:     "User Story",
}

var columnTitles = map[model.Status]string{
	model.StatusToDo:          "To do",
	model.StatusInProgress:    "In progress",
	model.StatusAwaitFeedback: "Await feedback",
	model.StatusDone:          "Done",
}

var priorityIcons = map[model.Priority]string{
	model.PriorityLow:    "/static/img/prio-low.svg",
	model.PriorityMedium: "/static/img/prio-medium.svg",
	model.PriorityUrgent: "/static/img/prio-urgent.svg",
}

var titleCaser = cases.Title(language.English)

// CategoryLabel returns the display label of a category key.
func CategoryLabel(c model.Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

func ColumnTitle(s model.Status) string {
	if t, ok := columnTitles[s]; ok {
		return t
	}
	return titleCaser.String(strings.ReplaceAll(string(s), "-", " "))
}

func PriorityIcon(p model.Priority) string {
	return priorityIcons[p]
}

// Progress returns completed and total subtasks and the completion percent.
func Progress(t model.Task) (done, total int, percent float64) {
	total = len(t.Subtasks)
	if total == 0 {
		return 0, 0, 0
	}
	done = t.CompletedSubtasks()
	return done, total, float64(done) / float64(total) * 100
}

func Initials(first, last string) string {
	return model.Initials(first, last)
}

type Badge struct {
	ContactID string
	Initials  string
	Name      string
	Color     string
}

// Badges resolves the task's assignees. Ids without a contact are skipped.
func Badges(t model.Task, contacts map[string]model.Contact) []Badge {
	out := make([]Badge, 0, len(t.AssignedTo))
	for _, id := range t.AssignedTo {
		c, ok := contacts[id]
		if !ok {
			continue
		}
		out = append(out, Badge{ContactID: c.ID, Initials: c.Initials(), Name: c.FullName(), Color: c.Color})
	}
	return out
}

// ContactIndex keys contacts by id for badge lookup.
func ContactIndex(contacts []model.Contact) map[string]model.Contact {
	out := make(map[string]model.Contact, len(contacts))
	for _, c := range contacts {
		out[c.ID] = c
	}
	return out
}

type Card struct {
	ID            string
	Title         string
	Description   string
	DueDate       string
	Category      model.Category
	CategoryLabel string
	Priority      model.Priority
	PriorityIcon  string
	Status        model.Status
	Subtasks      []model.Subtask
	Done          int
	Total         int
	Percent       float64
	Badges        []Badge
	Pending       bool
}

func NewCard(t model.Task, contacts map[string]model.Contact, pending bool) Card {
	done, total, pct := Progress(t)
	return Card{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		DueDate:       t.DueDate,
		Category:      t.Category,
		CategoryLabel: CategoryLabel(t.Category),
		Priority:      t.Priority,
		PriorityIcon:  PriorityIcon(t.Priority),
		Status:        t.Status,
		Subtasks:      append([]model.Subtask(nil), t.Subtasks...),
		Done:          done,
		Total:         total,
		Percent:       pct,
		Badges:        Badges(t, contacts),
		Pending:       pending,
	}
}

type ColumnView struct {
	Status model.Status
	Title  string
	Cards  []Card
}

// Placeholder is shown in a column without cards.
func (c ColumnView) Placeholder() string {
	return "No tasks " + strings.ToLower(c.Title)
}

// NewColumn renders the tasks whose status matches the column.
func NewColumn(status model.Status, tasks []model.Task, contacts map[string]model.Contact, pending map[string]bool) ColumnView {
	col := ColumnView{Status: status, Title: ColumnTitle(status)}
	for _, t := range tasks {
		if t.Status != status {
			continue
		}
		col.Cards = append(col.Cards, NewCard(t, contacts, pending[t.ID]))
	}
	return col
}

// NewBoard builds the four columns. Tasks with an unknown status land in
// none of them.
func NewBoard(tasks []model.Task, contacts map[string]model.Contact, pending map[string]bool) []ColumnView {
	cols := make([]ColumnView, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		cols = append(cols, NewColumn(s, tasks, contacts, pending))
	}
	return cols
}

type ContactRow struct {
	model.Contact
	Initials string
	FullName string
}

type ContactGroup struct {
	Letter   string
	Contacts []ContactRow
}

func NewContactRow(c model.Contact) ContactRow {
	return ContactRow{Contact: c, Initials: c.Initials(), FullName: c.FullName()}
}
