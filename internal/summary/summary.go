// Package summary computes the dashboard numbers shown after login.
package summary

import (
	"time"

	"join/internal/model"
	"join/internal/task"
)

type Stats struct {
	ByStatus map[model.Status]int `json:"byStatus"`
	Total    int                  `json:"total"`
	Urgent   int                  `json:"urgent"`
	// Deadline is the earliest urgent due date not before today, dd/mm/yyyy.
	Deadline string `json:"deadline,omitempty"`
}

// Compute counts tasks per status and finds the next urgent deadline.
func Compute(tasks []model.Task, now time.Time) Stats {
	st := Stats{ByStatus: map[model.Status]int{}}
	for _, s := range model.Statuses {
		st.ByStatus[s] = 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var next time.Time
	for _, t := range tasks {
		if !t.Status.Valid() {
			continue
		}
		st.ByStatus[t.Status]++
		st.Total++
		if t.Priority != model.PriorityUrgent {
			continue
		}
		st.Urgent++
		due, err := task.ParseDueDate(t.DueDate)
		if err != nil || due.Before(today) {
			continue
		}
		if next.IsZero() || due.Before(next) {
			next = due
		}
	}
	if !next.IsZero() {
		st.Deadline = next.Format(task.DateLayout)
	}
	return st
}

// Greeting picks the salutation for the hour of day.
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
