package ops

import (
	"context"
	"fmt"
	"time"

	"join/internal/contact"
	"join/internal/model"
	"join/internal/task"
)

type SeedResult struct {
	Contacts int
	Tasks    int
	Skipped  bool
}

var demoContacts = []contact.Input{
	{Name: "Anton Mayer", Email: "antonm@gmail.com", Phone: "+49 1111 111 11 1"},
	{Name: "Anja Schulz", Email: "schulz@hotmail.com", Phone: "+49 2222 222 22 2"},
	{Name: "Benedikt Ziegler", Email: "benedikt@gmail.com", Phone: "+49 3333 333 33 3"},
	{Name: "David Eisenberg", Email: "davidberg@gmail.com", Phone: "+49 4444 444 44 4"},
	{Name: "Eva Fischer", Email: "eva@gmail.com", Phone: "+49 5555 555 55 5"},
	{Name: "Emmanuel Mauer", Email: "emmanuelma@gmail.com", Phone: "+49 6666 666 66 6"},
	{Name: "Marcel Bauer", Email: "bauer@gmail.com", Phone: "+49 7777 777 77 7"},
	{Name: "Tatjana Wolf", Email: "wolf@gmail.com", Phone: "+49 8888 888 88 8"},
}

type demoTask struct {
	title, description string
	category           model.Category
	priority           model.Priority
	status             model.Status
	dueInDays          int
	assignees          []int
	subtasks           []string
	done               int
}

var demoTasks = []demoTask{
	{
		title: "Kochwelt Page & Recipe Recommender", description: "Build start page with recipe recommendation.",
		category: model.CategoryUserStory, priority: model.PriorityMedium, status: model.StatusInProgress,
		dueInDays: 14, assignees: []int{0, 4, 6}, subtasks: []string{"Implement Recipe Recommendation", "Start Page Layout"}, done: 1,
	},
	{
		title: "HTML Base Template Creation", description: "Create reusable HTML base templates.",
		category: model.CategoryTechnicalTask, priority: model.PriorityLow, status: model.StatusAwaitFeedback,
		dueInDays: 21, assignees: []int{3, 2, 1},
	},
	{
		title: "Daily Kochwelt Recipe", description: "Implement daily recipe and portion calculator.",
		category: model.CategoryUserStory, priority: model.PriorityMedium, status: model.StatusAwaitFeedback,
		dueInDays: 28, assignees: []int{5, 7, 1},
	},
	{
		title: "CSS Architecture Planning", description: "Define CSS naming conventions and structure.",
		category: model.CategoryTechnicalTask, priority: model.PriorityUrgent, status: model.StatusDone,
		dueInDays: 7, assignees: []int{0, 3}, subtasks: []string{"Establish CSS Methodology", "Setup Base Styles"}, done: 2,
	},
	{
		title: "Contact Form & Imprint", description: "Create a contact form and imprint page.",
		category: model.CategoryUserStory, priority: model.PriorityUrgent, status: model.StatusToDo,
		dueInDays: 3, assignees: []int{6, 4},
		subtasks: []string{"Contact form", "Imprint page"},
	},
}

// Seed fills an empty store with demo contacts and tasks. A store that
// already holds tasks is left alone unless force is set.
func Seed(ctx context.Context, contacts *contact.Service, tasks *task.Service, now time.Time, force bool) (SeedResult, error) {
	if _, err := tasks.Reload(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("seed: %w", err)
	}
	if len(tasks.Tasks(ctx)) > 0 && !force {
		return SeedResult{Skipped: true}, nil
	}

	var res SeedResult
	ids := make([]string, 0, len(demoContacts))
	for _, in := range demoContacts {
		c, err := contacts.Create(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed contact %s: %w", in.Email, err)
		}
		ids = append(ids, c.ID)
		res.Contacts++
	}

	for _, d := range demoTasks {
		in := task.Input{
			Title:       d.title,
			Description: d.description,
			DueDate:     now.AddDate(0, 0, d.dueInDays).Format(task.DateLayout),
			Category:    string(d.category),
			Priority:    string(d.priority),
			Status:      string(d.status),
		}
		for _, i := range d.assignees {
			in.AssignedTo = append(in.AssignedTo, ids[i])
		}
		for i, title := range d.subtasks {
			done := i < d.done
			in.Subtasks = append(in.Subtasks, task.SubtaskInput{Title: title, Done: &done})
		}
		if _, err := tasks.Create(ctx, in); err != nil {
			return res, fmt.Errorf("seed task %q: %w", d.title, err)
		}
		res.Tasks++
	}
	return res, nil
}
