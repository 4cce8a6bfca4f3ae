package render

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/a-h/templ"

	"join/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.0f", f) },
	"lower": strings.ToLower,
	"label": func(s any) string {
		return titleCaser.String(strings.ReplaceAll(fmt.Sprint(s), "_", " "))
	},
	"columnTitle": ColumnTitle,
}

var templates = template.Must(template.New("join").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

func component(name string, data any) templ.Component {
	return templ.FromGoHTML(templates.Lookup(name), data)
}

// Page carries what every full page needs for the header and navigation.
type Page struct {
	Title        string
	Active       string
	UserName     string
	UserInitials string
	LoggedIn     bool
}

type BoardPageData struct {
	Page
	Query   string
	Columns []ColumnView
}

type SubtaskRow struct {
	ID    string
	Title string
}

type Option struct {
	Value string
	Label string
}

type TaskFormData struct {
	Page
	Action      string
	Editing     bool
	TaskID      string
	Title       string
	Description string
	DueDate     string
	Category    string
	Priority    string
	Status      string
	Assigned    map[string]bool
	Subtasks    []SubtaskRow
	Contacts    []ContactRow
	Errors      map[string]string
	Categories  []Option
	Priorities  []Option
}

// FormOptions fills the category and priority choices.
func (d *TaskFormData) FormOptions() {
	d.Categories = d.Categories[:0]
	for _, c := range model.Categories {
		d.Categories = append(d.Categories, Option{Value: string(c), Label: CategoryLabel(c)})
	}
	d.Priorities = []Option{
		{Value: string(model.PriorityUrgent), Label: "Urgent"},
		{Value: string(model.PriorityMedium), Label: "Medium"},
		{Value: string(model.PriorityLow), Label: "Low"},
	}
}

type ContactForm struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Errors    map[string]string
	Submitted bool
}

type ContactsPageData struct {
	Page
	Groups   []ContactGroup
	Selected *ContactRow
	Form     ContactForm
}

type SummaryData struct {
	Page
	Greeting      string
	Name          string
	ToDo          int
	InProgress    int
	AwaitFeedback int
	Done          int
	Total         int
	Urgent        int
	Deadline      string
}

type AuthPageData struct {
	Page
	Name   string
	Email  string
	Error  string
	Errors map[string]string
}

func BoardPage(d BoardPageData) templ.Component       { return component("board_page", d) }
func Board(cols []ColumnView) templ.Component         { return component("columns", cols) }
func Column(col ColumnView) templ.Component           { return component("column", col) }
func TaskDetail(c Card) templ.Component               { return component("task_detail", c) }
func TaskFormPage(d TaskFormData) templ.Component     { return component("task_form_page", d) }
func ContactsPage(d ContactsPageData) templ.Component { return component("contacts_page", d) }
func ContactList(groups []ContactGroup) templ.Component {
	return component("contact_list", groups)
}
func SummaryPage(d SummaryData) templ.Component { return component("summary_page", d) }
func Summary(d SummaryData) templ.Component     { return component("summary", d) }
func LoginPage(d AuthPageData) templ.Component  { return component("login_page", d) }
func SignupPage(d AuthPageData) templ.Component { return component("signup_page", d) }
