package summary

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"join/internal/auth"
	"join/internal/contact"
	"join/internal/model"
	"join/internal/render"
	"join/internal/task"
)

type Handler struct {
	tasks    *task.Service
	contacts *contact.Service
	logger   *log.Logger
	now      func() time.Time
}

func NewHandler(tasks *task.Service, contacts *contact.Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{tasks: tasks, contacts: contacts, logger: logger, now: time.Now}
}

// refresh reloads tasks and contacts in parallel. Failures keep the cached
// snapshots and are only logged.
func (h *Handler) refresh(ctx context.Context) []model.Task {
	var g errgroup.Group
	g.Go(func() error {
		_, err := h.tasks.Reload(ctx)
		return err
	})
	g.Go(func() error {
		_, err := h.contacts.LoadAll(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Printf("[summary] warning: refresh: %v", err)
	}
	return h.tasks.Cache().List()
}

// GET /api/summary
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := h.now()
	st := Compute(h.refresh(r.Context()), now)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"stats":    st,
		"greeting": Greeting(now.Hour()),
	})
}

// GET /summary
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := h.now()
	st := Compute(h.refresh(r.Context()), now)

	page := auth.PageFor(r, "Summary", "summary")
	name := page.UserName
	if u, ok := auth.UserFromContext(r.Context()); ok && u.Guest {
		name = ""
	}
	data := render.SummaryData{
		Page:          page,
		Greeting:      Greeting(now.Hour()),
		Name:          name,
		ToDo:          st.ByStatus[model.StatusToDo],
		InProgress:    st.ByStatus[model.StatusInProgress],
		AwaitFeedback: st.ByStatus[model.StatusAwaitFeedback],
		Done:          st.ByStatus[model.StatusDone],
		Total:         st.Total,
		Urgent:        st.Urgent,
		Deadline:      st.Deadline,
	}
	templ.Handler(render.SummaryPage(data)).ServeHTTP(w, r)
}
