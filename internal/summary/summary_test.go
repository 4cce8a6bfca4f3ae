package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"join/internal/config"
	"join/internal/contact"
	"join/internal/model"
	"join/internal/palette"
	"join/internal/store"
	"join/internal/task"
)

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Good morning", Greeting(0))
	assert.Equal(t, "Good morning", Greeting(11))
	assert.Equal(t, "Good afternoon", Greeting(12))
	assert.Equal(t, "Good afternoon", Greeting(17))
	assert.Equal(t, "Good evening", Greeting(18))
	assert.Equal(t, "Good evening", Greeting(23))
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{Status: model.StatusToDo, Priority: model.PriorityUrgent, DueDate: "09/03/2026"},
		{Status: model.StatusToDo, Priority: model.PriorityUrgent, DueDate: "20/03/2026"},
		{Status: model.StatusInProgress, Priority: model.PriorityUrgent, DueDate: "10/03/2026"},
		{Status: model.StatusDone, Priority: model.PriorityLow, DueDate: "01/03/2026"},
		{Status: "archived", Priority: model.PriorityUrgent, DueDate: "11/03/2026"},
	}
	st := Compute(tasks, now)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.ByStatus[model.StatusToDo])
	assert.Equal(t, 1, st.ByStatus[model.StatusInProgress])
	assert.Equal(t, 0, st.ByStatus[model.StatusAwaitFeedback])
	assert.Equal(t, 3, st.Urgent)
	assert.Equal(t, "10/03/2026", st.Deadline)

	empty := Compute(nil, now)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Deadline)
}

func TestHandler_API(t *testing.T) {
	ctx := context.Background()
	client := store.NewClient(store.NewMemoryBackend(), nil)
	tasks := task.NewService(client, nil)
	contacts, err := contact.NewService(client, palette.New(config.DefaultColors), nil)
	require.NoError(t, err)

	_, err = tasks.Create(ctx, task.Input{Title: "a", DueDate: "2026-03-12", Category: "user_story", Priority: "urgent"})
	require.NoError(t, err)

	h := NewHandler(tasks, contacts, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.API(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Stats    Stats  `json:"stats"`
		Greeting string `json:"greeting"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Good morning", body.Greeting)
	assert.Equal(t, 1, body.Stats.Total)
	assert.Equal(t, "12/03/2026", body.Stats.Deadline)

	rr = httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "12/03/2026")
}
