package task

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"join/internal/model"
)

func jsonReq(method, path string, body any) *http.Request {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newTestMux(t *testing.T) (*http.ServeMux, *Service, *flakyBackend) {
	t.Helper()
	svc, b := newTestService(t)
	h := NewHandler(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", h.TasksRoot)
	mux.HandleFunc("/api/tasks/", h.TasksSub)
	mux.HandleFunc("/api/tasks:reload", h.Reload)
	return mux, svc, b
}

func TestTasksAPI_CreateValidation(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPost, "/api/tasks", map[string]any{"title": ""}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "title")

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{"))
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTasksAPI_Lifecycle(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPost, "/api/tasks", validInput("api task")))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPut, "/api/tasks/"+created.ID+"/status", map[string]string{"status": "done"}))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPost, "/api/tasks/"+created.ID+"/subtasks", map[string]string{"title": "step"}))
	require.Equal(t, http.StatusCreated, rr.Code)
	var added struct {
		Subtask model.Subtask `json:"subtask"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPost, "/api/tasks/"+created.ID+"/subtasks/"+added.Subtask.ID+"/toggle", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPut, "/api/tasks/"+created.ID+"/assignees/c9", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodGet, "/api/tasks?status=done", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusDone, list[0].Status)
	assert.True(t, list[0].Subtasks[0].Done)
	assert.Equal(t, model.IDList{"c9"}, list[0].AssignedTo)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodDelete, "/api/tasks/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodGet, "/api/tasks/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTasksAPI_StoreFailureIsBadGateway(t *testing.T) {
	mux, svc, b := newTestMux(t)
	created, err := svc.Create(context.Background(), validInput("x"))
	require.NoError(t, err)

	b.failWrites.Store(true)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPut, "/api/tasks/"+created.ID+"/status", map[string]string{"status": "done"}))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPut, "/api/tasks/"+created.ID+"/status", map[string]string{"status": "sideways"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTasksAPI_Reload(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPost, "/api/tasks:reload", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodGet, "/api/tasks:reload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestTasksAPI_TaskNamedReload(t *testing.T) {
	mux, svc, b := newTestMux(t)
	ctx := context.Background()
	require.NoError(t, b.Write(ctx, "tasks", []byte(`{"reload":{"title":"odd key","status":"to-do"}}`)))
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodGet, "/api/tasks/reload", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "odd key", got.Title)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodDelete, "/api/tasks/reload", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestTasksAPI_PutWholeTaskClearsDone(t *testing.T) {
	mux, svc, _ := newTestMux(t)
	ctx := context.Background()
	in := validInput("wholesale")
	in.Subtasks = []SubtaskInput{{Title: "a"}, {Title: "b"}}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	for _, st := range created.Subtasks {
		_, err = svc.ToggleSubtask(ctx, created.ID, st.ID)
		require.NoError(t, err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodGet, "/api/tasks/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	subtasks := body["subtasks"].([]any)
	subtasks[0].(map[string]any)["done"] = false

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, jsonReq(http.MethodPut, "/api/tasks/"+created.ID, body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Subtasks, 2)
	assert.False(t, got.Subtasks[0].Done)
	assert.True(t, got.Subtasks[1].Done)
}
