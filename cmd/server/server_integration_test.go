package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"join/internal/config"
	"join/internal/serverapp"
	"join/internal/store"
)

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/tasks", "/api/contacts", "/api/summary", "/api/prefs"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, res.Code)
		}
	}

	for _, path := range []string{"/board", "/summary", "/contacts", "/add-task", "/"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusSeeOther {
			t.Fatalf("expected 303 for %s, got %d", path, res.Code)
		}
		if loc := res.Header().Get("Location"); loc != "/login" {
			t.Fatalf("expected %s redirect to /login, got %q", path, loc)
		}
	}
}

func TestServer_HealthAndReadinessExposeRequestID(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d body=%s", path, res.Code, res.Body.String())
		}
		if rid := strings.TrimSpace(res.Header().Get("X-Request-Id")); rid == "" {
			t.Fatalf("%s missing X-Request-Id header", path)
		}
	}
}

func TestServer_EmbeddedStatic(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/static/css/join.css", "/static/js/join.js", "/static/img/prio-urgent.svg"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, res.Code)
		}
	}
}

func TestServer_SignupLoginAndSummary(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Anna Berg", "anna@example.com")

	root := app.request(http.MethodGet, "/", nil, "")
	if root.Code != http.StatusSeeOther || root.Header().Get("Location") != "/summary" {
		t.Fatalf("root expected redirect to /summary, got %d %q", root.Code, root.Header().Get("Location"))
	}

	page := app.request(http.MethodGet, "/summary", nil, "")
	if page.Code != http.StatusOK {
		t.Fatalf("summary expected 200, got %d body=%s", page.Code, page.Body.String())
	}
	if !strings.Contains(page.Body.String(), "Anna Berg") {
		t.Fatalf("summary should greet the user, body=%s", page.Body.String())
	}

	dup := app.json(http.MethodPost, "/api/auth/signup", map[string]any{
		"name":         "Other Anna",
		"email":        "ANNA@example.com",
		"password":     "secret123",
		"confirm":      "secret123",
		"acceptPolicy": true,
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate signup expected 409, got %d body=%s", dup.Code, dup.Body.String())
	}

	prefs := app.json(http.MethodPut, "/api/prefs", map[string]any{"greetingShown": true})
	if prefs.Code != http.StatusOK {
		t.Fatalf("prefs expected 200, got %d body=%s", prefs.Code, prefs.Body.String())
	}
	if v, _ := decodeBodyMap(t, prefs)["greetingShown"].(bool); !v {
		t.Fatalf("greetingShown not stored: %s", prefs.Body.String())
	}

	logout := app.request(http.MethodPost, "/logout", nil, "")
	if logout.Code != http.StatusSeeOther {
		t.Fatalf("logout expected 303, got %d", logout.Code)
	}
	if res := app.request(http.MethodGet, "/api/tasks", nil, ""); res.Code != http.StatusUnauthorized {
		t.Fatalf("tasks after logout expected 401, got %d", res.Code)
	}
}

func TestServer_BoardRoundTrip(t *testing.T) {
	app := newTestApp(t)
	app.guestLogin(t)

	contactRes := app.json(http.MethodPost, "/api/contacts", map[string]any{
		"name":  "Benedikt Ziegler",
		"email": "benedikt@example.com",
		"phone": "+49 1111 111 11 1",
	})
	if contactRes.Code != http.StatusCreated {
		t.Fatalf("create contact expected 201, got %d body=%s", contactRes.Code, contactRes.Body.String())
	}
	contactID := asString(t, decodeBodyMap(t, contactRes)["id"])

	form := url.Values{
		"title":      {"Kochwelt Page"},
		"dueDate":    {"10/05/2030"},
		"category":   {"user_story"},
		"priority":   {"urgent"},
		"assignedTo": {contactID},
		"subtask":    {"Implement recipe", "Start page layout"},
		"subtaskId":  {"", ""},
	}
	createRes := app.request(http.MethodPost, "/add-task", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if createRes.Code != http.StatusSeeOther {
		t.Fatalf("add task expected 303, got %d body=%s", createRes.Code, createRes.Body.String())
	}

	listRes := app.request(http.MethodGet, "/api/tasks", nil, "")
	if listRes.Code != http.StatusOK {
		t.Fatalf("list tasks expected 200, got %d", listRes.Code)
	}
	var tasks []struct {
		ID       string   `json:"id"`
		Status   string   `json:"status"`
		Assigned []string `json:"assignedTo"`
		Subtasks []struct {
			ID   string `json:"id"`
			Done bool   `json:"done"`
		} `json:"subtasks"`
	}
	if err := json.Unmarshal(listRes.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v body=%s", err, listRes.Body.String())
	}
	if len(tasks) != 1 || tasks[0].ID != "0" || tasks[0].Status != "to-do" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if len(tasks[0].Assigned) != 1 || tasks[0].Assigned[0] != contactID {
		t.Fatalf("assignee not stored: %+v", tasks[0])
	}

	board := app.request(http.MethodGet, "/board", nil, "")
	if board.Code != http.StatusOK || !strings.Contains(board.Body.String(), `id="task-0"`) {
		t.Fatalf("board should render the card, got %d", board.Code)
	}
	if !strings.Contains(board.Body.String(), "0/2 Subtasks") {
		t.Fatalf("board should render subtask progress, body=%s", board.Body.String())
	}

	toggle := app.request(http.MethodPost, "/api/tasks/0/subtasks/"+tasks[0].Subtasks[0].ID+"/toggle", nil, "")
	if toggle.Code != http.StatusOK {
		t.Fatalf("toggle expected 200, got %d body=%s", toggle.Code, toggle.Body.String())
	}

	if res := app.json(http.MethodPost, "/api/board/drag", map[string]any{"taskId": "0"}); res.Code != http.StatusOK {
		t.Fatalf("drag expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	drop := app.json(http.MethodPost, "/api/board/drop", map[string]any{"status": "done"})
	if drop.Code != http.StatusOK {
		t.Fatalf("drop expected 200, got %d body=%s", drop.Code, drop.Body.String())
	}
	columns := asString(t, decodeBodyMap(t, drop)["columns"])
	if !strings.Contains(columns, "1/2 Subtasks") || !strings.Contains(columns, "No tasks to do") {
		t.Fatalf("drop should return the updated columns: %s", columns)
	}

	summary := app.request(http.MethodGet, "/api/summary", nil, "")
	stats := asMap(t, decodeBodyMap(t, summary)["stats"])
	if total, _ := stats["total"].(float64); total != 1 {
		t.Fatalf("summary total expected 1, got %v", stats["total"])
	}

	unassign := app.request(http.MethodDelete, "/api/tasks/0/assignees/"+contactID, nil, "")
	if unassign.Code != http.StatusOK {
		t.Fatalf("unassign expected 200, got %d body=%s", unassign.Code, unassign.Body.String())
	}

	del := app.request(http.MethodDelete, "/api/tasks/0", nil, "")
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d body=%s", del.Code, del.Body.String())
	}
	reload := app.request(http.MethodPost, "/api/tasks:reload", nil, "")
	if reload.Code != http.StatusOK {
		t.Fatalf("reload expected 200, got %d", reload.Code)
	}
	if strings.Contains(reload.Body.String(), "Kochwelt") {
		t.Fatalf("deleted task came back after reload: %s", reload.Body.String())
	}
}

type testApp struct {
	handler http.Handler
	logs    *bytes.Buffer
	cookies map[string]*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.BcryptCost = bcrypt.MinCost
	dataDir := t.TempDir()

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)

	h, err := serverapp.NewHandler(serverapp.Options{
		Config:        cfg,
		DataDir:       dataDir,
		StaticDir:     filepath.Join(projectRoot(t), "static"),
		UseDiskStatic: false,
		Logger:        logger,
		Backend:       store.NewMemoryBackend(),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	return &testApp{
		handler: h,
		logs:    &logs,
		cookies: map[string]*http.Cookie{},
	}
}

func (a *testApp) json(method, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	return a.request(method, path, bytes.NewReader(b), "application/json")
}

func (a *testApp) request(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	a.captureCookies(rec.Result())
	return rec
}

func (a *testApp) captureCookies(res *http.Response) {
	for _, c := range res.Cookies() {
		if c == nil {
			continue
		}
		if c.MaxAge < 0 || strings.TrimSpace(c.Value) == "" {
			delete(a.cookies, c.Name)
			continue
		}
		cp := *c
		a.cookies[c.Name] = &cp
	}
}

func (a *testApp) signupAndLogin(t *testing.T, name, email string) {
	t.Helper()

	res := a.json(http.MethodPost, "/api/auth/signup", map[string]any{
		"name":         name,
		"email":        email,
		"password":     "secret123",
		"confirm":      "secret123",
		"acceptPolicy": true,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d body=%s", res.Code, res.Body.String())
	}

	login := a.json(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    email,
		"password": "secret123",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d body=%s", login.Code, login.Body.String())
	}
}

func (a *testApp) guestLogin(t *testing.T) {
	t.Helper()
	res := a.request(http.MethodPost, "/login/guest", nil, "")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("guest login expected 303, got %d body=%s", res.Code, res.Body.String())
	}
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func decodeBodyMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode json body failed: %v body=%s", err, rec.Body.String())
	}
	return out
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	out, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T (%v)", v, v)
	}
	return out
}

func asString(t *testing.T, v any) string {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("expected string, got %T (%v)", v, v)
	}
	return s
}
