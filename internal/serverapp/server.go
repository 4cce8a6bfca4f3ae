package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"join/internal/auth"
	"join/internal/board"
	"join/internal/config"
	"join/internal/contact"
	"join/internal/httpmw"
	"join/internal/palette"
	"join/internal/store"
	"join/internal/summary"
	"join/internal/task"
	"join/static"
)

type Options struct {
	Config        *config.Config
	DataDir       string
	StaticDir     string
	UseDiskStatic bool
	Logger        *log.Logger
	// Backend is the document store; nil opens one from Config.Store.
	Backend store.Backend
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = opts.Config.Store.DataDir
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = "data"
	}
	if strings.TrimSpace(opts.StaticDir) == "" {
		opts.StaticDir = opts.Config.Server.StaticDir
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Backend == nil {
		b, err := store.Open(opts.Config.Store)
		if err != nil {
			return nil, err
		}
		opts.Backend = b
	}
	client := store.NewClient(opts.Backend, opts.Logger)

	mux := http.NewServeMux()

	staticHandler := http.FileServer(http.FS(staticfiles.EmbeddedFS()))
	if opts.UseDiskStatic {
		staticHandler = http.FileServer(http.Dir(opts.StaticDir))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "join",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	colors := palette.New(opts.Config.Palette.Colors)

	authRepo, err := auth.NewSessionRepo(filepath.Join(opts.DataDir, "auth"))
	if err != nil {
		return nil, err
	}
	if n, err := authRepo.PruneExpired(time.Now()); err == nil && n > 0 {
		opts.Logger.Printf("[auth] pruned %d expired sessions", n)
	}
	authService := auth.NewService(authRepo, auth.NewUserStore(client), colors, opts.Config.Auth, opts.Logger)
	authHandler := auth.NewHandler(authService)
	mux.HandleFunc("/login", authHandler.LoginPage)
	mux.HandleFunc("/login/guest", authHandler.GuestLoginPage)
	mux.HandleFunc("/signup", authHandler.SignupPage)
	mux.HandleFunc("/logout", authHandler.LogoutPage)
	mux.HandleFunc("/api/auth/signup", authHandler.Signup)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/session", authHandler.Session)
	mux.HandleFunc("/api/auth/logout", authHandler.Logout)
	mux.Handle("/api/prefs", authService.RequireAPI(http.HandlerFunc(authHandler.Prefs)))

	taskService := task.NewService(client, opts.Logger)
	taskHandler := task.NewHandler(taskService)
	mux.Handle("/api/tasks", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksRoot)))
	mux.Handle("/api/tasks/", authService.RequireAPI(http.HandlerFunc(taskHandler.TasksSub)))
	mux.Handle("/api/tasks:reload", authService.RequireAPI(http.HandlerFunc(taskHandler.Reload)))

	contactService, err := contact.NewService(client, colors, opts.Logger)
	if err != nil {
		return nil, err
	}
	contactHandler := contact.NewHandler(contactService)
	mux.Handle("/api/contacts", authService.RequireAPI(http.HandlerFunc(contactHandler.Root)))
	mux.Handle("/api/contacts/", authService.RequireAPI(http.HandlerFunc(contactHandler.Sub)))
	mux.Handle("/contacts", authService.RequirePage(http.HandlerFunc(contactHandler.Page)))

	boardHandler := board.NewHandler(taskService, contactService)
	boardHandler.SetSessionResolver(func(r *http.Request) string {
		sess, ok := auth.SessionFromContext(r.Context())
		if !ok {
			return ""
		}
		return sess.ID
	})
	mux.Handle("/board", authService.RequirePage(http.HandlerFunc(boardHandler.Page)))
	mux.Handle("/board/columns", authService.RequirePage(http.HandlerFunc(boardHandler.Columns)))
	mux.Handle("/add-task", authService.RequirePage(http.HandlerFunc(boardHandler.AddTask)))
	mux.Handle("/tasks/", authService.RequirePage(http.HandlerFunc(boardHandler.Tasks)))
	mux.Handle("/api/board/drag", authService.RequireAPI(http.HandlerFunc(boardHandler.Drag)))
	mux.Handle("/api/board/drop", authService.RequireAPI(http.HandlerFunc(boardHandler.Drop)))

	summaryHandler := summary.NewHandler(taskService, contactService, opts.Logger)
	mux.Handle("/summary", authService.RequirePage(http.HandlerFunc(summaryHandler.Page)))
	mux.Handle("/api/summary", authService.RequireAPI(http.HandlerFunc(summaryHandler.API)))

	mux.Handle("/api/config", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(opts.Config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})))

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := client.Raw(r.Context(), "tasks"); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "store unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "join",
			"driver":  opts.Config.Store.Driver,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/", authService.HandleRoot)

	logSecurityHints(opts.Logger, opts.Config)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		httpmw.WithNoStore,
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logSecurityHints(logger *log.Logger, cfg *config.Config) {
	if logger == nil {
		return
	}
	if cfg.Store.Driver == "http" || cfg.Store.Driver == "firebase" {
		if strings.HasPrefix(strings.ToLower(cfg.Store.BaseURL), "http://") {
			logger.Printf("[security] store base_url %s is not https", cfg.Store.BaseURL)
		}
		if cfg.Store.AuthToken == "" {
			logger.Printf("[security] store driver %s without auth_token; the database must allow public access", cfg.Store.Driver)
		}
	}
	if cfg.Auth.CookieSecure == "false" {
		logger.Printf("[security] session cookies are never marked Secure (auth.cookie_secure=false)")
	}
}
