package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"join/internal/model"
	"join/internal/render"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// PageFor builds the page header data for the signed-in user of r.
func PageFor(r *http.Request, title, active string) render.Page {
	p := render.Page{Title: title, Active: active}
	u, ok := UserFromContext(r.Context())
	if !ok {
		return p
	}
	name := u.Name
	if sess, ok := SessionFromContext(r.Context()); ok && sess.Prefs.Username != "" {
		name = sess.Prefs.Username
	}
	first, last := model.SplitName(name)
	p.UserName = name
	p.UserInitials = model.Initials(first, last)
	p.LoggedIn = true
	return p
}

func renderPage(w http.ResponseWriter, r *http.Request, code int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(code)).ServeHTTP(w, r)
}

// GET/POST /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, _, ok := h.service.AuthenticateRequest(r, time.Now()); ok {
			http.Redirect(w, r, "/summary", http.StatusSeeOther)
			return
		}
		renderPage(w, r, http.StatusOK, render.LoginPage(render.AuthPageData{Page: render.Page{Title: "Log in"}}))
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			writeErr(w, http.StatusBadRequest, "bad form")
			return
		}
		email := r.PostForm.Get("email")
		_, token, exp, err := h.service.Login(r.Context(), email, r.PostForm.Get("password"), time.Now())
		if err != nil {
			msg := "Something went wrong, please try again"
			code := http.StatusBadGateway
			if errors.Is(err, ErrInvalidCredentials) {
				msg = "Check your email and password. Please try again."
				code = http.StatusUnauthorized
			}
			renderPage(w, r, code, render.LoginPage(render.AuthPageData{
				Page:  render.Page{Title: "Log in"},
				Email: email,
				Error: msg,
			}))
			return
		}
		h.service.SetSessionCookie(w, r, token, exp)
		http.Redirect(w, r, "/summary", http.StatusSeeOther)
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /login/guest
func (h *Handler) GuestLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, token, exp, err := h.service.GuestLogin(time.Now())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not start session")
		return
	}
	h.service.SetSessionCookie(w, r, token, exp)
	http.Redirect(w, r, "/summary", http.StatusSeeOther)
}

// GET/POST /signup
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		renderPage(w, r, http.StatusOK, render.SignupPage(render.AuthPageData{Page: render.Page{Title: "Sign up"}}))
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			writeErr(w, http.StatusBadRequest, "bad form")
			return
		}
		in := SignupInput{
			Name:         r.PostForm.Get("name"),
			Email:        r.PostForm.Get("email"),
			Password:     r.PostForm.Get("password"),
			Confirm:      r.PostForm.Get("confirm"),
			AcceptPolicy: r.PostForm.Get("acceptPolicy") != "",
		}
		if _, err := h.service.Signup(r.Context(), in, time.Now()); err != nil {
			data := render.AuthPageData{Page: render.Page{Title: "Sign up"}, Name: in.Name, Email: in.Email}
			code := http.StatusBadGateway
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				data.Errors = verr.Fields
				code = http.StatusUnprocessableEntity
			case errors.Is(err, ErrEmailTaken):
				data.Errors = map[string]string{"email": "This email is already registered"}
				code = http.StatusConflict
			default:
				data.Error = "Something went wrong, please try again"
			}
			renderPage(w, r, code, render.SignupPage(data))
			return
		}
		http.Redirect(w, r, "/login?signedUp=1", http.StatusSeeOther)
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /logout
func (h *Handler) LogoutPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.service.RevokeSessionForRequest(r)
	h.service.ClearSessionCookie(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.service.Signup(r.Context(), in, time.Now())
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verr.Fields})
		case errors.Is(err, ErrEmailTaken):
			writeErr(w, http.StatusConflict, err.Error())
		default:
			writeErr(w, http.StatusBadGateway, "could not sign up")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":   true,
		"user": map[string]any{"id": u.ID, "name": u.Name, "email": u.Email, "color": u.Color},
	})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Guest    bool   `json:"guest"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	var (
		u     User
		token string
		exp   time.Time
		err   error
	)
	if in.Guest {
		u, token, exp, err = h.service.GuestLogin(time.Now())
	} else {
		u, token, exp, err = h.service.Login(r.Context(), in.Email, in.Password, time.Now())
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeErr(w, http.StatusUnauthorized, err.Error())
		default:
			writeErr(w, http.StatusBadGateway, "could not log in")
		}
		return
	}

	h.service.SetSessionCookie(w, r, token, exp)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"user":      u,
		"expiresAt": exp.Format(time.RFC3339),
	})
}

// GET /api/auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, sess, ok := h.service.AuthenticateRequest(r, time.Now())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": u,
		"session": map[string]any{
			"id":        sess.ID,
			"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
			"lastSeen":  sess.LastSeen.Format(time.RFC3339),
		},
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.service.RevokeSessionForRequest(r)
	h.service.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET/PUT /api/prefs (behind RequireAPI)
func (h *Handler) Prefs(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sess.Prefs)
	case http.MethodPut:
		var p PrefsPatch
		if err := decodeJSON(r, &p); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		out, err := h.service.UpdatePrefs(sess.ID, p)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
