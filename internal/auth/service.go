package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"join/internal/config"
	"join/internal/model"
	"join/internal/palette"
)

const guestUserID = "guest"

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("wrong email or password")
)

// ValidationError maps signup form fields to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid signup: " + strings.Join(names, ", ")
}

type SignupInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirm      string `json:"confirm"`
	AcceptPolicy bool   `json:"acceptPolicy"`
}

type Service struct {
	repo    *SessionRepo
	users   *UserStore
	palette *palette.Service

	logger *log.Logger

	// guards email uniqueness during signup
	signupMu sync.Mutex

	cookieName   string
	cookieSecure string
	sessionTTL   time.Duration
	bcryptCost   int
	guestName    string
}

func NewService(repo *SessionRepo, users *UserStore, colors *palette.Service, cfg config.AuthConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	cfg.ApplyDefaults()
	return &Service{
		repo:         repo,
		users:        users,
		palette:      colors,
		logger:       logger,
		cookieName:   cfg.CookieName,
		cookieSecure: strings.ToLower(cfg.CookieSecure),
		sessionTTL:   time.Duration(cfg.SessionTTLHours) * time.Hour,
		bcryptCost:   cfg.BcryptCost,
		guestName:    cfg.GuestName,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return ErrInvalidEmail
	}
	if strings.ToLower(addr.Address) != email {
		return ErrInvalidEmail
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Signup registers a new user.
func (s *Service) Signup(ctx context.Context, in SignupInput, now time.Time) (model.User, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	email := normalizeEmail(in.Email)

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "This field is required"
	}
	if err := validateEmail(email); err != nil {
		fields["email"] = "Please enter a valid email"
	}
	if len(in.Password) < 8 {
		fields["password"] = "Use at least 8 characters"
	}
	if in.Password != in.Confirm {
		fields["confirm"] = "Your passwords don't match. Please try again."
	}
	if !in.AcceptPolicy {
		fields["acceptPolicy"] = "Please accept the privacy policy"
	}
	if len(fields) > 0 {
		return model.User{}, &ValidationError{Fields: fields}
	}

	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	if _, taken, err := s.users.FindByEmail(ctx, email); err != nil {
		return model.User{}, err
	} else if taken {
		return model.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           newID("usr"),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Color:        s.palette.Next(),
		CreatedAt:    now.UTC(),
	}
	if err := s.users.Put(ctx, u); err != nil {
		return model.User{}, err
	}
	s.logger.Printf("[auth] signed up %s", u.ID)
	return u, nil
}

// Login checks the password and opens a session.
func (s *Service) Login(ctx context.Context, email, password string, now time.Time) (User, string, time.Time, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}
	u, ok, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, "", time.Time{}, ErrInvalidCredentials
	}
	id := User{ID: u.ID, Name: u.Name, Email: u.Email, Color: u.Color}
	token, exp, err := s.openSession(id, now)
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	return id, token, exp, nil
}

// GuestLogin opens a session without a user record.
func (s *Service) GuestLogin(now time.Time) (User, string, time.Time, error) {
	id := s.guest()
	token, exp, err := s.openSession(id, now)
	if err != nil {
		return User{}, "", time.Time{}, err
	}
	return id, token, exp, nil
}

func (s *Service) guest() User {
	return User{ID: guestUserID, Name: s.guestName, Guest: true}
}

func (s *Service) openSession(u User, now time.Time) (string, time.Time, error) {
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(s.sessionTTL)
	sess := Session{
		ID:        newID("sess"),
		UserID:    u.ID,
		Guest:     u.Guest,
		TokenHash: hashToken(token),
		Prefs:     Prefs{Username: u.Name, LoggedIn: true},
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: exp,
	}
	if err := s.repo.Create(sess); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (s *Service) AuthenticateRequest(r *http.Request, now time.Time) (User, Session, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return User{}, Session{}, false
	}

	sess, ok := s.repo.ByTokenHash(hashToken(cookie.Value))
	if !ok {
		return User{}, Session{}, false
	}

	if now.After(sess.ExpiresAt) {
		_ = s.repo.Delete(sess.ID)
		return User{}, Session{}, false
	}

	var u User
	if sess.Guest {
		u = s.guest()
	} else {
		stored, ok := s.users.Get(r.Context(), sess.UserID)
		if !ok {
			_ = s.repo.Delete(sess.ID)
			return User{}, Session{}, false
		}
		u = User{ID: stored.ID, Name: stored.Name, Email: stored.Email, Color: stored.Color}
	}

	// Best-effort last-seen update, throttled to reduce writes.
	if now.Sub(sess.LastSeen) >= 5*time.Minute {
		_ = s.repo.Touch(sess.ID, now)
		sess.LastSeen = now
	}

	return u, sess, true
}

func (s *Service) RevokeSessionForRequest(r *http.Request) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	_ = s.repo.DeleteByTokenHash(hashToken(cookie.Value))
}

// UpdatePrefs merges the non-nil fields of p into the session preferences.
func (s *Service) UpdatePrefs(sessionID string, p PrefsPatch) (Prefs, error) {
	out, ok, err := s.repo.UpdatePrefs(sessionID, func(cur *Prefs) {
		if p.Username != nil {
			cur.Username = strings.TrimSpace(*p.Username)
		}
		if p.LoggedIn != nil {
			cur.LoggedIn = *p.LoggedIn
		}
		if p.Layout != nil {
			cur.Layout = strings.TrimSpace(*p.Layout)
		}
		if p.GreetingShown != nil {
			cur.GreetingShown = *p.GreetingShown
		}
	})
	if err != nil {
		return Prefs{}, err
	}
	if !ok {
		return Prefs{}, errors.New("session not found")
	}
	return out, nil
}

// PrefsPatch is a partial preferences update; nil means unchanged.
type PrefsPatch struct {
	Username      *string `json:"username,omitempty"`
	LoggedIn      *bool   `json:"loggedIn,omitempty"`
	Layout        *string `json:"layout,omitempty"`
	GreetingShown *bool   `json:"greetingShown,omitempty"`
}

func (s *Service) shouldUseSecureCookie(r *http.Request) bool {
	switch s.cookieSecure {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func (s *Service) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := withIdentity(r.Context(), u, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		ctx := withIdentity(r.Context(), u, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleRoot sends signed-in users to the summary and everyone else to login.
func (s *Service) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, _, ok := s.AuthenticateRequest(r, time.Now()); ok {
		http.Redirect(w, r, "/summary", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
