package auth

import "time"

// User is the signed-in identity attached to a request. Guests have no
// stored user record.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Color string `json:"color,omitempty"`
	Guest bool   `json:"guest"`
}

// Prefs is the per-session client state the browser used to keep in local
// storage.
type Prefs struct {
	Username      string `json:"username"`
	LoggedIn      bool   `json:"loggedIn"`
	Layout        string `json:"layout"`
	GreetingShown bool   `json:"greetingShown"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Guest     bool      `json:"guest,omitempty"`
	TokenHash string    `json:"tokenHash"`
	Prefs     Prefs     `json:"prefs"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
	ExpiresAt time.Time `json:"expiresAt"`
}
