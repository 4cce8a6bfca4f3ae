package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// SessionRepo keeps sessions in memory and mirrors them to
// <dataDir>/sessions.json. Users live in the document store.
type SessionRepo struct {
	mu      sync.RWMutex
	path    string
	byID    map[string]Session
	byToken map[string]string
}

func NewSessionRepo(dataDir string) (*SessionRepo, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	r := &SessionRepo{
		path:    filepath.Join(dataDir, "sessions.json"),
		byID:    map[string]Session{},
		byToken: map[string]string{},
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SessionRepo) load() error {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var list []Session
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range list {
		r.byID[s.ID] = s
		r.byToken[s.TokenHash] = s.ID
	}
	return nil
}

// saveLocked writes the sessions to a temp file and renames it over the
// old one.
func (r *SessionRepo) saveLocked() error {
	list := make([]Session, 0, len(r.byID))
	for _, s := range r.byID {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func newID(prefix string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return prefix + "_" + hex.EncodeToString(b[:])
}

func (r *SessionRepo) Create(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	r.byToken[s.TokenHash] = s.ID
	return r.saveLocked()
}

func (r *SessionRepo) ByTokenHash(tokenHash string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[r.byToken[tokenHash]]
	return s, ok
}

func (r *SessionRepo) deleteLocked(s Session) {
	delete(r.byID, s.ID)
	delete(r.byToken, s.TokenHash)
}

func (r *SessionRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return nil
	}
	r.deleteLocked(s)
	return r.saveLocked()
}

func (r *SessionRepo) DeleteByTokenHash(tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[r.byToken[tokenHash]]
	if !ok {
		return nil
	}
	r.deleteLocked(s)
	return r.saveLocked()
}

func (r *SessionRepo) Touch(sessionID string, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return nil
	}
	s.LastSeen = lastSeen
	r.byID[sessionID] = s
	return r.saveLocked()
}

// UpdatePrefs applies fn to the stored preferences of a session.
func (r *SessionRepo) UpdatePrefs(sessionID string, fn func(p *Prefs)) (Prefs, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return Prefs{}, false, nil
	}
	fn(&s.Prefs)
	r.byID[sessionID] = s
	return s.Prefs, true, r.saveLocked()
}

// PruneExpired drops sessions that expired before now.
func (r *SessionRepo) PruneExpired(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if now.After(s.ExpiresAt) {
			r.deleteLocked(s)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, r.saveLocked()
}

func (r *SessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
