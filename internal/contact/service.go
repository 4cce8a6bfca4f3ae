// Package contact manages the shared address book.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"unicode"

	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"join/internal/model"
	"join/internal/palette"
	"join/internal/render"
	"join/internal/store"
)

const collectionPath = "contacts"

var ErrNotFound = errors.New("contact not found")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid contact: " + strings.Join(names, ", ")
}

// Input is a contact form submission. Name is split into first and last name
// when FirstName is empty.
type Input struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func validPhone(p string) bool {
	for _, r := range p {
		if !unicode.IsDigit(r) && r != ' ' && r != '+' {
			return false
		}
	}
	return true
}

// Validate normalizes in into a contact without id and color.
func Validate(in Input) (model.Contact, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		first, last = model.SplitName(in.Name)
	}
	c := model.Contact{
		FirstName: norm.NFC.String(first),
		LastName:  norm.NFC.String(last),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
	}

	fields := map[string]string{}
	if c.FirstName == "" {
		fields["firstName"] = "This field is required"
	}
	if c.Email == "" {
		fields["email"] = "This field is required"
	} else if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		fields["email"] = "Please enter a valid email"
	}
	if !validPhone(c.Phone) {
		fields["phone"] = "Only digits, spaces and + are allowed"
	}
	if len(fields) > 0 {
		return model.Contact{}, &ValidationError{Fields: fields}
	}
	return c, nil
}

type Service struct {
	client  *store.Client
	palette *palette.Service
	logger  *log.Logger
	newID   func() string

	mu       sync.RWMutex
	contacts map[string]model.Contact
	keys     map[string]string // id -> store key, for records keyed by index
	loaded   bool

	sf singleflight.Group
}

func NewService(client *store.Client, colors *palette.Service, logger *log.Logger) (*Service, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("contact id generator: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		client:   client,
		palette:  colors,
		logger:   logger,
		newID:    gen,
		contacts: map[string]model.Contact{},
		keys:     map[string]string{},
	}, nil
}

// LoadAll refreshes the cache from the store and primes the palette with the
// colors in use.
func (s *Service) LoadAll(ctx context.Context) ([]model.Contact, error) {
	_, err, _ := s.sf.Do(collectionPath, func() (any, error) {
		return nil, s.load(ctx)
	})
	return s.snapshot(), err
}

func (s *Service) load(ctx context.Context) error {
	b, err := s.client.Raw(ctx, collectionPath)
	if err != nil {
		s.logger.Printf("[contact] warning: load contacts: %v", err)
		return fmt.Errorf("load contacts: %w", err)
	}
	entries, err := store.DecodeCollection[json.RawMessage](b)
	if err != nil {
		return fmt.Errorf("decode contacts: %w", err)
	}
	next := make(map[string]model.Contact, len(entries))
	keys := make(map[string]string, len(entries))
	colors := make([]string, 0, len(entries))
	for _, e := range entries {
		var c model.Contact
		if err := json.Unmarshal(e.Value, &c); err != nil {
			s.logger.Printf("[contact] warning: skip contacts/%s: %v", e.Key, err)
			continue
		}
		if c.ID == "" {
			c.ID = e.Key
		}
		next[c.ID] = c
		keys[c.ID] = e.Key
		colors = append(colors, c.Color)
	}
	s.palette.Prime(colors...)

	s.mu.Lock()
	s.contacts = next
	s.keys = keys
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		_, _ = s.LoadAll(ctx)
	}
}

// path returns the store path holding contact id.
func (s *Service) path(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k, ok := s.keys[id]; ok {
		return collectionPath + "/" + k
	}
	return collectionPath + "/" + id
}

func (s *Service) snapshot() []model.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	return out
}

// List returns all contacts sorted by first name, then last name.
func (s *Service) List(ctx context.Context) []model.Contact {
	s.ensureLoaded(ctx)
	out := s.snapshot()
	Sort(out)
	return out
}

// Index returns the contacts keyed by id.
func (s *Service) Index(ctx context.Context) map[string]model.Contact {
	return render.ContactIndex(s.List(ctx))
}

// Sort orders contacts alphabetically using locale-aware collation.
func Sort(cs []model.Contact) {
	col := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(cs, func(i, j int) bool {
		if c := col.CompareString(cs[i].FirstName, cs[j].FirstName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(cs[i].LastName, cs[j].LastName); c != 0 {
			return c < 0
		}
		return cs[i].ID < cs[j].ID
	})
}

// groupLetter is the upper-cased first letter of name with diacritics
// removed, so "Émile" files under E like the collation sorts it.
func groupLetter(name string) string {
	name = strings.TrimSpace(name)
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err == nil {
		name = folded
	}
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "#"
}

// Groups buckets sorted contacts by the first letter of the first name.
func Groups(sorted []model.Contact) []render.ContactGroup {
	var out []render.ContactGroup
	for _, c := range sorted {
		letter := groupLetter(c.FirstName)
		if n := len(out); n == 0 || out[n-1].Letter != letter {
			out = append(out, render.ContactGroup{Letter: letter})
		}
		last := &out[len(out)-1]
		last.Contacts = append(last.Contacts, render.NewContactRow(c))
	}
	return out
}

func (s *Service) Get(ctx context.Context, id string) (model.Contact, error) {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok {
		return model.Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, in Input) (model.Contact, error) {
	c, err := Validate(in)
	if err != nil {
		return model.Contact{}, err
	}
	s.ensureLoaded(ctx)
	c.ID = s.newID()
	c.Color = s.palette.Next()
	if err := s.client.Put(ctx, collectionPath+"/"+c.ID, c); err != nil {
		return model.Contact{}, err
	}
	s.mu.Lock()
	s.contacts[c.ID] = c
	s.keys[c.ID] = c.ID
	s.mu.Unlock()
	s.logger.Printf("[contact] created %s", c.ID)
	return c, nil
}

// Update replaces name, email and phone; the color stays.
func (s *Service) Update(ctx context.Context, id string, in Input) (model.Contact, error) {
	next, err := Validate(in)
	if err != nil {
		return model.Contact{}, err
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return model.Contact{}, err
	}
	next.ID = cur.ID
	next.Color = cur.Color
	if err := s.client.Put(ctx, s.path(id), next); err != nil {
		return model.Contact{}, err
	}
	s.mu.Lock()
	s.contacts[id] = next
	s.mu.Unlock()
	return next, nil
}

// Delete removes the contact. Tasks keep the id in assignedTo; badges skip it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, s.path(id)); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.contacts, id)
	delete(s.keys, id)
	s.mu.Unlock()
	s.logger.Printf("[contact] deleted %s", id)
	return nil
}
