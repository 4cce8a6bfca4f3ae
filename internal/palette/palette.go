// Package palette hands out avatar colors for contacts and users.
package palette

import (
	"math/rand"
	"strings"
	"sync"
)

// Service assigns colors from a fixed palette without repeating one until
// every color has been handed out, then starts over.
type Service struct {
	mu     sync.Mutex
	colors []string
	used   map[string]bool
	pick   func(n int) int
}

func New(colors []string) *Service {
	cp := make([]string, 0, len(colors))
	for _, c := range colors {
		if c = normalize(c); c != "" {
			cp = append(cp, c)
		}
	}
	return &Service{colors: cp, used: map[string]bool{}, pick: rand.Intn}
}

func normalize(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// Prime marks colors already present in stored records as used.
func (s *Service) Prime(colors ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range colors {
		c = normalize(c)
		if s.known(c) {
			s.used[c] = true
		}
	}
	if len(s.used) >= len(s.colors) {
		s.used = map[string]bool{}
	}
}

func (s *Service) known(c string) bool {
	for _, k := range s.colors {
		if k == c {
			return true
		}
	}
	return false
}

// Next returns a color not handed out since the last reset.
func (s *Service) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.colors) == 0 {
		return ""
	}
	free := make([]string, 0, len(s.colors))
	for _, c := range s.colors {
		if !s.used[c] {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		s.used = map[string]bool{}
		free = append(free, s.colors...)
	}
	c := free[s.pick(len(free))]
	s.used[c] = true
	return c
}

// Colors returns the palette.
func (s *Service) Colors() []string {
	return append([]string(nil), s.colors...)
}
