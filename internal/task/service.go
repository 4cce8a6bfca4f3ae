package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"join/internal/model"
	"join/internal/store"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
)

// Service owns every task mutation. Writes go to the store first and then to
// the cache, except Move, which is applied optimistically.
type Service struct {
	client *store.Client
	cache  *Cache
	ids    *Allocator
	logger *log.Logger

	// serializes read-modify-write cycles on the cache
	writeMu sync.Mutex

	pendingMu sync.RWMutex
	pending   map[string]bool
}

func NewService(client *store.Client, logger *log.Logger) *Service {
	cache := NewCache(client, logger)
	return &Service{
		client:  client,
		cache:   cache,
		ids:     NewAllocator(client, cache),
		logger:  cache.logger,
		pending: map[string]bool{},
	}
}

func (s *Service) Cache() *Cache {
	return s.cache
}

// Reload refetches all tasks from the store.
func (s *Service) Reload(ctx context.Context) ([]model.Task, error) {
	return s.cache.LoadAll(ctx)
}

// Tasks returns the cached tasks, loading them first if nothing was loaded yet.
func (s *Service) Tasks(ctx context.Context) []model.Task {
	if !s.cache.Loaded() {
		if ts, err := s.cache.LoadAll(ctx); err == nil {
			return ts
		}
	}
	return s.cache.List()
}

func (s *Service) ensureLoaded(ctx context.Context) {
	if !s.cache.Loaded() {
		_, _ = s.cache.LoadAll(ctx)
	}
}

func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	s.ensureLoaded(ctx)
	t, ok := s.cache.Get(id)
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

// Search filters tasks by a case-insensitive match on title or description.
func (s *Service) Search(ctx context.Context, query string) []model.Task {
	all := s.Tasks(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	out := make([]model.Task, 0, len(all))
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) Create(ctx context.Context, in Input) (model.Task, error) {
	t, err := Validate(in)
	if err != nil {
		return model.Task{}, err
	}
	if t.Status == "" {
		t.Status = model.StatusToDo
	}
	for i := range t.Subtasks {
		t.Subtasks[i].ID = ""
	}
	t.EnsureSubtaskIDs()

	s.ensureLoaded(ctx)
	id, err := s.ids.Next(ctx)
	if err != nil {
		return model.Task{}, err
	}
	// legacy records may sit under a key that differs from their id
	for s.cache.Occupied(id) {
		if id, err = s.ids.Next(ctx); err != nil {
			return model.Task{}, err
		}
	}
	t.ID = id

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.client.Put(ctx, collectionPath+"/"+id, t); err != nil {
		return model.Task{}, err
	}
	s.cache.put(t, id)
	s.logger.Printf("[task] created %s %q", t.ID, t.Title)
	return t, nil
}

// Update overwrites the task with in. An empty status keeps the current one;
// subtasks keep their ids where the input names them, and their done state
// unless the input sets it.
func (s *Service) Update(ctx context.Context, id string, in Input) (model.Task, error) {
	next, err := Validate(in)
	if err != nil {
		return model.Task{}, err
	}
	keepDone := map[string]bool{}
	for _, st := range in.Subtasks {
		if st.Done == nil {
			keepDone[strings.TrimSpace(st.ID)] = true
		}
	}
	return s.mutate(ctx, id, func(t *model.Task) error {
		next.ID = t.ID
		if next.Status == "" {
			next.Status = t.Status
		}
		for i, st := range next.Subtasks {
			if st.ID == "" {
				continue
			}
			j := t.SubtaskIndex(st.ID)
			if j < 0 {
				next.Subtasks[i].ID = ""
				continue
			}
			if keepDone[st.ID] {
				next.Subtasks[i].Done = t.Subtasks[j].Done
			}
		}
		next.EnsureSubtaskIDs()
		*t = next
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.ensureLoaded(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.cache.Get(id); !ok {
		return ErrNotFound
	}
	if err := s.client.Delete(ctx, s.cache.path(id)); err != nil {
		return err
	}
	s.cache.remove(id)
	s.logger.Printf("[task] deleted %s", id)
	return nil
}

// Move changes the task status. The cache is updated before the store write
// and the task is marked pending until the write returns; if the write fails
// the status is reverted and the store error returned.
func (s *Service) Move(ctx context.Context, id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, &ValidationError{Fields: map[string]string{"status": "Unknown status"}}
	}

	s.ensureLoaded(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, ok := s.cache.Get(id)
	if !ok {
		return model.Task{}, ErrNotFound
	}
	if prev.Status == status {
		return prev, nil
	}
	next := prev.Clone()
	next.Status = status

	s.cache.put(next, "")
	s.setPending(id, true)
	err := s.client.Put(ctx, s.cache.path(id), next)
	s.setPending(id, false)

	if err != nil {
		s.cache.modify(id, func(t *model.Task) {
			if t.Status == status {
				t.Status = prev.Status
			}
		})
		s.logger.Printf("[task] warning: move %s to %s rolled back: %v", id, status, err)
		return prev, fmt.Errorf("move task %s: %w", id, err)
	}
	return next, nil
}

// Pending reports whether a move of the task is still being written.
func (s *Service) Pending(id string) bool {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	return s.pending[id]
}

// PendingIDs returns a snapshot of all pending task ids.
func (s *Service) PendingIDs() map[string]bool {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	out := make(map[string]bool, len(s.pending))
	for k := range s.pending {
		out[k] = true
	}
	return out
}

func (s *Service) setPending(id string, on bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if on {
		s.pending[id] = true
	} else {
		delete(s.pending, id)
	}
}

func (s *Service) AddSubtask(ctx context.Context, id, title string) (model.Task, model.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, model.Subtask{}, &ValidationError{Fields: map[string]string{"title": "This field is required"}}
	}
	st := model.NewSubtask(title)
	t, err := s.mutate(ctx, id, func(t *model.Task) error {
		t.Subtasks = append(t.Subtasks, st)
		return nil
	})
	return t, st, err
}

func (s *Service) EditSubtask(ctx context.Context, id, subtaskID, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, &ValidationError{Fields: map[string]string{"title": "This field is required"}}
	}
	return s.mutate(ctx, id, func(t *model.Task) error {
		i := t.SubtaskIndex(subtaskID)
		if i < 0 {
			return ErrSubtaskNotFound
		}
		t.Subtasks[i].Title = title
		return nil
	})
}

func (s *Service) DeleteSubtask(ctx context.Context, id, subtaskID string) (model.Task, error) {
	return s.mutate(ctx, id, func(t *model.Task) error {
		i := t.SubtaskIndex(subtaskID)
		if i < 0 {
			return ErrSubtaskNotFound
		}
		t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
		return nil
	})
}

func (s *Service) ToggleSubtask(ctx context.Context, id, subtaskID string) (model.Task, error) {
	return s.mutate(ctx, id, func(t *model.Task) error {
		i := t.SubtaskIndex(subtaskID)
		if i < 0 {
			return ErrSubtaskNotFound
		}
		t.Subtasks[i].Done = !t.Subtasks[i].Done
		return nil
	})
}

func (s *Service) Assign(ctx context.Context, id, contactID string) (model.Task, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" || contactID == model.EmptySentinel {
		return model.Task{}, &ValidationError{Fields: map[string]string{"assignedTo": "Unknown contact"}}
	}
	return s.mutate(ctx, id, func(t *model.Task) error {
		if !t.IsAssigned(contactID) {
			t.AssignedTo = append(t.AssignedTo, contactID)
		}
		return nil
	})
}

func (s *Service) Unassign(ctx context.Context, id, contactID string) (model.Task, error) {
	return s.mutate(ctx, id, func(t *model.Task) error {
		out := t.AssignedTo[:0]
		for _, cid := range t.AssignedTo {
			if cid != contactID {
				out = append(out, cid)
			}
		}
		t.AssignedTo = out
		return nil
	})
}

// mutate applies fn to a copy of the cached task, writes the result and only
// then updates the cache.
func (s *Service) mutate(ctx context.Context, id string, fn func(t *model.Task) error) (model.Task, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.ensureLoaded(ctx)
	cur, ok := s.cache.Get(id)
	if !ok {
		return model.Task{}, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return model.Task{}, err
	}
	if err := s.client.Put(ctx, s.cache.path(id), next); err != nil {
		return model.Task{}, err
	}
	s.cache.put(next, "")
	return next, nil
}
