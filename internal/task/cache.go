package task

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"join/internal/model"
	"join/internal/store"
)

const collectionPath = "tasks"

// Cache holds the last snapshot of the tasks collection together with the
// store key of each task (legacy records are keyed by array index, not id).
type Cache struct {
	client *store.Client
	logger *log.Logger

	mu     sync.RWMutex
	tasks  []model.Task
	keys   map[string]string
	loaded bool

	sf singleflight.Group
}

func NewCache(client *store.Client, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{client: client, logger: logger, keys: map[string]string{}}
}

// LoadAll refreshes the snapshot from the store. Concurrent callers share one
// fetch. On failure the previous snapshot is kept and the error returned.
func (c *Cache) LoadAll(ctx context.Context) ([]model.Task, error) {
	_, err, _ := c.sf.Do(collectionPath, func() (any, error) {
		return nil, c.load(ctx)
	})
	return c.List(), err
}

func (c *Cache) load(ctx context.Context) error {
	b, err := c.client.Raw(ctx, collectionPath)
	if err != nil {
		c.logger.Printf("[task] warning: load tasks: %v", err)
		return fmt.Errorf("load tasks: %w", err)
	}
	entries, err := store.DecodeCollection[json.RawMessage](b)
	if err != nil {
		c.logger.Printf("[task] warning: decode tasks: %v", err)
		return fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(entries))
	keys := make(map[string]string, len(entries))
	var migrated []model.Task
	for _, e := range entries {
		var t model.Task
		if err := json.Unmarshal(e.Value, &t); err != nil {
			c.logger.Printf("[task] warning: skip tasks/%s: %v", e.Key, err)
			continue
		}
		if t.ID == "" {
			t.ID = e.Key
		}
		if t.Status == "" {
			t.Status = model.StatusToDo
		}
		if t.EnsureSubtaskIDs() {
			migrated = append(migrated, t)
		}
		tasks = append(tasks, t)
		keys[t.ID] = e.Key
	}

	c.mu.Lock()
	c.tasks = tasks
	c.keys = keys
	c.loaded = true
	c.mu.Unlock()

	// Persist freshly assigned subtask ids so they survive the next load.
	for _, t := range migrated {
		if err := c.client.Put(ctx, collectionPath+"/"+keys[t.ID], t); err != nil {
			c.logger.Printf("[task] warning: migrate subtask ids for %s: %v", t.ID, err)
		}
	}
	return nil
}

// Loaded reports whether at least one load succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// List returns copies of the cached tasks in store order.
func (c *Cache) List() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Task, len(c.tasks))
	for i, t := range c.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (c *Cache) Get(id string) (model.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		return model.Task{}, false
	}
	return c.tasks[i].Clone(), true
}

// Key returns the store key holding task id.
func (c *Cache) Key(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[id]
	return k, ok
}

// Occupied reports whether id is already used as a task id or as the store
// key of another task.
func (c *Cache) Occupied(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.keys[id]; ok {
		return true
	}
	for _, k := range c.keys {
		if k == id {
			return true
		}
	}
	return false
}

func (c *Cache) path(id string) string {
	if k, ok := c.Key(id); ok {
		return collectionPath + "/" + k
	}
	return collectionPath + "/" + id
}

func (c *Cache) indexLocked(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// put inserts or replaces a task. An empty key keeps the known key, falling
// back to the id.
func (c *Cache) put(t model.Task, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		if k, ok := c.keys[t.ID]; ok {
			key = k
		} else {
			key = t.ID
		}
	}
	c.keys[t.ID] = key
	if i := c.indexLocked(t.ID); i >= 0 {
		c.tasks[i] = t.Clone()
		return
	}
	c.tasks = append(c.tasks, t.Clone())
}

func (c *Cache) modify(id string, fn func(t *model.Task)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		fn(&c.tasks[i])
	}
}

func (c *Cache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
	}
	delete(c.keys, id)
}
