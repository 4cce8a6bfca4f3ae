package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"join/internal/model"
	"join/internal/store"
)

const counterPath = "meta/taskCounter"

// NextID returns one more than the largest numeric task id, or "0" when there
// is none. Non-numeric ids are ignored.
func NextID(tasks []model.Task) string {
	next := int64(0)
	for _, t := range tasks {
		n, err := strconv.ParseInt(strings.TrimSpace(t.ID), 10, 64)
		if err != nil || n < 0 {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return strconv.FormatInt(next, 10)
}

// Allocator hands out task ids from a counter node updated atomically in the
// store, so concurrent creators never get the same id.
type Allocator struct {
	client *store.Client
	cache  *Cache
}

func NewAllocator(client *store.Client, cache *Cache) *Allocator {
	return &Allocator{client: client, cache: cache}
}

func (a *Allocator) Next(ctx context.Context) (string, error) {
	floor, _ := strconv.ParseInt(NextID(a.cache.List()), 10, 64)

	var id int64
	err := a.client.Update(ctx, counterPath, func(cur []byte) ([]byte, error) {
		n := floor
		if cur != nil {
			var stored int64
			if err := json.Unmarshal(cur, &stored); err != nil {
				return nil, fmt.Errorf("bad task counter %q: %w", cur, err)
			}
			// tasks imported behind the counter's back must not be reused
			n = max(stored, floor)
		}
		id = n
		return []byte(strconv.FormatInt(n+1, 10)), nil
	})
	if err != nil {
		return "", fmt.Errorf("allocate task id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
