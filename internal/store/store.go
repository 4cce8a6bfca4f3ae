// Package store is the client for the JSON document store that holds tasks,
// contacts and users. Nodes are addressed by slash paths and always written
// whole.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

var (
	// ErrConflict is returned when an atomic update kept losing races.
	ErrConflict = errors.New("store: concurrent update conflict")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// StatusError is a non-2xx answer from the remote store.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store: %s %s: status %d: %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

// UpdateFunc receives the current node body (nil when absent) and returns
// the replacement (nil deletes the node).
type UpdateFunc func(cur []byte) ([]byte, error)

// Backend is a document store driver.
type Backend interface {
	// Read returns the node body, or nil when the node does not exist.
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, body []byte) error
	Remove(ctx context.Context, path string) error
	// Update atomically replaces one node.
	Update(ctx context.Context, path string, fn UpdateFunc) error
	Close() error
}

// Client wraps a Backend with the read/write contract the services rely on:
// reads never fail loudly, writes always do.
type Client struct {
	backend Backend
	logger  *log.Logger
}

func NewClient(backend Backend, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{backend: backend, logger: logger}
}

func (c *Client) Backend() Backend {
	return c.backend
}

// Get decodes the node at path into out. It reports false when the node is
// absent or when reading/decoding failed; failures are logged as warnings.
func (c *Client) Get(ctx context.Context, path string, out any) bool {
	b, err := c.backend.Read(ctx, path)
	if err != nil {
		c.logger.Printf("[store] warning: get %s: %v", path, err)
		return false
	}
	if b == nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.logger.Printf("[store] warning: decode %s: %v", path, err)
		return false
	}
	return true
}

// Raw reads the node at path without swallowing errors.
func (c *Client) Raw(ctx context.Context, path string) ([]byte, error) {
	return c.backend.Read(ctx, path)
}

// Put replaces the node at path with v.
func (c *Client) Put(ctx context.Context, path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store put %s: %w", path, err)
	}
	if err := c.backend.Write(ctx, path, b); err != nil {
		return fmt.Errorf("store put %s: %w", path, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.backend.Remove(ctx, path); err != nil {
		return fmt.Errorf("store delete %s: %w", path, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, path string, fn UpdateFunc) error {
	if err := c.backend.Update(ctx, path, fn); err != nil {
		return fmt.Errorf("store update %s: %w", path, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.backend.Close()
}
