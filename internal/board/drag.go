// Package board serves the Kanban board: columns, drag and drop between
// them, and the add/edit task overlays.
package board

import (
	"context"
	"errors"
	"sync"

	"join/internal/model"
)

var ErrNoDrag = errors.New("no task is being dragged")

// Mover persists a status change.
type Mover interface {
	Move(ctx context.Context, id string, status model.Status) (model.Task, error)
}

// DragState remembers, per session, which task is currently being dragged.
type DragState struct {
	mover Mover

	mu       sync.Mutex
	dragging map[string]string
}

func NewDragState(mover Mover) *DragState {
	return &DragState{mover: mover, dragging: map[string]string{}}
}

// Start records taskID as dragged. A second Start replaces the first.
func (d *DragState) Start(session, taskID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragging[session] = taskID
}

func (d *DragState) Current(session string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.dragging[session]
	return id, ok
}

func (d *DragState) Cancel(session string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.dragging, session)
}

// Drop consumes the dragged task of the session and moves it to status.
func (d *DragState) Drop(ctx context.Context, session string, status model.Status) (model.Task, error) {
	d.mu.Lock()
	id, ok := d.dragging[session]
	delete(d.dragging, session)
	d.mu.Unlock()

	if !ok {
		return model.Task{}, ErrNoDrag
	}
	return d.mover.Move(ctx, id, status)
}
