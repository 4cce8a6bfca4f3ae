package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// collections is implemented by drivers that keep one document per
// top-level collection ("tasks", "contacts", ...).
type collections interface {
	load(ctx context.Context, name string) ([]byte, error)
	modify(ctx context.Context, name string, fn UpdateFunc) error
	names(ctx context.Context) ([]string, error)
	close() error
}

// docBackend implements path addressing on top of per-collection documents.
type docBackend struct {
	docs collections
}

func (b *docBackend) Read(ctx context.Context, path string) ([]byte, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return b.readRoot(ctx)
	}
	body, err := b.docs.load(ctx, segs[0])
	if err != nil || body == nil {
		return nil, err
	}
	v, err := decodeValue(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", segs[0], err)
	}
	node, ok := getNode(v, segs[1:])
	if !ok {
		return nil, nil
	}
	return json.Marshal(node)
}

func (b *docBackend) readRoot(ctx context.Context) ([]byte, error) {
	names, err := b.docs.names(ctx)
	if err != nil {
		return nil, err
	}
	root := map[string]any{}
	for _, name := range names {
		body, err := b.docs.load(ctx, name)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if v != nil {
			root[name] = v
		}
	}
	return encodeValue(root)
}

func (b *docBackend) Write(ctx context.Context, path string, body []byte) error {
	val, err := decodeValue(body)
	if err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return b.writeRoot(ctx, val)
	}
	return b.docs.modify(ctx, segs[0], func(cur []byte) ([]byte, error) {
		curVal, err := decodeValue(cur)
		if err != nil {
			return nil, err
		}
		return encodeValue(setNode(curVal, segs[1:], val))
	})
}

func (b *docBackend) writeRoot(ctx context.Context, val any) error {
	if val != nil {
		if _, ok := val.(map[string]any); !ok {
			return errors.New("root node must be an object")
		}
	}
	names, err := b.docs.names(ctx)
	if err != nil {
		return err
	}
	incoming := asObject(val)
	for _, name := range names {
		if _, keep := incoming[name]; keep {
			continue
		}
		if err := b.docs.modify(ctx, name, func([]byte) ([]byte, error) { return nil, nil }); err != nil {
			return err
		}
	}
	for name, child := range incoming {
		body, err := encodeValue(child)
		if err != nil {
			return err
		}
		if err := b.docs.modify(ctx, name, func([]byte) ([]byte, error) { return body, nil }); err != nil {
			return err
		}
	}
	return nil
}

func (b *docBackend) Remove(ctx context.Context, path string) error {
	return b.Write(ctx, path, nil)
}

func (b *docBackend) Update(ctx context.Context, path string, fn UpdateFunc) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return errors.New("update requires a non-root path")
	}
	return b.docs.modify(ctx, segs[0], func(cur []byte) ([]byte, error) {
		curVal, err := decodeValue(cur)
		if err != nil {
			return nil, err
		}
		var nodeBody []byte
		if node, ok := getNode(curVal, segs[1:]); ok {
			if nodeBody, err = json.Marshal(node); err != nil {
				return nil, err
			}
		}
		next, err := fn(nodeBody)
		if err != nil {
			return nil, err
		}
		nextVal, err := decodeValue(next)
		if err != nil {
			return nil, err
		}
		return encodeValue(setNode(curVal, segs[1:], nextVal))
	})
}

func (b *docBackend) Close() error {
	return b.docs.close()
}
