package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// fileDocs keeps the whole tree in memory and rewrites store.json after every
// change. The file layout matches a store export: {"tasks": {...}, ...}.
type fileDocs struct {
	*memoryDocs
	path string
}

func NewFileBackend(dataDir string) (Backend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	fd := &fileDocs{
		memoryDocs: newMemoryDocs(),
		path:       filepath.Join(dataDir, "store.json"),
	}
	if err := fd.loadFile(); err != nil {
		return nil, err
	}
	return &docBackend{docs: fd}, nil
}

func (f *fileDocs) loadFile() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var loaded map[string]json.RawMessage
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	for name, body := range loaded {
		v, err := decodeValue(body)
		if err != nil {
			return err
		}
		enc, err := encodeValue(v)
		if err != nil {
			return err
		}
		if enc != nil {
			f.docs[name] = enc
		}
	}
	return nil
}

func (f *fileDocs) saveLocked() error {
	out := make(map[string]json.RawMessage, len(f.docs))
	for name, body := range f.docs {
		out[name] = body
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o644)
}

func (f *fileDocs) modify(_ context.Context, name string, fn UpdateFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.modifyLocked(name, fn); err != nil {
		return err
	}
	return f.saveLocked()
}
