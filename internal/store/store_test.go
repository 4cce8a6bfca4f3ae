package store

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the shared node semantics against any driver.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	got, err := b.Read(ctx, "tasks/0")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.Write(ctx, "tasks/0", []byte(`{"id":"0","title":"A"}`)))
	require.NoError(t, b.Write(ctx, "tasks/1", []byte(`{"id":"1","title":"B"}`)))

	got, err = b.Read(ctx, "tasks/1/title")
	require.NoError(t, err)
	assert.JSONEq(t, `"B"`, string(got))

	got, err = b.Read(ctx, "tasks")
	require.NoError(t, err)
	entries, err := DecodeCollection[map[string]any](got)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "0", entries[0].Key)
	assert.Equal(t, "B", entries[1].Value["title"])

	// writing an empty array removes the node
	require.NoError(t, b.Write(ctx, "tasks/0/assignedTo", []byte(`[]`)))
	got, err = b.Read(ctx, "tasks/0/assignedTo")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.Remove(ctx, "tasks/0"))
	got, err = b.Read(ctx, "tasks/0")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.Update(ctx, "meta/taskCounter", func(cur []byte) ([]byte, error) {
		assert.Nil(t, cur)
		return []byte(`5`), nil
	}))
	require.NoError(t, b.Update(ctx, "meta/taskCounter", func(cur []byte) ([]byte, error) {
		assert.Equal(t, "5", string(cur))
		return []byte(`6`), nil
	}))
	got, err = b.Read(ctx, "meta/taskCounter")
	require.NoError(t, err)
	assert.Equal(t, "6", string(got))

	root, err := b.Read(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, string(root), `"taskCounter":6`)

	boom := errors.New("boom")
	err = b.Update(ctx, "meta/taskCounter", func([]byte) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	exerciseBackend(t, b)
	require.NoError(t, b.Close())

	reopened, err := NewFileBackend(dir)
	require.NoError(t, err)
	got, err := reopened.Read(context.Background(), "tasks/1/title")
	require.NoError(t, err)
	assert.JSONEq(t, `"B"`, string(got))
	assert.FileExists(t, filepath.Join(dir, "store.json"))
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "join.db")
	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}

func TestDocBackend_WriteRootReplacesEverything(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Write(ctx, "contacts/a", []byte(`{"firstName":"Ann"}`)))
	require.NoError(t, b.Write(ctx, "", []byte(`{"tasks":{"0":{"title":"x"}}}`)))

	got, err := b.Read(ctx, "contacts")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = b.Read(ctx, "tasks/0/title")
	require.NoError(t, err)
	assert.JSONEq(t, `"x"`, string(got))
}

func TestDecodeCollection_ArrayWithHoles(t *testing.T) {
	entries, err := DecodeCollection[string]([]byte(`[null,"a",null,"b"]`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry[string]{Key: "1", Value: "a"}, entries[0])
	assert.Equal(t, Entry[string]{Key: "3", Value: "b"}, entries[1])
}

func TestDecodeCollection_ObjectKeysSortNumerically(t *testing.T) {
	entries, err := DecodeCollection[int]([]byte(`{"10":10,"2":2,"x":0,"1":1}`))
	require.NoError(t, err)
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"1", "2", "10", "x"}, keys)

	entries, err = DecodeCollection[int]([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_GetSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(&failingBackend{err: errors.New("offline")}, log.New(&buf, "", 0))

	var out map[string]any
	assert.False(t, c.Get(context.Background(), "tasks", &out))
	assert.Contains(t, buf.String(), "[store] warning")

	err := c.Put(context.Background(), "tasks/0", map[string]string{"a": "b"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "store put tasks/0"))
}

type failingBackend struct{ err error }

func (f *failingBackend) Read(context.Context, string) ([]byte, error)     { return nil, f.err }
func (f *failingBackend) Write(context.Context, string, []byte) error      { return f.err }
func (f *failingBackend) Remove(context.Context, string) error             { return f.err }
func (f *failingBackend) Update(context.Context, string, UpdateFunc) error { return f.err }
func (f *failingBackend) Close() error                                     { return nil }
