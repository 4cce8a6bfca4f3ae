package ops

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"join/internal/config"
	"join/internal/contact"
	"join/internal/model"
	"join/internal/palette"
	"join/internal/store"
	"join/internal/task"
)

func TestExport_EmptyStore(t *testing.T) {
	client := store.NewClient(store.NewMemoryBackend(), nil)
	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), client, &buf))
	assert.Equal(t, "{}\n", buf.String())
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := store.NewClient(store.NewMemoryBackend(), nil)
	require.NoError(t, src.Put(ctx, "tasks/0", map[string]any{"title": "Kochwelt Page", "status": "to-do"}))
	require.NoError(t, src.Put(ctx, "meta/taskCounter", 1))

	var buf bytes.Buffer
	require.NoError(t, Export(ctx, src, &buf))
	assert.Contains(t, buf.String(), `"taskCounter": 1`)

	dst := store.NewClient(store.NewMemoryBackend(), nil)
	require.NoError(t, dst.Put(ctx, "contacts/c1", map[string]any{"firstName": "Anja"}))

	names, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"meta", "tasks"}, names)

	var title string
	assert.True(t, dst.Get(ctx, "tasks/0/title", &title))
	assert.Equal(t, "Kochwelt Page", title)
	// untouched collections survive a partial import
	assert.True(t, dst.Get(ctx, "contacts/c1/firstName", &title))

	_, err = Import(ctx, dst, bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)
	raw, err := dst.Raw(ctx, "contacts")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestImport_RejectsUnknownCollections(t *testing.T) {
	client := store.NewClient(store.NewMemoryBackend(), nil)
	_, err := Import(context.Background(), client, strings.NewReader(`{"boards":{}}`), false)
	assert.ErrorContains(t, err, "unknown collection")
}

func TestSeed_FillsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	client := store.NewClient(store.NewMemoryBackend(), nil)
	contacts, err := contact.NewService(client, palette.New(config.DefaultColors), nil)
	require.NoError(t, err)
	tasks := task.NewService(client, nil)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	res, err := Seed(ctx, contacts, tasks, now, false)
	require.NoError(t, err)
	assert.Equal(t, len(demoContacts), res.Contacts)
	assert.Equal(t, len(demoTasks), res.Tasks)

	all := tasks.Tasks(ctx)
	require.Len(t, all, len(demoTasks))
	byStatus := map[model.Status]int{}
	for _, tk := range all {
		byStatus[tk.Status]++
		for _, id := range tk.AssignedTo {
			_, err := contacts.Get(ctx, id)
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 2, byStatus[model.StatusAwaitFeedback])

	again, err := Seed(ctx, contacts, tasks, now, false)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
}
