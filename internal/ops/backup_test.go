package ops

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestBackupRestoreDataDir_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	files := map[string]string{
		"store.json":         `{"tasks":{"0":{"title":"Kochwelt Page"}},"meta":{"taskCounter":1}}`,
		"auth/sessions.json": `{"sessions":{}}`,
	}
	writeTree(t, src, files)

	archive := filepath.Join(t.TempDir(), "backups", "join.tar.gz")
	n, err := BackupDataDir(src, archive)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	restoreDir := filepath.Join(t.TempDir(), "restore")
	n, err = RestoreDataDir(archive, restoreDir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, files, readTree(t, restoreDir))

	a, err := DirDigest(src)
	require.NoError(t, err)
	b, err := DirDigest(restoreDir)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRestoreDataDir_RefusesNonEmptyTarget(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeTree(t, src, map[string]string{"store.json": `{}`})
	archive := filepath.Join(t.TempDir(), "b.tar.gz")
	_, err := BackupDataDir(src, archive)
	require.NoError(t, err)

	target := t.TempDir()
	writeTree(t, target, map[string]string{"keep.txt": "x"})

	_, err = RestoreDataDir(archive, target, false)
	assert.ErrorIs(t, err, ErrTargetNotEmpty)

	_, err = RestoreDataDir(archive, target, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keep.txt": "x", "store.json": `{}`}, readTree(t, target))
}

func TestRestoreDataDir_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("bad")),
	}))
	_, err = tw.Write([]byte("bad"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	_, err = RestoreDataDir(archive, filepath.Join(t.TempDir(), "out"), false)
	assert.Error(t, err)
}

func TestDirDigest_DetectsChanges(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.json": "1"})
	before, err := DirDigest(root)
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.json": "2"})
	after, err := DirDigest(root)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
