package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"join/internal/store"
)

// Collections lists the top-level nodes the app owns.
var Collections = []string{"tasks", "contacts", "users", "meta"}

// Export writes the whole document tree as indented JSON. An empty store
// exports as {}.
func Export(ctx context.Context, client *store.Client, w io.Writer) error {
	raw, err := client.Raw(ctx, "")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = []byte("{}")
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}

// Import reads a document written by Export. Each collection in the input
// replaces the stored one; with replaceAll the whole tree is replaced, so
// collections missing from the input are removed. It returns the imported
// collection names.
func Import(ctx context.Context, client *store.Client, r io.Reader, replaceAll bool) ([]string, error) {
	var doc map[string]json.RawMessage
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("import: decode: %w", err)
	}

	known := map[string]bool{}
	for _, c := range Collections {
		known[c] = true
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		if !known[name] {
			return nil, fmt.Errorf("import: unknown collection %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if replaceAll {
		if err := client.Put(ctx, "", doc); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		return names, nil
	}
	for _, name := range names {
		if err := client.Put(ctx, name, doc[name]); err != nil {
			return nil, fmt.Errorf("import %s: %w", name, err)
		}
	}
	return names, nil
}
