package store

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Entry is one child of a collection node.
type Entry[T any] struct {
	Key   string
	Value T
}

// DecodeCollection decodes a collection node. The store returns collections
// with sequential numeric keys as JSON arrays (holes are null) and everything
// else as objects. Null children are skipped. Entries come back sorted by
// key, numerically where both keys are numbers.
func DecodeCollection[T any](b []byte) ([]Entry[T], error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}

	raw := map[string]json.RawMessage{}
	if b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return nil, err
		}
		for i, item := range arr {
			raw[strconv.Itoa(i)] = item
		}
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		if len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })

	out := make([]Entry[T], 0, len(keys))
	for _, k := range keys {
		var v T
		if err := json.Unmarshal(raw[k], &v); err != nil {
			return nil, err
		}
		out = append(out, Entry[T]{Key: k, Value: v})
	}
	return out, nil
}

func keyLess(a, b string) bool {
	na, ea := strconv.Atoi(a)
	nb, eb := strconv.Atoi(b)
	switch {
	case ea == nil && eb == nil:
		return na < nb
	case ea == nil:
		return true
	case eb == nil:
		return false
	default:
		return a < b
	}
}
