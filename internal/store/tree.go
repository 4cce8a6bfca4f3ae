package store

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// splitPath turns "tasks/12/" into ["tasks", "12"].
func splitPath(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinPath(segs ...string) string {
	return strings.Join(segs, "/")
}

// decodeValue parses a node body. Empty input and "null" decode to nil.
func decodeValue(b []byte) (any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeValue is the inverse of decodeValue. A nil (or pruned away) value
// encodes to nil bytes.
func encodeValue(v any) ([]byte, error) {
	v, ok := prune(v)
	if !ok {
		return nil, nil
	}
	return json.Marshal(v)
}

// prune drops nulls, empty arrays and empty objects the way the remote store
// does. The bool is false when nothing is left.
func prune(v any) (any, bool) {
	switch n := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		for k, child := range n {
			c, ok := prune(child)
			if !ok {
				delete(n, k)
				continue
			}
			n[k] = c
		}
		return n, len(n) > 0
	case []any:
		keep := false
		for i, child := range n {
			c, ok := prune(child)
			if ok {
				keep = true
			}
			n[i] = c
		}
		return n, keep
	default:
		return v, true
	}
}

func getNode(root any, segs []string) (any, bool) {
	cur := root
	for _, s := range segs {
		switch n := cur.(type) {
		case map[string]any:
			next, ok := n[s]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			cur = n[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// asObject converts an array node into an object keyed by index, which is
// how the store treats arrays once a child is addressed by path.
func asObject(v any) map[string]any {
	switch n := v.(type) {
	case map[string]any:
		return n
	case []any:
		out := make(map[string]any, len(n))
		for i, child := range n {
			if child != nil {
				out[strconv.Itoa(i)] = child
			}
		}
		return out
	default:
		return map[string]any{}
	}
}

// setNode returns root with the node at segs replaced by v. A nil v removes
// the node.
func setNode(root any, segs []string, v any) any {
	if len(segs) == 0 {
		return v
	}
	obj := asObject(root)
	child := setNode(obj[segs[0]], segs[1:], v)
	if child == nil {
		delete(obj, segs[0])
	} else {
		obj[segs[0]] = child
	}
	return obj
}
