package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// EmptySentinel stands in for an empty list. The document store drops empty
// arrays, so an empty list is written as a single-element array holding it.
const EmptySentinel = "_empty"

var sentinelJSON = []byte(`["` + EmptySentinel + `"]`)

// IDList is a list of ids that round-trips through the sentinel encoding.
type IDList []string

func (l IDList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return sentinelJSON, nil
	}
	return json.Marshal([]string(l))
}

func (l *IDList) UnmarshalJSON(b []byte) error {
	items, err := decodeListItems(b)
	if err != nil {
		return err
	}
	out := IDList{}
	for _, raw := range items {
		var id ID
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		if id == "" || id == EmptySentinel {
			continue
		}
		out = append(out, string(id))
	}
	*l = out
	return nil
}

// SubtaskList is a list of subtasks that round-trips through the sentinel
// encoding.
type SubtaskList []Subtask

func (l SubtaskList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return sentinelJSON, nil
	}
	return json.Marshal([]Subtask(l))
}

func (l *SubtaskList) UnmarshalJSON(b []byte) error {
	items, err := decodeListItems(b)
	if err != nil {
		return err
	}
	out := SubtaskList{}
	for _, raw := range items {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			// the sentinel, or a bare title from very old records
			if s != "" && s != EmptySentinel {
				out = append(out, Subtask{Title: s})
			}
			continue
		}
		var st Subtask
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		out = append(out, st)
	}
	*l = out
	return nil
}

// decodeListItems accepts a JSON array, null, or an object with numeric keys
// (how the store returns sparse arrays). Null items are skipped.
func decodeListItems(b []byte) ([]json.RawMessage, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	if b[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ni, ei := strconv.Atoi(keys[i])
			nj, ej := strconv.Atoi(keys[j])
			if ei == nil && ej == nil {
				return ni < nj
			}
			return keys[i] < keys[j]
		})
		out := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			if isNull(obj[k]) {
				continue
			}
			out = append(out, obj[k])
		}
		return out, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return nil, err
	}
	out := arr[:0]
	for _, raw := range arr {
		if isNull(raw) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
