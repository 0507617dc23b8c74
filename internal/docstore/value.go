package docstore

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Values inside a document are plain JSON values after normalization:
// nil, bool, float64, string, []any and map[string]any.

// typeClass orders values of different kinds the way the query engine sorts
// mixed-type fields.
type typeClass int

const (
	classNull typeClass = iota
	classBool
	classNumber
	classString
	classArray
	classMap
)

func classOf(v any) typeClass {
	switch v.(type) {
	case nil:
		return classNull
	case bool:
		return classBool
	case float64:
		return classNumber
	case string:
		return classString
	case []any:
		return classArray
	default:
		return classMap
	}
}

// normalizeValue converts an arbitrary Go value to its JSON value form.
func normalizeValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil, bool, float64, string:
		return tv, nil
	case int:
		return float64(tv), nil
	case int64:
		return float64(tv), nil
	case Timestamp:
		if tv.IsZero() {
			return nil, nil
		}
		return tv.String(), nil
	case time.Time:
		if tv.IsZero() {
			return nil, nil
		}
		return NewTimestamp(tv).String(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// compareValues orders two normalized values. Values of different classes
// order by class.
func compareValues(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		return strings.Compare(av, b.(string))
	case []any:
		bv := b.([]any)
		for i := 0; i < len(av) && i < len(bv); i++ {
			if c := compareValues(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(av), len(bv))
	default:
		// Maps order by their canonical encoding; goccy sorts map keys.
		ab, _ := json.Marshal(a)
		bb, _ := json.Marshal(b)
		return bytes.Compare(ab, bb)
	}
}

func equalValues(a, b any) bool {
	return classOf(a) == classOf(b) && compareValues(a, b) == 0
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

// getPath resolves a dotted field path. The second result is false when any
// segment is missing.
func getPath(data map[string]any, path string) (any, bool) {
	cur := any(data)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes v at a dotted path, creating intermediate maps.
func setPath(data map[string]any, path string, v any) {
	segs := strings.Split(path, ".")
	m := data
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = v
}

func deletePath(data map[string]any, path string) {
	segs := strings.Split(path, ".")
	m := data
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, segs[len(segs)-1])
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
