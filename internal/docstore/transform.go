package docstore

import (
	"fmt"
	"time"
)

// Transform is a field value that is computed from the stored document at
// write time instead of being written verbatim. Transforms run inside the
// write transaction, so concurrent writers never lose each other's changes.
type Transform interface {
	apply(current any, exists bool, now time.Time) (value any, keep bool, err error)
}

type serverTimestamp struct{}

func (serverTimestamp) apply(_ any, _ bool, now time.Time) (any, bool, error) {
	return NewTimestamp(now).String(), true, nil
}

// ServerTimestamp resolves to the store's clock at commit.
var ServerTimestamp Transform = serverTimestamp{}

type deleteField struct{}

func (deleteField) apply(any, bool, time.Time) (any, bool, error) {
	return nil, false, nil
}

// DeleteField removes the field from the document.
var DeleteField Transform = deleteField{}

type increment struct {
	by float64
}

func (t increment) apply(current any, exists bool, _ time.Time) (any, bool, error) {
	if !exists || current == nil {
		return t.by, true, nil
	}
	n, ok := current.(float64)
	if !ok {
		// A non-numeric field is replaced, matching hosted document stores.
		return t.by, true, nil
	}
	return n + t.by, true, nil
}

// Increment adds n to a numeric field, treating a missing field as zero.
func Increment[N int | int64 | float64](n N) Transform {
	return increment{by: float64(n)}
}

type arrayUnion struct {
	values []any
}

func (t arrayUnion) apply(current any, _ bool, _ time.Time) (any, bool, error) {
	arr, _ := current.([]any)
	out := make([]any, 0, len(arr)+len(t.values))
	out = append(out, arr...)
	for _, v := range t.values {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out, true, nil
}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(values ...any) Transform {
	return arrayUnion{values: values}
}

type arrayRemove struct {
	values []any
}

func (t arrayRemove) apply(current any, _ bool, _ time.Time) (any, bool, error) {
	arr, _ := current.([]any)
	out := make([]any, 0, len(arr))
	for _, e := range arr {
		if !containsValue(t.values, e) {
			out = append(out, e)
		}
	}
	return out, true, nil
}

// ArrayRemove removes every element equal to one of the values.
func ArrayRemove(values ...any) Transform {
	return arrayRemove{values: values}
}

// Update is a single field change: Path may be dotted to reach nested maps.
type Update struct {
	Path  string
	Value any
}

// prepare normalizes plain values and the operands of array transforms.
func prepare(v any) (any, error) {
	switch tv := v.(type) {
	case arrayUnion:
		vals, err := normalizeAll(tv.values)
		return arrayUnion{values: vals}, err
	case arrayRemove:
		vals, err := normalizeAll(tv.values)
		return arrayRemove{values: vals}, err
	case Transform:
		return tv, nil
	default:
		return normalizeValue(v)
	}
}

func normalizeAll(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, v := range in {
		n, err := normalizeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func prepareUpdates(updates []Update) ([]Update, error) {
	out := make([]Update, len(updates))
	for i, u := range updates {
		if err := validatePath(u.Path); err != nil {
			return nil, err
		}
		if u.Path == DocumentID {
			return nil, invalidArgument("the document id cannot be written as a field")
		}
		v, err := prepare(u.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", u.Path, err)
		}
		out[i] = Update{Path: u.Path, Value: v}
	}
	return out, nil
}

// applyUpdates writes prepared updates into data in order.
func applyUpdates(data map[string]any, updates []Update, now time.Time) error {
	for _, u := range updates {
		t, ok := u.Value.(Transform)
		if !ok {
			setPath(data, u.Path, u.Value)
			continue
		}
		current, exists := getPath(data, u.Path)
		v, keep, err := t.apply(current, exists, now)
		if err != nil {
			return fmt.Errorf("field %s: %w", u.Path, err)
		}
		if keep {
			setPath(data, u.Path, v)
		} else {
			deletePath(data, u.Path)
		}
	}
	return nil
}

// updatesFromMap turns a field map into updates with deterministic order.
func updatesFromMap(fields map[string]any) []Update {
	keys := sortedKeys(fields)
	out := make([]Update, 0, len(keys))
	for _, k := range keys {
		out = append(out, Update{Path: k, Value: fields[k]})
	}
	return out
}
