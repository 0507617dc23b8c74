package docstore

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is fixed width (always nine fractional digits) so the
// encoded form sorts lexicographically in chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp is the store-native time value. It encodes as a fixed-width UTC
// string, which lets range filters and orderings on time fields work with
// plain string comparison.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, truncating to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// String returns the encoded form.
func (t Timestamp) String() string {
	return t.UTC().Format(timestampLayout)
}

// MarshalJSON implements json.Marshaler. The zero time encodes as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. RFC 3339 input is accepted too.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp decodes an encoded timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if v, err := time.Parse(timestampLayout, s); err == nil {
		return NewTimestamp(v), nil
	}
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return NewTimestamp(v), nil
}
