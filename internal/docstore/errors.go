package docstore

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrIndexRequired   = errors.New("query requires a composite index")
	ErrClosed          = errors.New("store closed")
)

// IndexRequiredError names the composite index a rejected query needs.
type IndexRequiredError struct {
	Index IndexDef
}

func (e *IndexRequiredError) Error() string {
	return fmt.Sprintf("%s: declare %s", ErrIndexRequired, e.Index)
}

// Unwrap lets errors.Is match ErrIndexRequired.
func (e *IndexRequiredError) Unwrap() error { return ErrIndexRequired }

func invalidQuery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

const maxIDLength = 1500

func validateCollection(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return invalidArgument("bad collection name %q", name)
	}
	return nil
}

func validateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return invalidArgument("bad document id %q", id)
	case len(id) > maxIDLength:
		return invalidArgument("document id longer than %d bytes", maxIDLength)
	case strings.Contains(id, "/"):
		return invalidArgument("document id %q contains '/'", id)
	case strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
		return invalidArgument("document id %q is reserved", id)
	}
	return nil
}

func validatePath(path string) error {
	if path == DocumentID {
		return nil
	}
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return invalidArgument("bad field path %q", path)
	}
	return nil
}
