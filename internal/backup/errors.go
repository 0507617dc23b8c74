// Package backup exports the document store to a zip archive and restores
// it. Each collection is one JSONL file; a manifest records counts and the
// format version.
package backup

import "errors"

var (
	// ErrInvalidManifest indicates the manifest is missing or malformed.
	ErrInvalidManifest = errors.New("invalid or missing manifest")

	// ErrVersionMismatch indicates the backup version is not supported.
	ErrVersionMismatch = errors.New("backup version not supported")
)
