package backup

import "time"

// RestoreOptions configures restoration.
type RestoreOptions struct {
	// Overwrite replaces documents that already exist. Without it they are
	// skipped and counted.
	Overwrite bool
	// DryRun reads and validates every record without writing.
	DryRun bool
}

// Result contains the outcome of a backup operation.
type Result struct {
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Counts   map[string]int `json:"counts"`
	Duration time.Duration  `json:"duration"`
	Checksum string         `json:"checksum"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult reports whether an archive can be restored.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Manifest *Manifest `json:"manifest,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}
