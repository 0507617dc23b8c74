package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/askhub/askhub-server/internal/backup/stream"
	"github.com/askhub/askhub-server/internal/docstore"
)

// Validate checks an archive without importing it.
func (s *Service) Validate(path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	return validate(&zr.Reader), nil
}

func validate(zr *zip.Reader) *ValidationResult {
	result := &ValidationResult{Valid: true}

	manifest, err := readManifest(zr)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Manifest = manifest

	for _, coll := range Collections {
		if _, ok := manifest.Counts[coll]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("manifest has no count for %s", coll))
		}
		rc, err := stream.OpenFile(zr, collectionFile(coll))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("missing file: %s", collectionFile(coll)))
			continue
		}
		_ = rc.Close()
	}
	return result
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	rc, err := stream.OpenFile(zr, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrInvalidManifest, manifestFile)
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrVersionMismatch, manifest.Version, FormatVersion)
	}
	return &manifest, nil
}

// Restore imports an archive into the store. Records that fail to decode
// or write are reported in the result and do not stop the restore; an
// unreadable archive or manifest does.
func (s *Service) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()
	s.logger.Info("starting restore", "path", path, "overwrite", opts.Overwrite, "dry_run", opts.DryRun)

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		Imported: make(map[string]int, len(Collections)),
		Skipped:  make(map[string]int, len(Collections)),
	}
	for _, coll := range Collections {
		if err := s.restoreCollection(ctx, &zr.Reader, coll, opts, result); err != nil {
			return nil, fmt.Errorf("restore %s: %w", coll, err)
		}
		if want := manifest.Counts[coll]; result.Imported[coll]+result.Skipped[coll] != want {
			s.logger.Warn("restored count differs from manifest",
				"collection", coll,
				"manifest", want,
				"imported", result.Imported[coll],
				"skipped", result.Skipped[coll],
			)
		}
	}
	result.Duration = time.Since(start)

	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) restoreCollection(ctx context.Context, zr *zip.Reader, coll string, opts RestoreOptions, result *RestoreResult) error {
	rc, err := stream.OpenFile(zr, collectionFile(coll))
	if errors.Is(err, stream.ErrFileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for rec, err := range stream.NewReader[Record](rc).All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			result.Errors = append(result.Errors, RestoreError{Collection: coll, Error: err.Error()})
			continue
		}
		if rec.ID == "" {
			result.Errors = append(result.Errors, RestoreError{Collection: coll, Error: "record has no id"})
			continue
		}
		if opts.DryRun {
			result.Imported[coll]++
			continue
		}

		if opts.Overwrite {
			_, err = s.db.Set(ctx, coll, rec.ID, rec.Data, false)
		} else {
			_, err = s.db.Create(ctx, coll, rec.ID, rec.Data)
		}
		switch {
		case errors.Is(err, docstore.ErrAlreadyExists):
			result.Skipped[coll]++
		case err != nil:
			result.Errors = append(result.Errors, RestoreError{Collection: coll, ID: rec.ID, Error: err.Error()})
		default:
			result.Imported[coll]++
		}
	}
	return nil
}
