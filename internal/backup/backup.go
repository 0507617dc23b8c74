package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/askhub/askhub-server/internal/backup/stream"
	"github.com/askhub/askhub-server/internal/docstore"
)

// Service creates, validates and restores backups of one store.
type Service struct {
	db      *docstore.DB
	version string
	logger  *slog.Logger
}

// NewService creates a backup Service. version is recorded in manifests.
func NewService(db *docstore.DB, version string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{db: db, version: version, logger: logger}
}

// DefaultPath names a timestamped archive inside dir.
func DefaultPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("backup-%s.askhub.zip", now.UTC().Format("2006-01-02-150405")))
}

// Create writes every collection to a zip archive at path. The archive is
// written to a temporary file and renamed into place on success.
func (s *Service) Create(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath) //#nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     time.Now().UTC(),
		ServerVersion: s.version,
		Counts:        make(map[string]int, len(Collections)),
	}

	for _, coll := range Collections {
		n, err := s.exportCollection(ctx, zw, coll)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", coll, err)
		}
		manifest.Counts[coll] = n
	}

	mw, err := zw.Create(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync backup: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	result := &Result{
		Path:     path,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}
	s.logger.Info("backup created",
		"path", path,
		"size", result.Size,
		"counts", result.Counts,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) exportCollection(ctx context.Context, zw *zip.Writer, coll string) (int, error) {
	w, err := stream.NewWriter(zw, collectionFile(coll))
	if err != nil {
		return 0, err
	}
	for doc, err := range s.db.Scan(ctx, coll) {
		if err != nil {
			return w.Count(), err
		}
		if err := w.Write(Record{ID: doc.ID, Data: doc.Data}); err != nil {
			return w.Count(), err
		}
	}
	return w.Count(), nil
}
