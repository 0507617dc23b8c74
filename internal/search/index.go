package search

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/askhub/askhub-server/internal/domain"
)

// Index wraps a Bleve index of questions.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type Index struct {
	index   bleve.Index
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex // Protects index operations during rebuild
	created bool

	fillCancel context.CancelFunc
	fillDone   chan struct{}
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

const indexBatchSize = 500

// NewIndex creates or opens a search index.
// If the existing index is corrupted or has an outdated mapping, it's removed
// and recreated empty; Created then reports true so the caller can refill it.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "questions.bleve")
	versionPath := filepath.Join(opts.DataPath, "questions.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		case string(existingVersion) != mappingVersion:
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	created := false
	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		created = true
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:   index,
		path:    indexPath,
		logger:  logger,
		created: created,
	}, nil
}

// Created reports whether the index was created empty on open.
func (s *Index) Created() bool {
	return s.created
}

// Close stops a background fill, waits for its last batch, then closes the
// index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	cancel, done := s.fillCancel, s.fillDone
	s.fillCancel, s.fillDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexQuestion implements Indexer.
func (s *Index) IndexQuestion(ctx context.Context, q *domain.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := QuestionToDocument(q)
	if err := s.index.Index(doc.ID, doc.ToMap()); err != nil {
		return fmt.Errorf("index question %s: %w", q.ID, err)
	}
	return nil
}

// DeleteQuestion implements Indexer.
func (s *Index) DeleteQuestion(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// IndexDocuments indexes documents in batches.
func (s *Index) IndexDocuments(docs []*QuestionDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += indexBatchSize {
		end := min(i+indexBatchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DocumentCount returns the total number of indexed documents.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates a new empty one.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}

// FillInBackground runs Fill on its own goroutine over the sequence returned
// by all. Close cancels it and waits for it to return.
func (s *Index) FillInBackground(all func(context.Context) iter.Seq2[*domain.Question, error]) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.fillCancel, s.fillDone = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		n, err := s.Fill(ctx, all(ctx))
		switch {
		case errors.Is(err, context.Canceled):
			s.logger.Info("search index fill stopped", "indexed", n)
		case err != nil:
			s.logger.Error("search index fill failed", "indexed", n, "error", err)
		}
	}()
}

// Fill indexes every question yielded by all and returns how many were
// indexed.
func (s *Index) Fill(ctx context.Context, all iter.Seq2[*domain.Question, error]) (int, error) {
	var pending []*QuestionDocument
	total := 0
	for q, err := range all {
		if err != nil {
			return total, err
		}
		pending = append(pending, QuestionToDocument(q))
		if len(pending) == indexBatchSize {
			if err := s.IndexDocuments(pending); err != nil {
				return total, err
			}
			total += len(pending)
			pending = pending[:0]
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	if err := s.IndexDocuments(pending); err != nil {
		return total, err
	}
	total += len(pending)
	s.logger.Info("search index filled", "questions", total)
	return total, nil
}
