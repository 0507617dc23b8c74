// Package docstore is an embedded document database on top of Badger.
//
// Documents live in named collections and are addressed by (collection, id).
// A document is a flat JSON object. The store supports conditional queries
// with ordering and limits, and field transforms (increment, array union and
// remove, server timestamps) that are applied atomically inside the write
// transaction. There are no multi-document transactions.
//
// Queries that combine fields beyond what single-field indexes serve must
// match a declared composite index, otherwise Run fails with an
// *IndexRequiredError naming the index to declare.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/askhub/askhub-server/internal/id"
)

const (
	docPrefix = "doc/"

	// Conflicting writers replay their transaction; the bound keeps a
	// pathological hot key from spinning forever.
	maxCommitAttempts = 100
)

// Options configures Open.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger

	// Indexes lists composite indexes. Nil means DefaultIndexes.
	Indexes *IndexSet
	// EnforceIndexes rejects queries with no matching composite index.
	EnforceIndexes bool

	// Clock supplies server timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// Document is a stored record.
type Document struct {
	ID   string
	Data map[string]any
}

// DB is an open document store.
type DB struct {
	db      *badger.DB
	logger  *slog.Logger
	indexes *IndexSet
	enforce bool
	now     func() time.Time
	closed  atomic.Bool
}

// Open opens or creates a store.
func Open(opts Options) (*DB, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = !opts.InMemory
	bopts.CompactL0OnClose = true

	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	indexes := opts.Indexes
	if indexes == nil {
		indexes = DefaultIndexes()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger.Info("Document store opened",
		"path", opts.Path,
		"in_memory", opts.InMemory,
		"composite_indexes", len(indexes.Defs()),
		"enforce_indexes", opts.EnforceIndexes,
	)

	return &DB{
		db:      bdb,
		logger:  logger,
		indexes: indexes,
		enforce: opts.EnforceIndexes,
		now:     clock,
	}, nil
}

// Close flushes and closes the store. It is safe to call more than once.
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.logger.Info("Closing document store")
	return d.db.Close()
}

// Indexes returns the declared composite indexes.
func (d *DB) Indexes() *IndexSet {
	return d.indexes
}

// Ping verifies the store can serve a read.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	return d.db.View(func(*badger.Txn) error { return nil })
}

func (d *DB) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}

func collectionPrefix(coll string) []byte {
	return []byte(docPrefix + coll + "/")
}

func docKey(coll, id string) []byte {
	return []byte(docPrefix + coll + "/" + id)
}

// Add stores data under a newly assigned id.
func (d *DB) Add(ctx context.Context, coll string, data map[string]any) (Document, error) {
	newID, err := id.New()
	if err != nil {
		return Document{}, err
	}
	return d.Create(ctx, coll, newID, data)
}

// Create stores data under id. It fails with ErrAlreadyExists when the id is
// taken.
func (d *DB) Create(ctx context.Context, coll, docID string, data map[string]any) (Document, error) {
	return d.write(ctx, coll, docID, data, func(_ map[string]any, exists bool) (map[string]any, error) {
		if exists {
			return nil, fmt.Errorf("%s/%s: %w", coll, docID, ErrAlreadyExists)
		}
		return map[string]any{}, nil
	})
}

// Set writes data under id, creating the document if needed. Without merge
// the document is replaced; with merge only the given fields change.
func (d *DB) Set(ctx context.Context, coll, docID string, data map[string]any, merge bool) (Document, error) {
	return d.write(ctx, coll, docID, data, func(current map[string]any, exists bool) (map[string]any, error) {
		if merge && exists {
			return current, nil
		}
		return map[string]any{}, nil
	})
}

// Update applies updates to an existing document. It fails with ErrNotFound
// when the document does not exist.
func (d *DB) Update(ctx context.Context, coll, docID string, updates ...Update) (Document, error) {
	if err := d.ready(ctx); err != nil {
		return Document{}, err
	}
	if err := validateCollection(coll); err != nil {
		return Document{}, err
	}
	if err := validateID(docID); err != nil {
		return Document{}, err
	}
	prepared, err := prepareUpdates(updates)
	if err != nil {
		return Document{}, err
	}
	return d.commit(coll, docID, prepared, func(current map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			return nil, fmt.Errorf("%s/%s: %w", coll, docID, ErrNotFound)
		}
		return current, nil
	})
}

func (d *DB) write(
	ctx context.Context,
	coll, docID string,
	data map[string]any,
	base func(current map[string]any, exists bool) (map[string]any, error),
) (Document, error) {
	if err := d.ready(ctx); err != nil {
		return Document{}, err
	}
	if err := validateCollection(coll); err != nil {
		return Document{}, err
	}
	if err := validateID(docID); err != nil {
		return Document{}, err
	}
	for k := range data {
		if strings.Contains(k, ".") || k == DocumentID {
			return Document{}, invalidArgument("bad field name %q", k)
		}
	}
	prepared, err := prepareUpdates(updatesFromMap(data))
	if err != nil {
		return Document{}, err
	}
	return d.commit(coll, docID, prepared, base)
}

// commit runs one read-modify-write of a single document, replaying it when a
// concurrent transaction touched the same key.
func (d *DB) commit(
	coll, docID string,
	updates []Update,
	base func(current map[string]any, exists bool) (map[string]any, error),
) (Document, error) {
	key := docKey(coll, docID)
	var out Document

	fn := func(txn *badger.Txn) error {
		current, exists, err := readDoc(txn, key)
		if err != nil {
			return err
		}
		next, err := base(current, exists)
		if err != nil {
			return err
		}
		if err := applyUpdates(next, updates, d.now()); err != nil {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := txn.Set(key, raw); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		out = Document{ID: docID, Data: next}
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := d.db.Update(fn)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return Document{}, err
		}
		if attempt == maxCommitAttempts {
			return Document{}, fmt.Errorf("commit %s/%s after %d attempts: %w", coll, docID, attempt, err)
		}
		time.Sleep(rand.N(time.Duration(attempt) * 50 * time.Microsecond))
	}
}

func readDoc(txn *badger.Txn, key []byte) (map[string]any, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	var data map[string]any
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &data)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, true, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (d *DB) Delete(ctx context.Context, coll, docID string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if err := validateCollection(coll); err != nil {
		return err
	}
	if err := validateID(docID); err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(docKey(coll, docID)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

// Get returns one document or ErrNotFound.
func (d *DB) Get(ctx context.Context, coll, docID string) (Document, error) {
	if err := d.ready(ctx); err != nil {
		return Document{}, err
	}
	if err := validateCollection(coll); err != nil {
		return Document{}, err
	}
	if err := validateID(docID); err != nil {
		return Document{}, err
	}

	var doc Document
	err := d.db.View(func(txn *badger.Txn) error {
		data, exists, err := readDoc(txn, docKey(coll, docID))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s/%s: %w", coll, docID, ErrNotFound)
		}
		doc = Document{ID: docID, Data: data}
		return nil
	})
	return doc, err
}

// Run executes a query and returns the matching documents.
func (d *DB) Run(ctx context.Context, q Query) ([]Document, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	c, err := compile(q)
	if err != nil {
		return nil, err
	}
	if d.enforce {
		if need, eqCount := required(c); need != nil && !d.indexes.covers(need, eqCount) {
			return nil, &IndexRequiredError{Index: *need}
		}
	}

	var docs []Document
	for doc, err := range d.Scan(ctx, q.Collection) {
		if err != nil {
			return nil, err
		}
		if c.matches(doc) {
			docs = append(docs, doc)
		}
	}

	c.sortDocs(docs)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Scan iterates every document of a collection in id order.
func (d *DB) Scan(ctx context.Context, coll string) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		if err := d.ready(ctx); err != nil {
			yield(Document{}, err)
			return
		}
		prefix := collectionPrefix(coll)

		_ = d.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(Document{}, err)
					return err
				}
				item := it.Item()
				docID := string(item.Key()[len(prefix):])

				var data map[string]any
				err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &data)
				})
				if err != nil {
					err = fmt.Errorf("failed to unmarshal %s/%s: %w", coll, docID, err)
					yield(Document{}, err)
					return err
				}
				if data == nil {
					data = map[string]any{}
				}
				if !yield(Document{ID: docID, Data: data}, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// Count returns the number of documents in a collection.
func (d *DB) Count(ctx context.Context, coll string) (int, error) {
	if err := d.ready(ctx); err != nil {
		return 0, err
	}
	prefix := collectionPrefix(coll)
	n := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
