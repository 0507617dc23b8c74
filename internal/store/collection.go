package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/askhub/askhub-server/internal/docstore"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/session"
)

// Condition is one (field, operator, value) filter. Conditions passed
// together are AND-ed.
type Condition struct {
	Field string
	Op    docstore.Op
	Value any
}

// Where builds a Condition.
func Where(field string, op docstore.Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Order sorts query results by one field. The zero Direction means
// descending.
type Order struct {
	Field     string
	Direction docstore.Direction
}

// OrderBy builds an Order.
func OrderBy(field string, dir docstore.Direction) *Order {
	return &Order{Field: field, Direction: dir}
}

// Partial is the result of Update: the id and the fields that were sent.
// It is not a fresh read of the record.
type Partial struct {
	ID     string
	Fields map[string]any
}

// Collection provides typed access to one named collection. T must encode to
// a JSON object whose "id" field holds the record id.
//
// Every operation maps failures onto the coded access errors: READ_ERROR for
// reads, WRITE_ERROR for mutations and INDEX_ERROR for query shapes the store
// cannot serve. The collection never retries.
type Collection[T any] struct {
	name       string
	db         *docstore.DB
	sessions   session.Provider
	metrics    *metrics.Metrics
	logger     *slog.Logger
	stampOwner bool
}

// CollectionOption configures a Collection.
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	stampOwner bool
}

// WithoutOwner disables the author snapshot (userId, username, userPhotoURL)
// for collections whose records are not authored content, such as users and
// tags. Timestamps are still stamped.
func WithoutOwner() CollectionOption {
	return func(o *collectionOptions) { o.stampOwner = false }
}

// NewCollection binds a collection name to the store.
func NewCollection[T any](s *Store, name string, opts ...CollectionOption) *Collection[T] {
	o := collectionOptions{stampOwner: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		name:       name,
		db:         s.db,
		sessions:   s.sessions,
		metrics:    s.metrics,
		logger:     s.logger,
		stampOwner: o.stampOwner,
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Create stores data under a new id. It stamps createdAt and updatedAt with
// the server time and snapshots the caller's identity, using a nil userId and
// the "anonymous" username when the caller is not signed in.
func (c *Collection[T]) Create(ctx context.Context, data *T) (out *T, err error) {
	defer c.observe("create", time.Now(), &err)

	fields, err := encode(data)
	if err != nil {
		return nil, apperrors.Write(err, "failed to encode "+c.name+" record")
	}
	c.stamp(ctx, fields)

	doc, err := c.db.Add(ctx, c.name, fields)
	if err != nil {
		return nil, c.writeError("create", err)
	}
	return c.decode(doc)
}

// CreateWithID stores data under a caller-chosen id. It fails with CONFLICT
// when the id is taken.
func (c *Collection[T]) CreateWithID(ctx context.Context, id string, data *T) (out *T, err error) {
	defer c.observe("create", time.Now(), &err)

	fields, err := encode(data)
	if err != nil {
		return nil, apperrors.Write(err, "failed to encode "+c.name+" record")
	}
	c.stamp(ctx, fields)

	doc, err := c.db.Create(ctx, c.name, id, fields)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return nil, apperrors.Conflictf("%s/%s already exists", c.name, id).WithCause(err)
	}
	if err != nil {
		return nil, c.writeError("create", err)
	}
	return c.decode(doc)
}

// Update merges fields into an existing record and refreshes updatedAt.
// Field names may be dotted paths and values may be docstore transforms.
// Updating a missing record is a WRITE_ERROR.
func (c *Collection[T]) Update(ctx context.Context, id string, fields map[string]any) (out *Partial, err error) {
	defer c.observe("update", time.Now(), &err)

	updates := make([]docstore.Update, 0, len(fields)+1)
	for _, k := range sortedFieldNames(fields) {
		updates = append(updates, docstore.Update{Path: k, Value: fields[k]})
	}
	updates = append(updates, docstore.Update{Path: "updatedAt", Value: docstore.ServerTimestamp})

	if _, err := c.db.Update(ctx, c.name, id, updates...); err != nil {
		return nil, c.writeError("update", err)
	}
	return &Partial{ID: id, Fields: fields}, nil
}

// Upsert merge-writes fields under id, creating the record when missing.
// No metadata is stamped.
func (c *Collection[T]) Upsert(ctx context.Context, id string, fields map[string]any) (out *T, err error) {
	defer c.observe("upsert", time.Now(), &err)

	doc, err := c.db.Set(ctx, c.name, id, fields, true)
	if err != nil {
		return nil, c.writeError("upsert", err)
	}
	return c.decode(doc)
}

// Delete removes a record. Deleting a missing record succeeds.
func (c *Collection[T]) Delete(ctx context.Context, id string) (err error) {
	defer c.observe("delete", time.Now(), &err)

	if err := c.db.Delete(ctx, c.name, id); err != nil {
		return c.writeError("delete", err)
	}
	return nil
}

// Get returns the record, or (nil, nil) when it does not exist.
func (c *Collection[T]) Get(ctx context.Context, id string) (out *T, err error) {
	defer c.observe("get", time.Now(), &err)

	doc, err := c.db.Get(ctx, c.name, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, c.readError("get", err)
	}
	return c.decode(doc)
}

// Query returns records matching every condition, ordered by a single field
// and capped at limit (0 for no cap). A nil order leaves results in id order.
func (c *Collection[T]) Query(ctx context.Context, conds []Condition, order *Order, limit int) ([]*T, error) {
	var orders []Order
	if order != nil {
		orders = []Order{*order}
	}
	return c.run(ctx, "query", conds, orders, limit)
}

// QueryOrdered is Query with a multi-field ordering.
func (c *Collection[T]) QueryOrdered(ctx context.Context, conds []Condition, orders []Order, limit int) ([]*T, error) {
	return c.run(ctx, "query", conds, orders, limit)
}

func (c *Collection[T]) run(ctx context.Context, op string, conds []Condition, orders []Order, limit int) (out []*T, err error) {
	defer c.observe(op, time.Now(), &err)

	q := docstore.Query{Collection: c.name, Limit: limit}
	for _, cond := range conds {
		q = q.Where(cond.Field, cond.Op, cond.Value)
	}
	for _, o := range orders {
		dir := o.Direction
		if dir == "" {
			dir = docstore.Desc
		}
		q = q.OrderBy(o.Field, dir)
	}

	docs, err := c.db.Run(ctx, q)
	if err != nil {
		return nil, c.readError(op, err)
	}
	out = make([]*T, 0, len(docs))
	for _, doc := range docs {
		rec, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// List iterates every record in id order.
func (c *Collection[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for doc, err := range c.db.Scan(ctx, c.name) {
			if err != nil {
				yield(nil, c.readError("list", err))
				return
			}
			rec, err := c.decode(doc)
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// IncrementField atomically adds amount to a numeric field. Concurrent
// increments are never lost. The new value is not returned.
func (c *Collection[T]) IncrementField(ctx context.Context, id, field string, amount int64) (ok bool, err error) {
	return c.mutate(ctx, "increment", id, field, docstore.Increment(amount))
}

// AddToSet atomically appends value to an array field unless an equal value
// is already present.
func (c *Collection[T]) AddToSet(ctx context.Context, id, field string, value any) (ok bool, err error) {
	return c.mutate(ctx, "add_to_set", id, field, docstore.ArrayUnion(value))
}

// RemoveFromSet atomically removes every element equal to value.
func (c *Collection[T]) RemoveFromSet(ctx context.Context, id, field string, value any) (ok bool, err error) {
	return c.mutate(ctx, "remove_from_set", id, field, docstore.ArrayRemove(value))
}

func (c *Collection[T]) mutate(ctx context.Context, op, id, field string, t docstore.Transform) (ok bool, err error) {
	defer c.observe(op, time.Now(), &err)

	if _, err := c.db.Update(ctx, c.name, id, docstore.Update{Path: field, Value: t}); err != nil {
		return false, c.writeError(op, err)
	}
	return true, nil
}

func (c *Collection[T]) stamp(ctx context.Context, fields map[string]any) {
	delete(fields, "id")
	fields["createdAt"] = docstore.ServerTimestamp
	fields["updatedAt"] = docstore.ServerTimestamp
	if !c.stampOwner {
		return
	}

	s := c.sessions.Current(ctx)
	if s.Authenticated() {
		fields["userId"] = s.UserID()
	} else {
		fields["userId"] = nil
	}
	fields["username"] = s.Username()
	fields["userPhotoURL"] = s.PhotoURL()
}

func (c *Collection[T]) decode(doc docstore.Document) (*T, error) {
	data := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		data[k] = v
	}
	data["id"] = doc.ID

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.Read(err, fmt.Sprintf("failed to encode %s/%s", c.name, doc.ID))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Read(err, fmt.Sprintf("failed to decode %s/%s", c.name, doc.ID))
	}
	return &out, nil
}

func (c *Collection[T]) observe(op string, start time.Time, err *error) {
	c.metrics.ObserveStore(c.name, op, start, *err)
	if *err != nil {
		c.logger.Debug("accessor operation failed", "collection", c.name, "op", op, "error", *err)
	}
}

func (c *Collection[T]) writeError(op string, err error) error {
	if isQueryShape(err) {
		return apperrors.Index(err, fmt.Sprintf("%s %s: unsupported query", op, c.name))
	}
	return apperrors.Write(err, fmt.Sprintf("failed to %s %s record", op, c.name))
}

func (c *Collection[T]) readError(op string, err error) error {
	if isQueryShape(err) {
		return apperrors.Index(err, fmt.Sprintf("%s %s: unsupported query", op, c.name))
	}
	return apperrors.Read(err, fmt.Sprintf("failed to %s %s", op, c.name))
}

func isQueryShape(err error) bool {
	return errors.Is(err, docstore.ErrIndexRequired) || errors.Is(err, docstore.ErrInvalidQuery)
}

func encode[T any](data *T) (map[string]any, error) {
	if data == nil {
		return nil, errors.New("nil record")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("record does not encode to an object")
	}
	return fields, nil
}
