package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/poiesic/persimmon/collection"
	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
)

const tracerName = "github.com/poiesic/persimmon/storage"

// repository is the default Repository. It holds no mutable state beyond the
// client handle and is safe for concurrent use.
type repository struct {
	client Client
	logger *slog.Logger
	clock  func() time.Time
	tracer trace.Tracer
}

var _ Repository = (*repository)(nil)

// Option configures a Repository.
type Option func(*repository) error

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *repository) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithClock sets the time source used for created_at and updated_at.
func WithClock(clock func() time.Time) Option {
	return func(r *repository) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		r.clock = clock
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *repository) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		r.tracer = tp.Tracer(tracerName)
		return nil
	}
}

// NewRepository returns a Repository backed by client.
func NewRepository(client Client, opts ...Option) (Repository, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	r := &repository{
		client: client,
		logger: slog.Default(),
		clock:  time.Now,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *repository) Instantiate(class core.Class) (core.Storable, error) {
	return class.New()
}

func (r *repository) Find(ctx context.Context, id any, class core.Class, columns ...string) (core.Storable, error) {
	ctx, span := r.tracer.Start(ctx, "persimmon.find")
	defer span.End()

	model, err := class.New()
	if err != nil {
		return nil, r.fail(span, err)
	}
	key, err := core.KeyString(id)
	if err != nil {
		return nil, r.fail(span, err)
	}
	coll := model.Collection()
	span.SetAttributes(attribute.String("persimmon.collection", coll), attribute.String("persimmon.id", key))

	r.logger.Debug("finding document", "collection", coll, "id", key, "columns", columns)
	doc, err := r.client.Get(ctx, coll, key, r.columns(model, columns))
	if err != nil {
		return nil, r.fail(span, r.clientErr(err, coll, key))
	}

	r.hydrate(model, doc.Fields)
	pk := model.PrimaryKey()
	if stored, ok := doc.Fields.Get(pk); !ok || stored.String() != key {
		idVal, _ := core.From(id)
		model.Fill(core.MustAttributes(pk, idVal))
	}
	return model, nil
}

func (r *repository) All(ctx context.Context, b query.Builder, class core.Class, opts ...ListOption) (*collection.Collection, error) {
	ctx, span := r.tracer.Start(ctx, "persimmon.all")
	defer span.End()

	var cfg listConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	proto, err := class.New()
	if err != nil {
		return nil, r.fail(span, err)
	}
	q := query.New()
	if b != nil {
		q = b.Build()
	}
	if err := q.Err(); err != nil {
		return nil, r.fail(span, fmt.Errorf("%w: %w", core.ErrValidation, err))
	}
	if cfg.columns != nil {
		q = q.Select(cfg.columns...)
	}
	if fields := q.Fields(); len(fields) > 0 {
		q = q.Select(r.columns(proto, fields)...)
	}
	coll := proto.Collection()
	span.SetAttributes(attribute.String("persimmon.collection", coll), attribute.Bool("persimmon.ranked", q.Ranked()))

	res, err := r.client.Search(ctx, coll, q)
	if err != nil {
		return nil, r.fail(span, r.clientErr(err, coll, ""))
	}
	if cfg.raw != nil {
		cfg.raw(res.clone())
	}

	items := make([]core.Storable, 0, len(res.Hits))
	pk := proto.PrimaryKey()
	for i, hit := range res.Hits {
		model, err := class.New()
		if err != nil {
			return nil, r.fail(span, err)
		}
		r.hydrate(model, hit.Fields)
		if !hit.Fields.Has(pk) {
			model.Fill(core.MustAttributes(pk, hit.ID))
		}
		if a, ok := model.(core.Annotated); ok {
			a.SetHit(core.Hit{Position: i, Score: hit.Score, Scored: hit.Scored})
		}
		items = append(items, model)
	}
	span.SetAttributes(attribute.Int("persimmon.count", len(items)), attribute.Int64("persimmon.total", res.Total))
	r.logger.Debug("listed documents", "collection", coll, "count", len(items), "total", res.Total)
	return collection.New(items, res.Total), nil
}

func (r *repository) Insert(ctx context.Context, model core.Storable) error {
	ctx, span := r.tracer.Start(ctx, "persimmon.insert")
	defer span.End()

	key, err := core.ValidateKey(model)
	if err != nil {
		return r.fail(span, err)
	}
	coll := model.Collection()
	span.SetAttributes(attribute.String("persimmon.collection", coll), attribute.String("persimmon.id", key))

	attrs := model.ToMap()
	now := r.now()
	ts, timestamped := model.(core.Timestamped)
	if timestamped {
		attrs.Set(core.CreatedAtField, core.Time(now))
		attrs.Set(core.UpdatedAtField, core.Time(now))
	}

	r.logger.Debug("inserting document", "collection", coll, "id", key, "fields", attrs.Len())
	if err := r.client.Put(ctx, coll, key, attrs); err != nil {
		return r.fail(span, r.clientErr(err, coll, key))
	}
	if timestamped {
		ts.SetTimestamps(now, now)
	}
	markExists(model, true)
	return nil
}

func (r *repository) Update(ctx context.Context, model core.Storable) error {
	return r.update(ctx, model, nil)
}

func (r *repository) Save(ctx context.Context, model core.Storable, fields ...string) error {
	if p, ok := model.(core.Persisted); ok && p.Exists() {
		if len(fields) == 0 {
			fields = nil
		}
		return r.update(ctx, model, fields)
	}
	return r.Insert(ctx, model)
}

// update patches the loaded fields of model, or only the named ones when
// fields is not nil.
func (r *repository) update(ctx context.Context, model core.Storable, fields []string) error {
	ctx, span := r.tracer.Start(ctx, "persimmon.update")
	defer span.End()

	key, err := core.ValidateKey(model)
	if err != nil {
		return r.fail(span, err)
	}
	coll := model.Collection()
	span.SetAttributes(attribute.String("persimmon.collection", coll), attribute.String("persimmon.id", key))

	attrs := model.ToMap()
	if fields != nil {
		attrs = attrs.Only(append(slices.Clone(fields), model.PrimaryKey())...)
	}
	attrs.Delete(core.CreatedAtField)
	now := r.now()
	ts, timestamped := model.(core.Timestamped)
	if timestamped {
		// updated_at must stay strictly after created_at, even within the
		// same millisecond.
		if created := ts.CreatedAt(); !created.IsZero() && !now.After(created) {
			now = created.Add(time.Millisecond)
		}
		attrs.Set(core.UpdatedAtField, core.Time(now))
	}

	r.logger.Debug("updating document", "collection", coll, "id", key, "fields", attrs.Len())
	if err := r.client.Patch(ctx, coll, key, attrs); err != nil {
		return r.fail(span, r.clientErr(err, coll, key))
	}
	if timestamped {
		ts.SetTimestamps(ts.CreatedAt(), now)
	}
	markExists(model, true)
	return nil
}

func (r *repository) Delete(ctx context.Context, id any, class core.Class) error {
	ctx, span := r.tracer.Start(ctx, "persimmon.delete")
	defer span.End()

	model, err := class.New()
	if err != nil {
		return r.fail(span, err)
	}
	key, err := core.KeyString(id)
	if err != nil {
		return r.fail(span, err)
	}
	return r.delete(ctx, span, model.Collection(), key)
}

func (r *repository) DeleteModel(ctx context.Context, model core.Storable) error {
	ctx, span := r.tracer.Start(ctx, "persimmon.delete")
	defer span.End()

	key, err := core.ValidateKey(model)
	if err != nil {
		return r.fail(span, err)
	}
	if err := r.delete(ctx, span, model.Collection(), key); err != nil {
		return err
	}
	markExists(model, false)
	return nil
}

func (r *repository) delete(ctx context.Context, span trace.Span, coll, key string) error {
	span.SetAttributes(attribute.String("persimmon.collection", coll), attribute.String("persimmon.id", key))
	r.logger.Debug("deleting document", "collection", coll, "id", key)
	if err := r.client.Delete(ctx, coll, key); err != nil {
		return r.fail(span, r.clientErr(err, coll, key))
	}
	return nil
}

// hydrate fills model from stored fields and marks it as existing. The
// store-managed timestamps move out of the attribute bag.
func (r *repository) hydrate(model core.Storable, fields core.Attributes) {
	attrs := fields.Clone()
	if ts, ok := model.(core.Timestamped); ok {
		created, _ := attrs.Get(core.CreatedAtField)
		updated, _ := attrs.Get(core.UpdatedAtField)
		attrs.Delete(core.CreatedAtField)
		attrs.Delete(core.UpdatedAtField)
		ts.SetTimestamps(created.Time(), updated.Time())
	}
	model.Fill(attrs)
	markExists(model, true)
}

// columns extends a field selection with the fields the repository always
// needs back: the primary key and, for timestamped models, the timestamps.
func (r *repository) columns(model core.Storable, columns []string) []string {
	if len(columns) == 0 {
		return nil
	}
	out := slices.Clone(columns)
	extra := []string{model.PrimaryKey()}
	if _, ok := model.(core.Timestamped); ok {
		extra = append(extra, core.CreatedAtField, core.UpdatedAtField)
	}
	for _, f := range extra {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func (r *repository) now() time.Time {
	return r.clock().UTC().Truncate(time.Millisecond)
}

// clientErr passes ErrNotFound through and wraps everything else in ErrStore.
func (r *repository) clientErr(err error, coll, key string) error {
	if errors.Is(err, ErrNotFound) {
		if key == "" {
			return fmt.Errorf("%w: collection %q", err, coll)
		}
		return fmt.Errorf("%w: %s/%s", err, coll, key)
	}
	r.logger.Error("store operation failed", "collection", coll, "id", key, "err", err)
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func (r *repository) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func markExists(model core.Storable, exists bool) {
	if p, ok := model.(core.Persisted); ok {
		p.SetExists(exists)
	}
}

// FindAs is Find for a concrete model type:
//
//	p, err := storage.FindAs[Product](ctx, repo, 1)
func FindAs[T any, PT interface {
	*T
	core.Storable
}](ctx context.Context, repo Repository, id any, columns ...string) (PT, error) {
	s, err := repo.Find(ctx, id, core.ClassOf[T, PT](), columns...)
	if err != nil {
		return nil, err
	}
	return s.(PT), nil
}

// AllAs is All for a concrete model type. It returns the items and the total
// number of matches.
func AllAs[T any, PT interface {
	*T
	core.Storable
}](ctx context.Context, repo Repository, q query.Builder, opts ...ListOption) ([]PT, int64, error) {
	c, err := repo.All(ctx, q, core.ClassOf[T, PT](), opts...)
	if err != nil {
		return nil, 0, err
	}
	return collection.Slice[PT](c), c.Total(), nil
}
