package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/storage"
)

// maxLineSize bounds a single JSON record.
const maxLineSize = 16 << 20

// Stats summarizes a load.
type Stats struct {
	Read     int64
	Inserted int64
	Failed   int64
}

// Loader inserts JSON-lines records into a repository.
type Loader struct {
	repo     storage.Repository
	class    core.Class
	pool     *ants.Pool
	strategy IDStrategy
	progress func()
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithPoolSize sets the number of concurrent inserts.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			size = 1
		}
		if l.pool != nil {
			l.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		l.pool = pool
		return nil
	}
}

// WithIDStrategy sets how records without a primary key get one.
// Default is IDFromField.
func WithIDStrategy(strategy IDStrategy) Option {
	return func(l *Loader) error {
		if _, err := ParseIDStrategy(string(strategy)); err != nil {
			return err
		}
		l.strategy = strategy
		return nil
	}
}

// WithProgress registers fn to be called once per finished record. fn is
// called from worker goroutines.
func WithProgress(fn func()) Option {
	return func(l *Loader) error {
		l.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a loader that builds instances of class.
func NewLoader(repo storage.Repository, class core.Class, opts ...Option) (*Loader, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if _, err := class.New(); err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		repo:     repo,
		class:    class,
		pool:     pool,
		strategy: IDFromField,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(l); optErr != nil {
			l.Release()
			return nil, optErr
		}
	}
	return l, nil
}

// Load reads records from r until EOF and inserts them. It waits for every
// submitted insert before returning. The returned error reports a failed
// read or a cancelled context; per-record failures only show up in Stats.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Stats, error) {
	var (
		stats    Stats
		inserted atomic.Int64
		failed   atomic.Int64
		wg       sync.WaitGroup
	)
	done := func(err error, line int64) {
		if err != nil {
			failed.Add(1)
			l.logger.Warn("record failed", "line", line, "err", err)
		} else {
			inserted.Add(1)
		}
		if l.progress != nil {
			l.progress()
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var loadErr error
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			loadErr = err
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Read++
		lineNo := stats.Read

		model, err := l.decode(line)
		if err != nil {
			done(err, lineNo)
			continue
		}

		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			done(l.repo.Insert(ctx, model), lineNo)
		})
		if submitErr != nil {
			wg.Done()
			done(submitErr, lineNo)
		}
	}
	if loadErr == nil {
		loadErr = scanner.Err()
	}
	wg.Wait()

	stats.Inserted = inserted.Load()
	stats.Failed = failed.Load()
	l.logger.Info("load finished", "class", l.class.Name(),
		"read", stats.Read, "inserted", stats.Inserted, "failed", stats.Failed)
	return stats, loadErr
}

func (l *Loader) decode(line []byte) (core.Storable, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidRecord)
	}
	attrs, err := core.FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	model, err := l.class.New()
	if err != nil {
		return nil, err
	}
	if err := assignID(l.strategy, model.PrimaryKey(), &attrs); err != nil {
		return nil, err
	}
	model.Fill(attrs)
	return model, nil
}

// Release releases the worker pool.
// The loader should not be used after calling Release.
func (l *Loader) Release() {
	if l.pool != nil {
		l.pool.Release()
	}
}
