package sessions

import (
	"context"
	"log/slog"

	"fuse-query-go/config"
	"fuse-query-go/errors"
	"fuse-query-go/logger"

	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/google/uuid"
)

// Settings are the per query knobs, seeded from the global config.
type Settings struct {
	MaxThreads        int
	MaxBlockSize      int
	DefaultSourceRows uint64
}

// QueryContext carries everything a query needs besides its plan.
type QueryContext struct {
	ID        string
	Settings  Settings
	Allocator memory.Allocator
	Logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func TryCreateContext() (*QueryContext, error) {
	return TryCreateContextWithParent(context.Background())
}

// TryCreateContextWithParent ties the query's cancellation to parent.
func TryCreateContextWithParent(parent context.Context) (*QueryContext, error) {
	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.BadArguments, err, "invalid configuration")
	}
	id := uuid.New().String()
	ctx, cancel := context.WithCancelCause(parent)
	mem := memory.NewGoAllocator()
	return &QueryContext{
		ID: id,
		Settings: Settings{
			MaxThreads:        cfg.Query.MaxThreads,
			MaxBlockSize:      cfg.Query.MaxBlockSize,
			DefaultSourceRows: cfg.Query.DefaultSourceRows,
		},
		Allocator: mem,
		Logger:    logger.With("query_id", id),
		ctx:       compute.WithAllocator(ctx, mem),
		cancel:    cancel,
	}, nil
}

// Context returns the query context.Context. Arrow compute picks the query
// allocator up from it.
func (q *QueryContext) Context() context.Context {
	return q.ctx
}

func (q *QueryContext) Cancel(cause error) {
	if cause == nil {
		cause = context.Canceled
	}
	q.Logger.Info("query cancelled", "cause", cause)
	q.cancel(cause)
}

func (q *QueryContext) SetMaxThreads(n int) error {
	if n <= 0 {
		return errors.ErrBadArguments("max_threads must be > 0, got %d", n)
	}
	q.Settings.MaxThreads = n
	return nil
}

func (q *QueryContext) SetMaxBlockSize(n int) error {
	if n <= 0 {
		return errors.ErrBadArguments("max_block_size must be > 0, got %d", n)
	}
	q.Settings.MaxBlockSize = n
	return nil
}
