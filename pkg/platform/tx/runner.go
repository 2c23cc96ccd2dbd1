package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"turnstile/pkg/platform/sentinel"
)

// Runner runs a function within a transactional boundary. SQL-backed stores
// pick the transaction up from the context; memory stores rely on the
// runner's per-key serialization.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds a transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// SQLRunner wraps a database handle. The transaction is carried in the
// context so any store sharing the handle joins it transparently.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner constructs a Runner over a SQL database handle.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db, timeout: defaultTxTimeout}
}

// RunInTx begins a transaction, injects it into the context, and commits when
// fn succeeds. fn errors are returned unchanged; infrastructure failures are
// reported as sentinel.ErrUnavailable so services fail closed.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: transaction aborted: %v", sentinel.ErrUnavailable, err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", sentinel.ErrUnavailable, err)
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// numShards spreads per-key serialization across independent mutexes so
// contention on one key never blocks another.
const numShards = 128

// ShardedRunner provides the memory-store transactional boundary: operations
// sharing a shard key run serially, everything else runs in parallel.
type ShardedRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewShardedRunner constructs an in-memory Runner.
func NewShardedRunner() *ShardedRunner {
	return &ShardedRunner{timeout: defaultTxTimeout}
}

// RunInTx serializes fn against other calls carrying the same shard key.
func (r *ShardedRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: transaction aborted: %v", sentinel.ErrUnavailable, err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	shard := r.selectShard(ctx)
	r.shards[shard].Lock()
	defer r.shards[shard].Unlock()

	// Check again after acquiring the lock
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: transaction aborted: %v", sentinel.ErrUnavailable, err)
	}

	return fn(ctx)
}

// selectShard picks a shard from the key in context, or defaults to shard 0.
func (r *ShardedRunner) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(shardKeyCtx).(string); ok && key != "" {
		return int(hashShardKey(key) % numShards)
	}
	return 0
}

// hashShardKey uses FNV-1a for better hash distribution than simple multiply-add.
func hashShardKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type shardKey struct{}

var shardKeyCtx = shardKey{}

// WithShardKey tags the context with the serialization key, typically the
// registration ID a mutation targets.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKeyCtx, key)
}
