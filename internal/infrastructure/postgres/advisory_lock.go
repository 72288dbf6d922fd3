package postgres

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"finsync/internal/shared/keylock"
	"finsync/internal/shared/logger"
)

// itemLockClass namespaces item locks within the two-key advisory lock space.
const itemLockClass = 7301

// AdvisoryLocker serializes work per key across processes with session-level advisory locks.
// Each held lock pins one pooled connection until it is released. At most half of a bounded
// pool is held by locks at any time.
type AdvisoryLocker struct {
	db    *DB
	slots *semaphore.Weighted
}

var _ keylock.Locker = (*AdvisoryLocker)(nil)

func NewAdvisoryLocker(db *DB) *AdvisoryLocker {
	l := &AdvisoryLocker{db: db}
	if maxOpen := db.Stats().MaxOpenConnections; maxOpen > 0 {
		l.slots = semaphore.NewWeighted(int64(max(maxOpen/2, 1)))
	}
	return l
}

// Lock blocks until the advisory lock for key is granted or ctx is done.
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.slots != nil {
		if err := l.slots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to wait for an advisory lock slot for %s: %w", key, err)
		}
	}
	release := func() {
		if l.slots != nil {
			l.slots.Release(1)
		}
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to reserve connection for advisory lock: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1, hashtext($2))`, itemLockClass, key); err != nil {
		conn.Close()
		release()
		return nil, fmt.Errorf("failed to acquire advisory lock for %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be canceled; the unlock must still reach the server.
			if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1, hashtext($2))`, itemLockClass, key); err != nil {
				logger.L.Error("failed to release advisory lock", "key", key, "error", err)
			}
			conn.Close()
			release()
		})
	}, nil
}
