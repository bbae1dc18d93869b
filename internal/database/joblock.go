package database

import (
	"context"
	"fmt"
	"hash/fnv"
)

// JobLockKey derives the pg advisory lock key of a named job.
func JobLockKey(jobName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("job:" + jobName))
	return int64(h.Sum64())
}

// TryJobLock takes a session-scoped advisory lock for jobName on a dedicated
// connection. ok is false with a nil release when another session holds it.
// release unlocks on that same connection and hands it back to the pool.
func (db *DB) TryJobLock(ctx context.Context, jobName string) (release func(), ok bool, err error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for job lock: %w", err)
	}

	key := JobLockKey(jobName)
	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock for job %s: %w", jobName, err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), HealthCheckTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			db.logger.Error().Err(err).Str("job_name", jobName).Msg("failed to release job lock")
		}
		conn.Release()
	}, true, nil
}
