package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mhadley/receiptvault/internal/common"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/mhadley/receiptvault/internal/netx"
)

const (
	defaultPollInterval = 15 * time.Second
	retryBaseDelay      = 30 * time.Second
	retryMaxDelay       = 5 * time.Minute
)

// SQLiteScheduler persists jobs in the client sqlite database and executes
// them one at a time when the connectivity probe reports the network as
// usable. Sequential execution is what serializes work per key.
type SQLiteScheduler struct {
	db    *sql.DB
	exec  Executor
	probe netx.Prober
	log   logging.Logger

	pollInterval time.Duration
	wake         chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc

	now func() time.Time
}

func NewSQLiteScheduler(db *sql.DB, exec Executor, probe netx.Prober, pollInterval time.Duration, log logging.Logger) *SQLiteScheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if probe == nil {
		probe = netx.Always(true)
	}
	return &SQLiteScheduler{
		db:           db,
		exec:         exec,
		probe:        probe,
		log:          log.With("component", "jobs"),
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		running:      make(map[string]context.CancelFunc),
		now:          time.Now,
	}
}

func (s *SQLiteScheduler) EnqueueUnique(ctx context.Context, key string, policy Policy, payload []byte) error {
	var err error
	switch policy {
	case PolicyReplace:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO jobs (key, payload, attempts, not_before) VALUES (?, ?, 0, 0)
			ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, attempts = 0, not_before = 0
		`, key, payload)
	case PolicyKeep:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO jobs (key, payload, attempts, not_before) VALUES (?, ?, 0, 0)
			ON CONFLICT(key) DO NOTHING
		`, key, payload)
	default:
		return fmt.Errorf("unknown policy %q", policy)
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", key, err)
	}
	s.nudge()
	return nil
}

func (s *SQLiteScheduler) Cancel(ctx context.Context, key string) error {
	s.mu.Lock()
	if cancel, ok := s.running[key]; ok {
		cancel()
	}
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", key, err)
	}
	return nil
}

// Run polls for due jobs until ctx is cancelled. Enqueues nudge the loop so
// fresh work does not wait out a full poll interval.
func (s *SQLiteScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error(ctx, "job pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

type jobRow struct {
	key      string
	payload  []byte
	attempts int
}

// ProcessPending executes every job that is due right now, sequentially.
// It returns early when the network constraint is not satisfied.
func (s *SQLiteScheduler) ProcessPending(ctx context.Context) error {
	if !s.probe.Online(ctx) {
		return nil
	}

	due, err := s.dueJobs(ctx)
	if err != nil {
		return err
	}

	for _, job := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runOne(ctx, job)
	}
	return nil
}

func (s *SQLiteScheduler) dueJobs(ctx context.Context) ([]jobRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, payload, attempts FROM jobs
		WHERE not_before <= ? ORDER BY created_at
	`, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to select due jobs: %w", err)
	}
	defer rows.Close()

	var due []jobRow
	for rows.Next() {
		var j jobRow
		if err := rows.Scan(&j.key, &j.payload, &j.attempts); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		due = append(due, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return due, nil
}

func (s *SQLiteScheduler) runOne(ctx context.Context, job jobRow) {
	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[job.key] = cancel
	s.mu.Unlock()

	err := s.exec.Execute(jobCtx, job.payload)

	s.mu.Lock()
	delete(s.running, job.key)
	s.mu.Unlock()
	cancel()

	switch {
	case err == nil:
		// Delete only if the payload is unchanged: a REPLACE that landed
		// mid-run must survive to be executed with its new payload.
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE key = ? AND payload = ?`, job.key, job.payload); derr != nil {
			s.log.Error(ctx, "failed to complete job", "key", job.key, "error", derr)
		}

	case errors.Is(err, common.ErrBadPayload):
		s.log.Error(ctx, "dropping job with unusable payload", "key", job.key, "error", err)
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE key = ?`, job.key); derr != nil {
			s.log.Error(ctx, "failed to drop job", "key", job.key, "error", derr)
		}

	case jobCtx.Err() != nil && ctx.Err() == nil:
		// Cancelled via Cancel; the row is already gone.
		s.log.Info(ctx, "job cancelled", "key", job.key)

	default:
		delay := s.retryDelay(job.attempts + 1)
		s.log.Warn(ctx, "job failed, will retry", "key", job.key, "attempt", job.attempts+1, "delay", delay, "error", err)
		if _, uerr := s.db.ExecContext(ctx, `
			UPDATE jobs SET attempts = attempts + 1, not_before = ? WHERE key = ?
		`, s.now().Add(delay).Unix(), job.key); uerr != nil {
			s.log.Error(ctx, "failed to reschedule job", "key", job.key, "error", uerr)
		}
	}
}

func (s *SQLiteScheduler) retryDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * retryBaseDelay
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}

func (s *SQLiteScheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the keys currently queued, oldest first. Used by the CLI
// status view and in tests.
func (s *SQLiteScheduler) Pending(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan job key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

var _ Scheduler = (*SQLiteScheduler)(nil)
