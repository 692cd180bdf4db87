package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencbt/practice-backend/internal/config"
)

const (
	TimeFlushBatchSize    = 100
	TimeFlushBatchTimeout = 2 * time.Second
	TimeFlushPollTimeout  = 1 * time.Second
)

// timeFlushPayload is one enqueued remaining-time persistence.
type timeFlushPayload struct {
	AttemptID string `json:"attempt_id"`
	Seconds   int    `json:"seconds"`
}

// EnqueueTimeFlush pushes a remaining-time value onto the persistence queue.
// Countdown flush hooks call this; the worker drains it into PostgreSQL.
func EnqueueTimeFlush(ctx context.Context, rdb *redis.Client, attemptID uuid.UUID, seconds int) error {
	raw, err := json.Marshal(timeFlushPayload{AttemptID: attemptID.String(), Seconds: seconds})
	if err != nil {
		return err
	}
	return rdb.RPush(ctx, config.WorkerKey.TimeFlushQueue, raw).Err()
}

// TimeFlushWorker consumes the remaining-time queue and batch-updates the
// attempts table. The UPDATE guards (unsubmitted, non-increasing) live in SQL,
// so a stale or late flush can never resurrect time on a finished attempt.
type TimeFlushWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewTimeFlushWorker creates a new TimeFlushWorker.
func NewTimeFlushWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *TimeFlushWorker {
	return &TimeFlushWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "timeflush_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *TimeFlushWorker) Start(ctx context.Context) {
	w.log.Info().Msg("TimeFlushWorker started")

	batch := make([]*timeFlushPayload, 0, TimeFlushBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= TimeFlushBatchSize || time.Since(lastFlush) >= TimeFlushBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, TimeFlushPollTimeout, config.WorkerKey.TimeFlushQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p timeFlushPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *TimeFlushWorker) flushSafe(ctx context.Context, batch []*timeFlushPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk remaining-time update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				// Transient by contract: log and drop. The countdown
				// keeps the authoritative value in memory and the next
				// interval enqueues a fresher one anyway.
				w.log.Error().Err(err).
					Str("attempt_id", p.AttemptID).
					Int("seconds", p.Seconds).
					Msg("persistSingle failed, dropping flush")
			}
		}
	}
}

func (w *TimeFlushWorker) bulkUpdate(ctx context.Context, batch []*timeFlushPayload) error {
	n := len(batch)

	attemptIDs := make([]uuid.UUID, 0, n)
	seconds := make([]int, 0, n)

	for _, p := range batch {
		aID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, aID)
		seconds = append(seconds, p.Seconds)
	}

	query := `
		UPDATE attempts AS a
		SET time_remaining_seconds = t.seconds
		FROM (
			SELECT u.attempt_id, u.seconds
			FROM UNNEST(
				$1::uuid[],
				$2::int[]
			) AS u (attempt_id, seconds)
		) AS t
		WHERE a.id = t.attempt_id
		  AND a.submitted_at IS NULL
		  AND a.time_remaining_seconds >= t.seconds
	`

	_, err := w.pool.Exec(ctx, query, attemptIDs, seconds)
	return err
}

func (w *TimeFlushWorker) persistSingle(ctx context.Context, p *timeFlushPayload) error {
	aID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE attempts
		 SET time_remaining_seconds = $1
		 WHERE id = $2
		   AND submitted_at IS NULL
		   AND time_remaining_seconds >= $1`,
		p.Seconds, aID,
	)
	return err
}
