package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ResultWriter persists quiz results.
type ResultWriter interface {
	InsertBatch(ctx context.Context, results []*model.QuizResult) error
	Insert(ctx context.Context, result *model.QuizResult) error
}

// ResultWorker drains the result queue into the database in batches.
type ResultWorker struct {
	store ResultWriter
	rdb   *redis.Client
	log   zerolog.Logger

	batchSize      int
	batchTimeout   time.Duration
	pollTimeout    time.Duration
	requeueBackoff time.Duration
}

func NewResultWorker(store ResultWriter, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		store:          store,
		rdb:            rdb,
		log:            log.With().Str("component", "result_worker").Logger(),
		batchSize:      BatchSize,
		batchTimeout:   BatchTimeout,
		pollTimeout:    PollTimeout,
		requeueBackoff: 2 * time.Second,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.QuizResult, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, w.pollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(w.pollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var r model.QuizResult
			if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed result payload")
				continue
			}

			batch = append(batch, &r)
		}
	}
}

// ----------------------------------------------------------------
// Bulk insert, then row-by-row, then requeue
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.QuizResult) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk result insert failed, using fallback")

	requeue := make([]*model.QuizResult, 0)
	for _, r := range batch {
		if err := w.store.Insert(ctx, r); err != nil {
			w.log.Error().Err(err).Str("result_id", r.ID).Msg("Result insert failed, requeueing")
			requeue = append(requeue, r)
		}
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ResultWorker) requeue(ctx context.Context, items []*model.QuizResult) {
	pipe := w.rdb.Pipeline()
	for _, r := range items {
		data, _ := json.Marshal(r)
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue results to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed results back to Redis")
	// Avoid thrashing while the database is down.
	time.Sleep(w.requeueBackoff)
}
