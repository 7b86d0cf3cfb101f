package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/config"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the result persistence queue and writes rows to
// PostgreSQL in batches. The primary key on (exam_id, student_id) makes a
// replayed row a no-op, so requeueing on failure is always safe.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.Result, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var res model.Result
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &res)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.Result) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk result insert failed, using fallback")

		for _, res := range batch {
			if err := w.persistSingle(ctx, res); err != nil {
				w.log.Error().Err(err).
					Str("exam_id", res.ExamID.String()).
					Str("student_id", res.StudentID).
					Msg("Single result insert failed, requeueing")
				raw, _ := json.Marshal(res)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

func (w *ResultWorker) bulkInsertResults(ctx context.Context, batch []*model.Result) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]string, 0, n)
	answers := make([]string, 0, n)
	totals := make([]int, 0, n)
	obtained := make([]int, 0, n)
	percentages := make([]float64, 0, n)
	statuses := make([]string, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, res := range batch {
		raw, err := json.Marshal(res.Answers)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, res.ExamID)
		students = append(students, res.StudentID)
		answers = append(answers, string(raw))
		totals = append(totals, res.TotalMarks)
		obtained = append(obtained, res.MarksObtained)
		percentages = append(percentages, res.Percentage)
		statuses = append(statuses, string(res.Status))
		submittedAts = append(submittedAts, res.SubmittedAt)
	}

	query := `
		INSERT INTO results
		  (exam_id, student_id, answers, total_marks, marks_obtained,
		   percentage, status, submitted_at)
		SELECT
			u.exam_id,
			u.student_id,
			u.answers::jsonb,
			u.total_marks,
			u.marks_obtained,
			u.percentage,
			u.status,
			u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::int[],
			$5::int[],
			$6::float8[],
			$7::text[],
			$8::timestamptz[]
		) AS u (exam_id, student_id, answers, total_marks, marks_obtained,
		        percentage, status, submitted_at)
		ON CONFLICT (exam_id, student_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query,
		examIDs, students, answers, totals, obtained, percentages, statuses, submittedAts)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, res *model.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO results
		   (exam_id, student_id, answers, total_marks, marks_obtained,
		    percentage, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		res.ExamID, res.StudentID, answers, res.TotalMarks, res.MarksObtained,
		res.Percentage, res.Status, res.SubmittedAt,
	)
	return err
}
