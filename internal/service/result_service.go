package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/config"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ResultService is the persistence collaborator consumed by the attempt
// lifecycle. Persist hands the result to a Redis queue drained by the
// result worker; a marker key keeps HasResult correct while the queue
// drains. If Redis is unavailable the result is written to PostgreSQL
// directly so a submission is never lost.
type ResultService struct {
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// HasResult reports whether a result already exists for the pair, counting
// results that are still queued for persistence.
func (s *ResultService) HasResult(ctx context.Context, examID uuid.UUID, studentID string) (bool, error) {
	marker := config.CacheKey.ResultMarkerKey(examID.String(), studentID)
	n, err := s.rdb.Exists(ctx, marker).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Result marker lookup failed, falling back to database")
	}

	return s.resultRepo.HasResult(ctx, examID, studentID)
}

// Persist enqueues the result for batched persistence. The marker key is set
// first so a concurrent start for the same pair observes the completed state
// immediately.
func (s *ResultService) Persist(ctx context.Context, res *model.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	marker := config.CacheKey.ResultMarkerKey(res.ExamID.String(), res.StudentID)
	if err := s.rdb.Set(ctx, marker, 1, 0).Err(); err != nil {
		// Redis is down. Persist synchronously rather than losing the result.
		s.log.Warn().Err(err).Msg("Redis unavailable, persisting result directly")
		return s.resultRepo.Insert(ctx, res)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Result enqueue failed, persisting directly")
		return s.resultRepo.Insert(ctx, res)
	}

	return nil
}
