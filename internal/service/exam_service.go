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

// ExamService serves exam definitions to the session core. Definitions are
// cached in Redis as JSON with a PostgreSQL fallback, so the hot path during
// an exam (scoring, window checks) rarely touches the database.
type ExamService struct {
	examRepo *repository.ExamRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// Definition returns the exam definition for examID, preferring the Redis
// cache and self-healing it on a miss.
func (s *ExamService) Definition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	key := config.CacheKey.ExamDefinitionKey(examID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		def := &model.ExamDefinition{}
		if jsonErr := json.Unmarshal([]byte(raw), def); jsonErr == nil {
			return def, nil
		}
		// Corrupt cache entry. Fall through to the database and rewrite it.
		s.log.Warn().Str("exam_id", examID.String()).Msg("Invalid cached definition, refreshing")
	} else if !errors.Is(err, redis.Nil) {
		// Real Redis error. The database still works, so keep going.
		s.log.Warn().Err(err).Msg("Redis definition lookup failed")
	}

	def, err := s.examRepo.GetDefinition(ctx, examID)
	if err != nil {
		return nil, err
	}

	if err := s.warm(ctx, def); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Definition cache write failed")
	}

	return def, nil
}

// PrewarmAll loads every published exam definition into Redis. Called once
// at startup before traffic is accepted so concurrent first joins don't
// stampede the database.
func (s *ExamService) PrewarmAll(ctx context.Context) error {
	ids, err := s.examRepo.ListPublishedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	for _, id := range ids {
		def, err := s.examRepo.GetDefinition(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Prewarm fetch failed")
			continue
		}
		if err := s.warm(ctx, def); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Prewarm cache write failed")
		}
	}

	s.log.Info().Int("exams", len(ids)).Msg("Definition cache prewarmed")
	return nil
}

func (s *ExamService) warm(ctx context.Context, def *model.ExamDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.ExamDefinitionKey(def.ID.String()), raw, 0).Err()
}
