package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
)

// ExamRepository handles exam definition data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetDefinition retrieves a full exam definition including its questions,
// ordered by position.
func (r *ExamRepository) GetDefinition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	def := &model.ExamDefinition{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, total_marks, passing_marks,
		        scheduled_start, scheduled_end, status
		 FROM exams WHERE id = $1`, examID,
	).Scan(&def.ID, &def.Title, &def.DurationMinutes, &def.TotalMarks,
		&def.PassingMarks, &def.ScheduledStart, &def.ScheduledEnd, &def.Status)
	if err != nil {
		return nil, fmt.Errorf("get exam %s: %w", examID, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, position, question_text, options, correct_option, marks
		 FROM questions WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, fmt.Errorf("get questions for exam %s: %w", examID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Position, &q.QuestionText, &q.Options,
			&q.CorrectOption, &q.Marks); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		def.Questions = append(def.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return def, nil
}

// ListPublishedIDs returns the IDs of all currently published exams.
// Used to prewarm the definition cache at startup.
func (r *ExamRepository) ListPublishedIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams WHERE status = $1`, model.ExamStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
