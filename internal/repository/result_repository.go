package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
)

// ResultRepository handles durable exam result rows.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// HasResult reports whether a durable result exists for the pair.
func (r *ResultRepository) HasResult(ctx context.Context, examID uuid.UUID, studentID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM results WHERE exam_id = $1 AND student_id = $2)`,
		examID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists, nil
}

// Insert stores a single result row. The primary key on (exam_id, student_id)
// makes a duplicate insert a no-op, so replays from the queue are harmless.
func (r *ResultRepository) Insert(ctx context.Context, res *model.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results
		   (exam_id, student_id, answers, total_marks, marks_obtained,
		    percentage, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		res.ExamID, res.StudentID, answers, res.TotalMarks, res.MarksObtained,
		res.Percentage, res.Status, res.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
