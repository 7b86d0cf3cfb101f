package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// ExamDefinition is everything the session core needs to run and score one
// exam: the answer key, per-question marks, and the availability window.
// It is owned by the CRUD collaborator; the core only reads it.
type ExamDefinition struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      int        `json:"total_marks"`
	PassingMarks    float64    `json:"passing_marks"` // percentage threshold
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	Status          ExamStatus `json:"status"`
	Questions       []Question `json:"questions"`
}

// Question is a single multiple-choice question within an exam definition.
// Questions are addressed by their position in the definition.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Position      int       `json:"position"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	Marks         int       `json:"marks"`
}

// AvailableAt reports whether the exam can be started at the given instant.
// A nil bound is open-ended on that side.
func (d *ExamDefinition) AvailableAt(t time.Time) bool {
	if d.ScheduledStart != nil && t.Before(*d.ScheduledStart) {
		return false
	}
	if d.ScheduledEnd != nil && t.After(*d.ScheduledEnd) {
		return false
	}
	return true
}
