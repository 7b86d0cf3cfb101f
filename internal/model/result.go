package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the pass/fail outcome of a scored attempt.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "pass"
	ResultStatusFail ResultStatus = "fail"
)

// AnswerDetail records per-question correctness for one answered question.
type AnswerDetail struct {
	QuestionIndex  int  `json:"question_index"`
	SelectedOption int  `json:"selected_option"`
	IsCorrect      bool `json:"is_correct"`
	MarksObtained  int  `json:"marks_obtained"`
}

// Result is the durable outcome of one exam attempt. The session core
// produces it exactly once per (exam, student) pair and hands it to the
// persistence layer; from then on the stored row is the source of truth.
type Result struct {
	ExamID        uuid.UUID      `json:"exam_id"`
	StudentID     string         `json:"student_id"`
	Answers       []AnswerDetail `json:"answers"`
	TotalMarks    int            `json:"total_marks"`
	MarksObtained int            `json:"marks_obtained"`
	Percentage    float64        `json:"percentage"`
	Status        ResultStatus   `json:"status"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}
