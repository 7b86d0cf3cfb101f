package attempt

import (
	"fmt"
	"sort"
	"time"

	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
)

// score computes the final Result for a set of recorded answers against the
// exam definition. An answer is correct iff it selects the question's
// correct option; unanswered questions contribute zero. The percentage is
// computed from the definition's configured total marks, not from the sum
// of per-question marks, matching how exams are authored.
func score(def *model.ExamDefinition, answers map[int]int, studentID string, submittedAt time.Time) (*model.Result, error) {
	if def.TotalMarks == 0 {
		return nil, fmt.Errorf("%w: total marks is zero for exam %s", ErrMisconfigured, def.ID)
	}

	indexes := make([]int, 0, len(answers))
	for idx := range answers {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	details := make([]model.AnswerDetail, 0, len(indexes))
	marksObtained := 0

	for _, idx := range indexes {
		if idx < 0 || idx >= len(def.Questions) {
			// Answer to a question the definition doesn't have. Skip it
			// rather than failing the whole submission.
			continue
		}
		q := def.Questions[idx]
		selected := answers[idx]
		correct := selected == q.CorrectOption

		detail := model.AnswerDetail{
			QuestionIndex:  idx,
			SelectedOption: selected,
			IsCorrect:      correct,
		}
		if correct {
			detail.MarksObtained = q.Marks
			marksObtained += q.Marks
		}
		details = append(details, detail)
	}

	percentage := 100 * float64(marksObtained) / float64(def.TotalMarks)
	status := model.ResultStatusFail
	if percentage >= def.PassingMarks {
		status = model.ResultStatusPass
	}

	return &model.Result{
		ExamID:        def.ID,
		StudentID:     studentID,
		Answers:       details,
		TotalMarks:    def.TotalMarks,
		MarksObtained: marksObtained,
		Percentage:    percentage,
		Status:        status,
		SubmittedAt:   submittedAt,
	}, nil
}
