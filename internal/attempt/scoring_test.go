package attempt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoQuestionExam() *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:           uuid.New(),
		Title:        "Algebra basics",
		TotalMarks:   4,
		PassingMarks: 50,
		Status:       model.ExamStatusPublished,
		Questions: []model.Question{
			{Position: 0, CorrectOption: 2, Marks: 1},
			{Position: 1, CorrectOption: 0, Marks: 3},
		},
	}
}

func TestScorePartialCredit(t *testing.T) {
	def := twoQuestionExam()
	now := time.Now()

	// First question right (1 mark), second wrong.
	res, err := score(def, map[int]int{0: 2, 1: 3}, "student-1", now)
	require.NoError(t, err)

	assert.Equal(t, 1, res.MarksObtained)
	assert.Equal(t, 4, res.TotalMarks)
	assert.InDelta(t, 25.0, res.Percentage, 1e-9)
	assert.Equal(t, model.ResultStatusFail, res.Status)
	assert.Equal(t, now, res.SubmittedAt)

	require.Len(t, res.Answers, 2)
	assert.True(t, res.Answers[0].IsCorrect)
	assert.Equal(t, 1, res.Answers[0].MarksObtained)
	assert.False(t, res.Answers[1].IsCorrect)
	assert.Equal(t, 0, res.Answers[1].MarksObtained)
}

func TestScoreFullMarksPasses(t *testing.T) {
	def := twoQuestionExam()

	res, err := score(def, map[int]int{0: 2, 1: 0}, "student-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 4, res.MarksObtained)
	assert.InDelta(t, 100.0, res.Percentage, 1e-9)
	assert.Equal(t, model.ResultStatusPass, res.Status)
}

func TestScoreExactThresholdPasses(t *testing.T) {
	def := twoQuestionExam()
	def.PassingMarks = 25

	res, err := score(def, map[int]int{0: 2}, "student-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ResultStatusPass, res.Status)
}

func TestScoreNoAnswers(t *testing.T) {
	def := twoQuestionExam()

	res, err := score(def, map[int]int{}, "student-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, res.MarksObtained)
	assert.InDelta(t, 0.0, res.Percentage, 1e-9)
	assert.Equal(t, model.ResultStatusFail, res.Status)
	assert.Empty(t, res.Answers)
}

func TestScoreSkipsOutOfRangeAnswers(t *testing.T) {
	def := twoQuestionExam()

	res, err := score(def, map[int]int{0: 2, 7: 1, -1: 0}, "student-1", time.Now())
	require.NoError(t, err)

	require.Len(t, res.Answers, 1)
	assert.Equal(t, 0, res.Answers[0].QuestionIndex)
	assert.Equal(t, 1, res.MarksObtained)
}

func TestScoreZeroTotalMarksIsMisconfigured(t *testing.T) {
	def := twoQuestionExam()
	def.TotalMarks = 0

	_, err := score(def, map[int]int{0: 2}, "student-1", time.Now())
	require.ErrorIs(t, err, ErrMisconfigured)
}
