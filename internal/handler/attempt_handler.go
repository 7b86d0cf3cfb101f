package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/attempt"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/middleware"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/response"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/session"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/validator"
	"github.com/rs/zerolog"
)

// AttemptHandler is the REST control surface over the attempt lifecycle.
// It mirrors the WebSocket control messages so a client whose socket died
// can still start, answer, and submit over plain HTTP.
type AttemptHandler struct {
	attempts *attempt.Manager
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *attempt.Manager, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

type startAttemptResponse struct {
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type answerSavedResponse struct {
	QuestionIndex int `json:"question_index"`
}

// Start handles POST /api/v1/exams/:exam_id/attempt/start.
func (h *AttemptHandler) Start(c *gin.Context) {
	examID, studentID, ok := h.studentContext(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	deadline, err := h.attempts.Start(c.Request.Context(), examID, studentID, *req.DurationMinutes)
	if err != nil {
		response.Fail(c, attemptErrStatus(err), attemptErrCode(err))
		return
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	response.Success(c, http.StatusCreated, startAttemptResponse{
		Deadline:         deadline.UTC(),
		RemainingSeconds: int64(remaining.Seconds()),
	})
}

// RecordAnswer handles POST /api/v1/exams/:exam_id/attempt/answers.
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	examID, studentID, ok := h.studentContext(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.RecordAnswer(examID, studentID, *req.QuestionIndex, *req.SelectedOption); err != nil {
		response.Fail(c, attemptErrStatus(err), attemptErrCode(err))
		return
	}

	response.Success(c, http.StatusOK, answerSavedResponse{QuestionIndex: *req.QuestionIndex})
}

// Submit handles POST /api/v1/exams/:exam_id/attempt/submit.
func (h *AttemptHandler) Submit(c *gin.Context) {
	examID, studentID, ok := h.studentContext(c)
	if !ok {
		return
	}

	res, err := h.attempts.Submit(c.Request.Context(), examID, studentID, attempt.TriggerManual)
	if err != nil {
		response.Fail(c, attemptErrStatus(err), attemptErrCode(err))
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetState handles GET /api/v1/exams/:exam_id/attempt.
func (h *AttemptHandler) GetState(c *gin.Context) {
	examID, studentID, ok := h.studentContext(c)
	if !ok {
		return
	}

	state, err := h.attempts.GetState(examID, studentID)
	if err != nil {
		response.Fail(c, attemptErrStatus(err), attemptErrCode(err))
		return
	}

	response.Success(c, http.StatusOK, state)
}

// studentContext resolves the exam ID and the authenticated student for an
// attempt endpoint, writing the error response itself when either fails.
func (h *AttemptHandler) studentContext(c *gin.Context) (uuid.UUID, string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, "", false
	}
	if claims.Role != string(session.RoleStudent) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return uuid.Nil, "", false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, "", false
	}

	return examID, claims.ParticipantID, true
}
