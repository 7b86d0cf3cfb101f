package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/middleware"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/response"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/service"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/session"
	"github.com/rs/zerolog"
)

// ExamHandler serves the read-only exam surfaces: the sanitized paper a
// student renders before starting, and the live roster proctors monitor.
type ExamHandler struct {
	exams    *service.ExamService
	registry *session.Registry
	log      zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams *service.ExamService, registry *session.Registry, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:    exams,
		registry: registry,
		log:      log.With().Str("component", "exam_handler").Logger(),
	}
}

// examView is an ExamDefinition stripped of its answer key.
type examView struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	DurationMinutes int            `json:"duration_minutes"`
	TotalMarks      int            `json:"total_marks"`
	PassingMarks    float64        `json:"passing_marks"`
	ScheduledStart  *time.Time     `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time     `json:"scheduled_end,omitempty"`
	Questions       []questionView `json:"questions"`
}

type questionView struct {
	Position     int      `json:"position"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Marks        int      `json:"marks"`
}

// GetExam handles GET /api/v1/exams/:exam_id. The answer key never leaves
// the server; students receive question text, options, and marks only.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	def, err := h.exams.Definition(c.Request.Context(), examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Definition lookup failed")
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	view := examView{
		ID:              def.ID,
		Title:           def.Title,
		DurationMinutes: def.DurationMinutes,
		TotalMarks:      def.TotalMarks,
		PassingMarks:    def.PassingMarks,
		ScheduledStart:  def.ScheduledStart,
		ScheduledEnd:    def.ScheduledEnd,
		Questions:       make([]questionView, 0, len(def.Questions)),
	}
	for _, q := range def.Questions {
		view.Questions = append(view.Questions, questionView{
			Position:     q.Position,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Marks:        q.Marks,
		})
	}

	response.Success(c, http.StatusOK, view)
}

// GetRoster handles GET /api/v1/exams/:exam_id/roster. Proctors only.
func (h *ExamHandler) GetRoster(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if claims.Role != string(session.RoleProctor) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	roster := h.registry.Roster(examID)
	if roster == nil {
		roster = []session.RosterEntry{}
	}
	response.Success(c, http.StatusOK, roster)
}
