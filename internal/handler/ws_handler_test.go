package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/attempt"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/middleware"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/session"
	ws "github.com/kkmanuu/online-academicaxis-management-system/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeDirectory struct {
	defs map[uuid.UUID]*model.ExamDefinition
}

func (f *fakeDirectory) Definition(_ context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	def, ok := f.defs[examID]
	if !ok {
		return nil, assert.AnError
	}
	return def, nil
}

type fakeStore struct {
	mu      sync.Mutex
	results []*model.Result
}

func (f *fakeStore) HasResult(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results) > 0, nil
}

func (f *fakeStore) Persist(_ context.Context, res *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

func (f *fakeStore) persisted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

type wsFixture struct {
	srv    *httptest.Server
	examID uuid.UUID
	store  *fakeStore
}

func setupWS(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Algebra basics",
		DurationMinutes: 30,
		TotalMarks:      4,
		PassingMarks:    50,
		Status:          model.ExamStatusPublished,
		Questions: []model.Question{
			{Position: 0, CorrectOption: 2, Marks: 1},
			{Position: 1, CorrectOption: 0, Marks: 3},
		},
	}

	log := zerolog.Nop()
	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	registry := session.NewRegistry(log)
	relay := session.NewRelay(registry, log)
	attempts := attempt.NewManager(dir, store, log)

	wsHandler := NewWSHandler(registry, relay, attempts, nil, 64, log)

	r := gin.New()
	group := r.Group("/ws/v1")
	group.Use(middleware.RequireWSAuth(testSecret))
	group.GET("/exams/:exam_id", wsHandler.ExamSession)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, examID: def.ID, store: store}
}

func mintToken(t *testing.T, participantID, role string) string {
	t.Helper()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		ParticipantID: participantID,
		Role:          role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (f *wsFixture) dial(t *testing.T, participantID, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/v1/exams/" + f.examID.String() +
		"?token=" + mintToken(t, participantID, role)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// Every accepted connection is greeted first.
	var greeting ws.ConnectionEvent
	readJSON(t, conn, &greeting)
	require.Equal(t, ws.EventConnection, greeting.Type)
	require.Equal(t, "success", greeting.Status)

	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func writeJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestWSRejectsMissingToken(t *testing.T) {
	f := setupWS(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/v1/exams/" + f.examID.String()
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSRejectsBadExamID(t *testing.T) {
	f := setupWS(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/v1/exams/not-a-uuid?token=" + mintToken(t, "student-1", "student")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWSRejectsMismatchedIdentity(t *testing.T) {
	f := setupWS(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") +
		"/ws/v1/exams/" + f.examID.String() +
		"?participantId=someone-else&token=" + mintToken(t, "student-1", "student")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSignalingStudentToProctor(t *testing.T) {
	f := setupWS(t)

	proctor := f.dial(t, "proctor-1", "proctor")
	student := f.dial(t, "student-1", "student")

	writeJSON(t, student, ws.Message{
		Type:    ws.KindOffer,
		Payload: json.RawMessage(`{"sdp":"v=0"}`),
	})

	var relayed ws.Message
	readJSON(t, proctor, &relayed)
	assert.Equal(t, ws.KindOffer, relayed.Type)
	assert.Equal(t, "student-1", relayed.FromParticipantID)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(relayed.Payload))

	// Targeted answer flows back to the student only.
	writeJSON(t, proctor, ws.Message{
		Type:            ws.KindAnswer,
		ToParticipantID: "student-1",
		Payload:         json.RawMessage(`{"sdp":"v=1"}`),
	})

	readJSON(t, student, &relayed)
	assert.Equal(t, ws.KindAnswer, relayed.Type)
	assert.Equal(t, "proctor-1", relayed.FromParticipantID)
}

func TestDisconnectNotifiesProctor(t *testing.T) {
	f := setupWS(t)

	proctor := f.dial(t, "proctor-1", "proctor")
	student := f.dial(t, "student-1", "student")

	require.NoError(t, student.Close())

	var event ws.DisconnectedEvent
	readJSON(t, proctor, &event)
	assert.Equal(t, ws.EventDisconnected, event.Type)
	assert.Equal(t, "student-1", event.ParticipantID)
	assert.Equal(t, "student", event.Role)
}

func TestAttemptLifecycleOverSocket(t *testing.T) {
	f := setupWS(t)
	student := f.dial(t, "student-1", "student")

	writeJSON(t, student, ws.Message{Type: ws.KindStartExam, DurationMinutes: 30})
	var started ws.ExamStartedEvent
	readJSON(t, student, &started)
	assert.Equal(t, ws.EventExamStarted, started.Type)
	assert.InDelta(t, 1800, started.RemainingSeconds, 5)

	idx, opt := 0, 2
	writeJSON(t, student, ws.Message{Type: ws.KindUpdateAnswer, QuestionIndex: &idx, Option: &opt})
	var saved ws.AnswerSavedEvent
	readJSON(t, student, &saved)
	assert.Equal(t, ws.EventAnswerSaved, saved.Type)
	assert.Equal(t, 0, saved.QuestionIndex)

	writeJSON(t, student, ws.Message{Type: ws.KindSubmitExam})
	var submitted struct {
		Type   ws.Event     `json:"type"`
		Result model.Result `json:"result"`
	}
	readJSON(t, student, &submitted)
	assert.Equal(t, ws.EventSubmitted, submitted.Type)
	assert.Equal(t, 1, submitted.Result.MarksObtained)
	assert.Equal(t, model.ResultStatusFail, submitted.Result.Status)

	require.Equal(t, 1, f.store.persisted())
}

func TestDisconnectPreservesAttempt(t *testing.T) {
	f := setupWS(t)

	student := f.dial(t, "student-1", "student")
	writeJSON(t, student, ws.Message{Type: ws.KindStartExam, DurationMinutes: 30})
	var started ws.ExamStartedEvent
	readJSON(t, student, &started)
	require.Equal(t, ws.EventExamStarted, started.Type)

	// Losing the connection ends the session membership, not the attempt.
	require.NoError(t, student.Close())

	student = f.dial(t, "student-1", "student")
	writeJSON(t, student, ws.Message{Type: ws.KindSubmitExam})
	var submitted ws.SubmittedEvent
	readJSON(t, student, &submitted)
	assert.Equal(t, ws.EventSubmitted, submitted.Type)
	assert.Equal(t, 1, f.store.persisted())
}

func TestProctorCannotDriveAttempt(t *testing.T) {
	f := setupWS(t)
	proctor := f.dial(t, "proctor-1", "proctor")

	writeJSON(t, proctor, ws.Message{Type: ws.KindStartExam, DurationMinutes: 30})

	var event ws.ErrorEvent
	readJSON(t, proctor, &event)
	assert.Equal(t, ws.EventError, event.Type)
	assert.Equal(t, "FORBIDDEN", event.Code)
}

func TestUnknownMessageTypeKeepsConnectionOpen(t *testing.T) {
	f := setupWS(t)
	student := f.dial(t, "student-1", "student")

	writeJSON(t, student, ws.Message{Type: "ping"})

	var event ws.ErrorEvent
	readJSON(t, student, &event)
	assert.Equal(t, ws.EventError, event.Type)
	assert.Equal(t, "UNKNOWN_MESSAGE_TYPE", event.Code)

	// The connection survives the rejected message.
	writeJSON(t, student, ws.Message{Type: ws.KindStartExam, DurationMinutes: 30})
	var started ws.ExamStartedEvent
	readJSON(t, student, &started)
	assert.Equal(t, ws.EventExamStarted, started.Type)
}
