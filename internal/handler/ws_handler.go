package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/attempt"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/middleware"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/response"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/session"
	ws "github.com/kkmanuu/online-academicaxis-management-system/internal/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades authenticated HTTP requests into exam session
// connections and dispatches their messages: signaling kinds go to the
// relay, control kinds to the attempt manager. A rejected message produces
// an error event; the connection itself stays open.
type WSHandler struct {
	registry   *session.Registry
	relay      *session.Relay
	attempts   *attempt.Manager
	upgrader   websocket.Upgrader
	sendBuffer int
	log        zerolog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	registry *session.Registry,
	relay *session.Relay,
	attempts *attempt.Manager,
	allowedOrigins []string,
	sendBuffer int,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		registry:   registry,
		relay:      relay,
		attempts:   attempts,
		upgrader:   buildUpgrader(allowedOrigins),
		sendBuffer: sendBuffer,
		log:        log.With().Str("component", "ws_gateway").Logger(),
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser client. The token check already ran.
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// ExamSession handles GET /ws/v1/exams/:exam_id.
//
// The exam ID comes from the path and the participant identity from the
// verified token claims. Both are fixed for the connection's lifetime;
// envelope fields can restate them but never override them.
func (h *WSHandler) ExamSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	role, ok := session.ParseRole(claims.Role)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadHandshake)
		return
	}

	if q := c.Query("participantId"); q != "" && q != claims.ParticipantID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}
	if q := c.Query("role"); q != "" && q != string(role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own HTTP error.
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	peer := session.NewPeer(conn, h.sendBuffer, h.log)
	participant := &session.Participant{
		ID:       claims.ParticipantID,
		Role:     role,
		Handle:   peer,
		JoinedAt: time.Now(),
	}
	h.registry.Join(examID, participant)
	defer h.relay.DropIf(examID, participant.ID, peer)

	// If the peer is dropped elsewhere (delivery failure, reconnect), close
	// the transport so the read loop below unblocks.
	go func() {
		<-peer.Done()
		conn.Close()
	}()

	h.log.Info().
		Str("exam_id", examID.String()).
		Str("participant_id", participant.ID).
		Str("role", string(role)).
		Msg("Participant connected")

	h.send(peer, ws.ConnectionEvent{Type: ws.EventConnection, Status: "success"})

	h.readLoop(c, examID, participant, peer, conn)
}

func (h *WSHandler) readLoop(c *gin.Context, examID uuid.UUID, p *session.Participant, peer *session.Peer, conn *websocket.Conn) {
	for {
		data, err := ws.Read(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().
					Err(err).
					Str("exam_id", examID.String()).
					Str("participant_id", p.ID).
					Msg("Connection read ended")
			}
			return
		}

		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(peer, response.ErrInvalidPayload)
			continue
		}

		// Restated identity must match the handshake.
		if msg.ExamID != "" && msg.ExamID != examID.String() {
			h.sendError(peer, response.ErrForbidden)
			continue
		}
		if msg.FromParticipantID != "" && msg.FromParticipantID != p.ID {
			h.sendError(peer, response.ErrForbidden)
			continue
		}

		switch {
		case msg.Type.IsSignaling():
			h.relay.Forward(examID, p, &msg)
		case msg.Type == ws.KindStartExam:
			h.handleStart(c, examID, p, peer, &msg)
		case msg.Type == ws.KindUpdateAnswer:
			h.handleAnswer(examID, p, peer, &msg)
		case msg.Type == ws.KindSubmitExam:
			h.handleSubmit(c, examID, p, peer)
		default:
			h.sendError(peer, response.ErrUnknownMessageType)
		}
	}
}

func (h *WSHandler) handleStart(c *gin.Context, examID uuid.UUID, p *session.Participant, peer *session.Peer, msg *ws.Message) {
	if p.Role != session.RoleStudent {
		h.sendError(peer, response.ErrForbidden)
		return
	}

	deadline, err := h.attempts.Start(c.Request.Context(), examID, p.ID, msg.DurationMinutes)
	if err != nil {
		h.sendError(peer, attemptErrCode(err))
		return
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	h.send(peer, ws.ExamStartedEvent{
		Type:             ws.EventExamStarted,
		Deadline:         deadline.UTC().Format(time.RFC3339),
		RemainingSeconds: int64(remaining.Seconds()),
	})
}

func (h *WSHandler) handleAnswer(examID uuid.UUID, p *session.Participant, peer *session.Peer, msg *ws.Message) {
	if p.Role != session.RoleStudent {
		h.sendError(peer, response.ErrForbidden)
		return
	}
	if msg.QuestionIndex == nil || msg.Option == nil {
		h.sendError(peer, response.ErrInvalidPayload)
		return
	}

	if err := h.attempts.RecordAnswer(examID, p.ID, *msg.QuestionIndex, *msg.Option); err != nil {
		h.sendError(peer, attemptErrCode(err))
		return
	}

	h.send(peer, ws.AnswerSavedEvent{Type: ws.EventAnswerSaved, QuestionIndex: *msg.QuestionIndex})
}

func (h *WSHandler) handleSubmit(c *gin.Context, examID uuid.UUID, p *session.Participant, peer *session.Peer) {
	if p.Role != session.RoleStudent {
		h.sendError(peer, response.ErrForbidden)
		return
	}

	res, err := h.attempts.Submit(c.Request.Context(), examID, p.ID, attempt.TriggerManual)
	if err != nil {
		h.sendError(peer, attemptErrCode(err))
		return
	}

	h.send(peer, ws.SubmittedEvent{Type: ws.EventSubmitted, Result: res})
}

// send routes an event through the peer's write queue. Direct writes to the
// connection are off limits once the peer's writer goroutine owns it.
func (h *WSHandler) send(peer *session.Peer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("Event marshal failed")
		return
	}
	if err := peer.Send(data); err != nil {
		h.log.Debug().Err(err).Msg("Event undeliverable")
	}
}

func (h *WSHandler) sendError(peer *session.Peer, code response.ErrCode) {
	h.send(peer, ws.ErrorEvent{
		Type:    ws.EventError,
		Code:    string(code),
		Message: response.GetMessage(code),
	})
}
