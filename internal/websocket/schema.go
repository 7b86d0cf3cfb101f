package websocket

import "encoding/json"

// ─── Message kinds (Client → Server) ────────────────────────────────

// Kind identifies a WebSocket message. Signaling kinds are relayed between
// participants; control kinds drive the attempt lifecycle. The set is
// closed: anything else is rejected per message without closing the
// connection.
type Kind string

const (
	// Signaling (relayed verbatim between student and proctors).
	KindJoin         Kind = "join"
	KindOffer        Kind = "offer"
	KindAnswer       Kind = "answer"
	KindICECandidate Kind = "ice-candidate"
	KindLeave        Kind = "leave"

	// Attempt control (consumed by the lifecycle manager).
	KindStartExam    Kind = "start-exam"
	KindUpdateAnswer Kind = "update-answer"
	KindSubmitExam   Kind = "submit-exam"
)

// IsSignaling reports whether the kind is relayed rather than consumed.
func (k Kind) IsSignaling() bool {
	switch k {
	case KindJoin, KindOffer, KindAnswer, KindICECandidate, KindLeave:
		return true
	}
	return false
}

// IsControl reports whether the kind drives the attempt lifecycle.
func (k Kind) IsControl() bool {
	switch k {
	case KindStartExam, KindUpdateAnswer, KindSubmitExam:
		return true
	}
	return false
}

// Message is the inbound envelope. ExamID and FromParticipantID are
// established by the connection handshake; a client-supplied ExamID is only
// validated against the session, never trusted for addressing. Payload is
// opaque to the server.
type Message struct {
	Type              Kind            `json:"type"`
	ExamID            string          `json:"examId,omitempty"`
	FromParticipantID string          `json:"fromParticipantId,omitempty"`
	ToParticipantID   string          `json:"toParticipantId,omitempty"`
	Payload           json.RawMessage `json:"payload,omitempty"`

	// Control fields (start-exam / update-answer).
	DurationMinutes int  `json:"durationMinutes,omitempty"`
	QuestionIndex   *int `json:"questionIndex,omitempty"`
	Option          *int `json:"option,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventConnection   Event = "connection"
	EventPeerGone     Event = "peer-gone"
	EventDisconnected Event = "participant-disconnected"
	EventExamStarted  Event = "exam-started"
	EventAnswerSaved  Event = "answer-saved"
	EventSubmitted    Event = "exam-submitted"
	EventError        Event = "error"
)

// ConnectionEvent greets a participant after a successful join.
type ConnectionEvent struct {
	Type   Event  `json:"type"`
	Status string `json:"status"`
}

// PeerGoneEvent tells a sender that its addressed peer has left the session.
type PeerGoneEvent struct {
	Type   Event  `json:"type"`
	PeerID string `json:"peerId"`
}

// DisconnectedEvent notifies opposite-role participants of a departure.
type DisconnectedEvent struct {
	Type          Event  `json:"type"`
	ParticipantID string `json:"participantId"`
	Role          string `json:"role"`
}

// ExamStartedEvent confirms an accepted start with the authoritative deadline.
type ExamStartedEvent struct {
	Type             Event  `json:"type"`
	Deadline         string `json:"deadline"` // RFC 3339
	RemainingSeconds int64  `json:"remainingSeconds"`
}

// AnswerSavedEvent acknowledges a recorded answer.
type AnswerSavedEvent struct {
	Type          Event `json:"type"`
	QuestionIndex int   `json:"questionIndex"`
}

// SubmittedEvent carries the final scored result.
type SubmittedEvent struct {
	Type   Event       `json:"type"`
	Result interface{} `json:"result"`
}

// ErrorEvent reports a rejected message. The connection stays open.
type ErrorEvent struct {
	Type    Event  `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
