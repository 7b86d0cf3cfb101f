package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Role distinguishes the two sides of an exam session.
type Role string

const (
	RoleStudent Role = "student"
	RoleProctor Role = "proctor"
)

// ParseRole validates a role string from a handshake.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleProctor:
		return Role(s), true
	}
	return "", false
}

// Opposite returns the other role. Signaling always flows between roles,
// never within one.
func (r Role) Opposite() Role {
	if r == RoleStudent {
		return RoleProctor
	}
	return RoleStudent
}

// Handle is the send-only side of a participant's transport connection.
// Send must not block; implementations queue or fail fast. The registry
// never owns the transport's lifecycle, only the handle.
type Handle interface {
	Send(data []byte) error
	Close()
}

// Participant is one connected member of an exam session.
type Participant struct {
	ID       string
	Role     Role
	Handle   Handle
	JoinedAt time.Time
}

// examSession tracks the participants of a single active exam.
// Insertion order is preserved for ParticipantsOfRole.
type examSession struct {
	participants map[string]*Participant
	order        []string
}

// Registry is the process-wide table of active exam sessions. Sessions are
// created lazily on first join and deleted when their last participant
// leaves. Pure bookkeeping; routing and lifecycle rules live elsewhere.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*examSession
	log      zerolog.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*examSession),
		log:      log.With().Str("component", "session_registry").Logger(),
	}
}

// Join registers a participant in the exam's session, creating the session
// if needed. Re-joining with the same participant ID replaces the previous
// handle (reconnect) rather than erroring; the stale handle is closed
// asynchronously so a hung transport cannot block the registry.
// Returns true when an existing handle was replaced.
func (r *Registry) Join(examID uuid.UUID, p *Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[examID]
	if !ok {
		sess = &examSession{participants: make(map[string]*Participant)}
		r.sessions[examID] = sess
	}

	prev, replaced := sess.participants[p.ID]
	if replaced {
		go prev.Handle.Close()
		r.log.Info().
			Str("exam_id", examID.String()).
			Str("participant_id", p.ID).
			Msg("Participant reconnected, replacing handle")
	} else {
		sess.order = append(sess.order, p.ID)
	}

	sess.participants[p.ID] = p
	return replaced
}

// Leave removes a participant and deletes the session if it becomes empty.
// Safe to call for unknown exams or participants (no-op). Returns the
// removed participant, if any.
func (r *Registry) Leave(examID uuid.UUID, participantID string) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[examID]
	if !ok {
		return nil, false
	}

	p, ok := sess.participants[participantID]
	if !ok {
		return nil, false
	}

	delete(sess.participants, participantID)
	for i, id := range sess.order {
		if id == participantID {
			sess.order = append(sess.order[:i], sess.order[i+1:]...)
			break
		}
	}

	if len(sess.participants) == 0 {
		delete(r.sessions, examID)
	}

	return p, true
}

// LeaveIf removes the participant only while it still owns the given handle.
// A reconnect replaces the handle, so the stale connection's teardown must
// not evict its successor.
func (r *Registry) LeaveIf(examID uuid.UUID, participantID string, h Handle) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[examID]
	if !ok {
		return nil, false
	}

	p, ok := sess.participants[participantID]
	if !ok || p.Handle != h {
		return nil, false
	}

	delete(sess.participants, participantID)
	for i, id := range sess.order {
		if id == participantID {
			sess.order = append(sess.order[:i], sess.order[i+1:]...)
			break
		}
	}

	if len(sess.participants) == 0 {
		delete(r.sessions, examID)
	}

	return p, true
}

// Find returns the participant with the given ID in the exam's session.
func (r *Registry) Find(examID uuid.UUID, participantID string) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[examID]
	if !ok {
		return nil, false
	}
	p, ok := sess.participants[participantID]
	return p, ok
}

// ParticipantsOfRole returns the exam's participants holding the given role,
// in insertion order. Callers must not rely on ordering for correctness.
func (r *Registry) ParticipantsOfRole(examID uuid.UUID, role Role) []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[examID]
	if !ok {
		return nil
	}

	var out []*Participant
	for _, id := range sess.order {
		if p := sess.participants[id]; p != nil && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// RosterEntry is a read-only snapshot of one connected participant,
// served to the monitoring surface.
type RosterEntry struct {
	ParticipantID string    `json:"participant_id"`
	Role          Role      `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Roster returns a snapshot of every participant in the exam's session.
func (r *Registry) Roster(examID uuid.UUID) []RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[examID]
	if !ok {
		return nil
	}

	out := make([]RosterEntry, 0, len(sess.order))
	for _, id := range sess.order {
		if p := sess.participants[id]; p != nil {
			out = append(out, RosterEntry{
				ParticipantID: p.ID,
				Role:          p.Role,
				JoinedAt:      p.JoinedAt,
			})
		}
	}
	return out
}

// SessionCount returns the number of active exam sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
