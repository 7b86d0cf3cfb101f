package session

import (
	"encoding/json"

	"github.com/google/uuid"
	ws "github.com/kkmanuu/online-academicaxis-management-system/internal/websocket"
	"github.com/rs/zerolog"
)

// Relay forwards signaling envelopes between the participants of one exam
// session. Payloads pass through untouched; the relay only validates the
// kind and resolves addressing via the registry. Delivery failures are
// handled locally: a participant whose handle rejects a send is dropped
// from the session, never retried, and the failure is never surfaced to
// the attempt lifecycle.
type Relay struct {
	registry *Registry
	log      zerolog.Logger
}

// NewRelay creates a relay over the given registry.
func NewRelay(registry *Registry, log zerolog.Logger) *Relay {
	return &Relay{
		registry: registry,
		log:      log.With().Str("component", "signaling_relay").Logger(),
	}
}

// Forward routes one signaling envelope from a participant.
//
// With an explicit target the envelope is delivered to that participant
// only; if the target has left, the sender receives a peer-gone notice.
// Without a target the envelope is broadcast to every participant of the
// opposite role. Zero recipients is a silent drop, since a proctor may
// not be watching yet.
func (r *Relay) Forward(examID uuid.UUID, from *Participant, msg *ws.Message) {
	out := ws.Message{
		Type:              msg.Type,
		FromParticipantID: from.ID,
		Payload:           msg.Payload,
	}
	data, err := json.Marshal(out)
	if err != nil {
		r.log.Error().Err(err).Msg("Envelope marshal failed")
		return
	}

	if msg.ToParticipantID != "" {
		target, ok := r.registry.Find(examID, msg.ToParticipantID)
		if !ok {
			r.notifyPeerGone(from, msg.ToParticipantID)
			return
		}
		r.deliver(examID, target, data)
		return
	}

	for _, p := range r.registry.ParticipantsOfRole(examID, from.Role.Opposite()) {
		r.deliver(examID, p, data)
	}
}

// NotifyDisconnect tells every opposite-role participant that one side of
// the session has dropped, so proctors can detect a dead feed and students
// can detect proctor loss. Informational only.
func (r *Relay) NotifyDisconnect(examID uuid.UUID, departed *Participant) {
	event := ws.DisconnectedEvent{
		Type:          ws.EventDisconnected,
		ParticipantID: departed.ID,
		Role:          string(departed.Role),
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).Msg("Disconnect event marshal failed")
		return
	}

	for _, p := range r.registry.ParticipantsOfRole(examID, departed.Role.Opposite()) {
		r.deliver(examID, p, data)
	}
}

// Drop removes a participant from its session, closes its handle, and
// notifies the opposite role. Used by the gateway on connection teardown
// and internally on delivery failure.
func (r *Relay) Drop(examID uuid.UUID, participantID string) {
	p, ok := r.registry.Leave(examID, participantID)
	if !ok {
		return
	}
	p.Handle.Close()
	r.NotifyDisconnect(examID, p)
}

// DropIf is Drop guarded by handle identity: the participant is removed only
// while it still owns h. Gateways use it on teardown so a connection replaced
// by a reconnect does not evict its successor.
func (r *Relay) DropIf(examID uuid.UUID, participantID string, h Handle) {
	p, ok := r.registry.LeaveIf(examID, participantID, h)
	if !ok {
		return
	}
	p.Handle.Close()
	r.NotifyDisconnect(examID, p)
}

func (r *Relay) deliver(examID uuid.UUID, to *Participant, data []byte) {
	if err := to.Handle.Send(data); err != nil {
		// Treat the recipient as departed. The Leave inside Drop is what
		// terminates any recursion through NotifyDisconnect.
		r.log.Warn().
			Err(err).
			Str("exam_id", examID.String()).
			Str("participant_id", to.ID).
			Msg("Delivery failed, dropping participant")
		r.Drop(examID, to.ID)
	}
}

func (r *Relay) notifyPeerGone(sender *Participant, peerID string) {
	event := ws.PeerGoneEvent{Type: ws.EventPeerGone, PeerID: peerID}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := sender.Handle.Send(data); err != nil {
		r.log.Debug().Err(err).Str("participant_id", sender.ID).Msg("Peer-gone notice undeliverable")
	}
}
