package session

import "errors"

var (
	// ErrPeerClosed is returned by Send after a peer has been closed.
	ErrPeerClosed = errors.New("peer connection closed")

	// ErrSendBufferFull is returned when a peer's outbound queue is full.
	// The caller treats the peer as departed; the enqueue is never retried.
	ErrSendBufferFull = errors.New("peer send buffer full")
)
