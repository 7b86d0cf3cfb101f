package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const peerWriteWait = 10 * time.Second

// Peer adapts a gorilla WebSocket connection into a Handle. All writes go
// through a bounded queue drained by a single writer goroutine, so WebSocket
// writes are serialized and a slow consumer can never block the sender:
// the queue fills up and Send fails instead.
type Peer struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

// NewPeer wraps conn and starts the writer goroutine. buffer is the
// outbound queue capacity.
func NewPeer(conn *websocket.Conn, buffer int, log zerolog.Logger) *Peer {
	p := &Peer{
		conn: conn,
		out:  make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log,
	}
	go p.writeLoop()
	return p
}

func (p *Peer) writeLoop() {
	for {
		select {
		case data := <-p.out:
			p.conn.SetWriteDeadline(time.Now().Add(peerWriteWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.log.Debug().Err(err).Msg("Peer write failed")
				p.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}

// Send enqueues data for delivery. It never blocks: a closed peer returns
// ErrPeerClosed and a full queue returns ErrSendBufferFull. Either error
// means the participant should be dropped from its session.
func (p *Peer) Send(data []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}

	select {
	case p.out <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer goroutine. Idempotent. The underlying connection
// is owned and closed by the gateway, not the peer.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}

// Done is closed when the peer has been closed. The gateway watches it to
// tear down the transport when the peer is dropped from its session.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}
