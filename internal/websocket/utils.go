package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const readWait = 5 * time.Minute

// Read blocks for the next message and returns its raw bytes.
// It refreshes the read deadline first.
func Read(conn *websocket.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := conn.ReadMessage()
	return data, err
}
