package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// conn is one player's websocket session. Reads happen on the read pump,
// writes are serialized through the send channel so room loops never block
// on a slow peer.
type conn struct {
	playerID string
	ws       *websocket.Conn
	send     chan []byte
	log      zerolog.Logger

	heartbeat time.Duration
	closeOnce chan struct{}
}

func newConn(playerID string, ws *websocket.Conn, heartbeat time.Duration, log zerolog.Logger) *conn {
	return &conn{
		playerID:  playerID,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		log:       log.With().Str("player", playerID).Logger(),
		heartbeat: heartbeat,
		closeOnce: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump. A peer that cannot drain its
// buffer is cut off rather than letting backpressure reach the rooms.
func (c *conn) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.log.Warn().Msg("send buffer full, dropping connection")
		c.close()
	}
}

func (c *conn) close() {
	select {
	case <-c.closeOnce:
	default:
		close(c.closeOnce)
		_ = c.ws.Close()
	}
}

// writePump serializes outgoing frames and pings idle peers. The heartbeat
// interval is conservative (longer than worst-case proof generation) since
// proving may block a client's event loop; missing two pings ends the
// session via the read deadline.
func (c *conn) writePump() {
	ticker := time.NewTicker(c.heartbeat)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeOnce:
			return
		}
	}
}

// readPump delivers inbound frames to handler until the peer drops.
func (c *conn) readPump(handler func(playerID string, frame []byte)) {
	defer c.close()
	deadline := 2 * c.heartbeat
	_ = c.ws.SetReadDeadline(time.Now().Add(deadline))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(deadline))
		handler(c.playerID, frame)
	}
}
