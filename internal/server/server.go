// Package server is the coordinator's edge: it upgrades websocket
// connections, keeps the player/connection registry, routes messages into
// room event loops, and owns the bounded verification pool.
package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"mentalpoker/internal/config"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/room"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	table    *handrank.Table
	pool     *verifyPool
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conns      map[string]*conn
	rooms      map[string]*room.Room
	playerRoom map[string]string
}

// New wires the coordinator together. The verifier and rank table are
// process-global, read-only after preload, and shared by every room.
func New(cfg config.Config, log zerolog.Logger, verifier zkverify.Verifier, table *handrank.Table) *Server {
	s := &Server{
		cfg:   cfg,
		log:   log,
		table: table,
		pool:  newVerifyPool(verifier, cfg.VerifyWorkers, cfg.VerifyQueuePerPlayer, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 16,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:      map[string]*conn{},
		rooms:      map[string]*room.Room{},
		playerRoom: map[string]string{},
	}
	return s
}

// Handler serves the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe blocks serving the configured address.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("coordinator listening")
	return http.ListenAndServe(s.cfg.ListenAddr, s.Handler())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	playerID := uuid.NewV4().String()
	c := newConn(playerID, ws, s.cfg.HeartbeatIntervalD(), s.log)

	s.mu.Lock()
	s.conns[playerID] = c
	s.mu.Unlock()

	go c.writePump()
	s.Send(playerID, wire.TypeConnected, wire.Connected{PlayerID: playerID})
	c.readPump(s.dispatch)

	// Read pump returned: the peer is gone.
	s.dropConnection(playerID)
}

func (s *Server) dropConnection(playerID string) {
	s.mu.Lock()
	c := s.conns[playerID]
	delete(s.conns, playerID)
	roomID := s.playerRoom[playerID]
	delete(s.playerRoom, playerID)
	rm := s.rooms[roomID]
	s.mu.Unlock()

	if c != nil {
		c.close()
	}
	if rm != nil {
		rm.Disconnected(playerID)
	}
	s.log.Info().Str("player", playerID).Msg("connection closed")
}

// dispatch routes one inbound frame. join_room is handled here (it creates
// the room binding); everything else is forwarded into the player's room.
func (s *Server) dispatch(playerID string, frame []byte) {
	env, err := wire.Decode(frame)
	if err != nil {
		s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeInvalidMessage, Message: err.Error()})
		return
	}
	if env.Type == wire.TypeJoinRoom {
		s.handleJoin(playerID, env)
		return
	}

	s.mu.Lock()
	roomID, ok := s.playerRoom[playerID]
	rm := s.rooms[roomID]
	s.mu.Unlock()
	if !ok || rm == nil {
		s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeNotInRoom, Message: "join a room first"})
		return
	}
	if env.Type == wire.TypeLeaveRoom {
		s.mu.Lock()
		delete(s.playerRoom, playerID)
		s.mu.Unlock()
	}
	rm.HandleMessage(playerID, env)
}

func (s *Server) handleJoin(playerID string, env wire.Envelope) {
	var m wire.JoinRoom
	if err := wire.DecodeValue(env, &m); err != nil {
		s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeInvalidMessage, Message: err.Error()})
		return
	}
	pub, err := mpcrypto.PointFromStrings(m.PublicKeyX, m.PublicKeyY)
	if err != nil || pub.IsIdentity() {
		s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeInvalidMessage, Message: "invalid public key"})
		return
	}

	s.mu.Lock()
	if _, already := s.playerRoom[playerID]; already {
		s.mu.Unlock()
		s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeInvalidMessage, Message: "already in a room"})
		return
	}
	var rm *room.Room
	if m.RoomID == "" {
		id := uuid.NewV4().String()
		rm, err = room.New(id, s.cfg, s.log, s, s.pool, s.table, s.removeRoom)
		if err != nil {
			s.mu.Unlock()
			s.log.Error().Err(err).Msg("create room")
			s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeInvalidMessage, Message: "room creation failed"})
			return
		}
		s.rooms[id] = rm
	} else {
		rm = s.rooms[m.RoomID]
		if rm == nil {
			s.mu.Unlock()
			s.Send(playerID, wire.TypeError, wire.Error{Code: wire.CodeRoomNotFound, Message: "no such room"})
			return
		}
	}
	s.playerRoom[playerID] = rm.ID
	s.mu.Unlock()

	rm.Join(playerID, m.PlayerName, pub)
}

func (s *Server) removeRoom(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	s.log.Info().Str("room", roomID).Msg("room destroyed")
}

// Send implements room.Sender.
func (s *Server) Send(playerID, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		s.log.Error().Err(err).Str("type", msgType).Msg("encode message")
		return
	}
	s.mu.Lock()
	c := s.conns[playerID]
	s.mu.Unlock()
	if c == nil {
		return
	}
	c.enqueue(frame)
}

// Broadcast implements room.Sender. Peers may observe independent messages
// in different orders, but frames to one connection stay ordered.
func (s *Server) Broadcast(playerIDs []string, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		s.log.Error().Err(err).Str("type", msgType).Msg("encode broadcast")
		return
	}
	s.mu.Lock()
	targets := make([]*conn, 0, len(playerIDs))
	for _, id := range playerIDs {
		if c := s.conns[id]; c != nil {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()
	for _, c := range targets {
		c.enqueue(frame)
	}
}

var _ room.Sender = (*Server)(nil)

// RoomCount is a small observability hook for tests and logs.
func (s *Server) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Addr formats the websocket URL of a listening coordinator.
func Addr(listen string) string {
	return fmt.Sprintf("ws://%s/ws", listen)
}
