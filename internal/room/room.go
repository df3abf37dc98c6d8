// Package room drives a table through the hand lifecycle: seating and
// readiness, the round-robin shuffle, dealing, cooperative unmasking,
// betting streets, showdown, and settlement. Each room is a single logical
// thread: every mutation happens on the room's event loop, fed by player
// messages, timer expiries, and verification completions.
package room

import (
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"mentalpoker/internal/config"
	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/holdem"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// Sender delivers wire messages to connected players. Implementations must
// be safe for concurrent use; the room never blocks on delivery.
type Sender interface {
	Send(playerID, msgType string, payload any)
	Broadcast(playerIDs []string, msgType string, payload any)
}

// VerifyJob is one proof check handed to the bounded verification pool.
// Done re-enters the owning room's event loop with the outcome.
type VerifyJob struct {
	RoomID   string
	PlayerID string
	Circuit  zkverify.CircuitType
	Proof    []byte
	Signals  []string
	Done     func(err error)
}

// AsyncVerifier schedules verification jobs. Submit returns false when the
// player's per-room queue is full; the submission is rejected with BUSY.
type AsyncVerifier interface {
	Submit(job VerifyJob) bool
}

type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseShuffling
	PhaseDealing
	PhaseUnmaskingHole
	PhaseBetting
	PhaseUnmaskingStreet
	PhaseShowdown
	PhaseSettling
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseShuffling:
		return "shuffling"
	case PhaseDealing:
		return "dealing"
	case PhaseUnmaskingHole:
		return "unmaskingHole"
	case PhaseBetting:
		return "betting"
	case PhaseUnmaskingStreet:
		return "unmaskingStreet"
	case PhaseShowdown:
		return "showdown"
	case PhaseSettling:
		return "settling"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// proofFailureBudget forfeits a player who keeps submitting rejected proofs
// within one hand.
const proofFailureBudget = 3

// Player is one seat's registry entry.
type Player struct {
	ID        string
	Name      string
	Seat      int
	Pub       mpcrypto.Point
	Ready     bool
	Connected bool

	Stack uint64

	// Per-hand tracking, reset between hands.
	HoleIndices   []int
	Forfeited     bool
	ProofFailures int
	Reveal        *wire.HandRevealed
}

// Room owns one table.
type Room struct {
	ID  string
	cfg config.Config
	log zerolog.Logger

	sender   Sender
	verifier AsyncVerifier
	table    *handrank.Table
	roots    struct{ basic, flush fr.Element }

	seats   []*Player // seat index -> player, nil when empty
	players map[string]*Player

	phase  Phase
	dealer int

	// Hand state.
	game        *holdem.Game
	deck        []elgamal.Card
	deckCommit  fr.Element
	cardCommits [elgamal.DeckSize]fr.Element

	shuffleOrder []string // player ids, dealer-relative
	shuffleTurn  int

	trackers       map[int]*unmaskTracker
	handSeats      []string // player id per hand-seat position, index into hole slots
	board          []int    // revealed community card values, street order
	boardSlots     []int    // deck positions 2N..2N+4
	pendingStreet  []int    // board slots still queued for the current street
	streetRevealed []int    // values revealed during the current street

	events   chan func()
	closed   chan struct{}
	timerSeq uint64

	onEmpty func(roomID string)
}

// New creates a room and starts its event loop.
func New(id string, cfg config.Config, log zerolog.Logger, sender Sender, verifier AsyncVerifier, table *handrank.Table, onEmpty func(string)) (*Room, error) {
	rootBasic, rootFlush, err := table.Roots()
	if err != nil {
		return nil, fmt.Errorf("room: build rank trees: %w", err)
	}
	r := &Room{
		ID:       id,
		cfg:      cfg,
		log:      log.With().Str("room", id).Logger(),
		sender:   sender,
		verifier: verifier,
		table:    table,
		seats:    make([]*Player, cfg.MaxPlayers),
		players:  map[string]*Player{},
		phase:    PhaseWaiting,
		events:   make(chan func(), 256),
		closed:   make(chan struct{}),
		onEmpty:  onEmpty,
	}
	r.roots.basic = rootBasic
	r.roots.flush = rootFlush
	go r.run()
	return r, nil
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.events:
			fn()
		case <-r.closed:
			return
		}
	}
}

// post schedules fn on the room's event loop. Posts to a destroyed room are
// dropped.
func (r *Room) post(fn func()) {
	select {
	case <-r.closed:
	case r.events <- fn:
	}
}

// destroy stops the loop and cancels outstanding timers by invalidating the
// sequence counter. Pending verification continuations find the room closed
// and drop their results.
func (r *Room) destroy() {
	r.timerSeq++
	close(r.closed)
	if r.onEmpty != nil {
		r.onEmpty(r.ID)
	}
}

// armTimer schedules a phase or turn timer. The sequence number captured at
// arming invalidates stale expiries: any state transition bumps timerSeq, so a
// timer that fires late finds its sequence outdated and is ignored.
func (r *Room) armTimer(d time.Duration, fn func()) {
	r.timerSeq++
	seq := r.timerSeq
	time.AfterFunc(d, func() {
		r.post(func() {
			if r.timerSeq != seq {
				return
			}
			fn()
		})
	})
}

func (r *Room) cancelTimer() {
	r.timerSeq++
}

func (r *Room) sendError(playerID, code, msg string) {
	r.sender.Send(playerID, wire.TypeError, wire.Error{Code: code, Message: msg})
}

func (r *Room) allPlayerIDs() []string {
	out := make([]string, 0, len(r.players))
	for _, s := range r.seats {
		if s != nil {
			out = append(out, s.ID)
		}
	}
	return out
}

func (r *Room) broadcast(msgType string, payload any) {
	r.sender.Broadcast(r.allPlayerIDs(), msgType, payload)
}

func (r *Room) playerInfo(p *Player) wire.PlayerInfo {
	x, y := p.Pub.Strings()
	return wire.PlayerInfo{
		PlayerID:   p.ID,
		Name:       p.Name,
		SeatIndex:  p.Seat,
		PublicKeyX: x,
		PublicKeyY: y,
		IsReady:    p.Ready,
		Stack:      p.Stack,
	}
}

func (r *Room) roomConfig() wire.RoomConfig {
	return wire.RoomConfig{
		MinPlayers:    r.cfg.MinPlayers,
		MaxPlayers:    r.cfg.MaxPlayers,
		SmallBlind:    r.cfg.SmallBlind,
		BigBlind:      r.cfg.BigBlind,
		StartingStack: r.cfg.StartingStack,
		TurnTimeoutMs: r.cfg.TurnTimeoutD().Milliseconds(),
	}
}

// Join seats a new player. Called on the caller's goroutine; the work runs
// on the room loop and replies over the sender.
func (r *Room) Join(playerID, name string, pub mpcrypto.Point) {
	r.post(func() {
		if _, ok := r.players[playerID]; ok {
			r.sendError(playerID, wire.CodeInvalidMessage, "already in room")
			return
		}
		seat := -1
		for i, s := range r.seats {
			if s == nil {
				seat = i
				break
			}
		}
		if seat == -1 {
			r.sendError(playerID, wire.CodeRoomFull, "room is full")
			return
		}
		p := &Player{
			ID:        playerID,
			Name:      name,
			Seat:      seat,
			Pub:       pub,
			Connected: true,
			Stack:     r.cfg.StartingStack,
		}
		r.seats[seat] = p
		r.players[playerID] = p

		infos := make([]wire.PlayerInfo, 0, len(r.players))
		for _, s := range r.seats {
			if s != nil {
				infos = append(infos, r.playerInfo(s))
			}
		}
		r.sender.Send(playerID, wire.TypeRoomJoined, wire.RoomJoined{
			RoomID:    r.ID,
			PlayerID:  playerID,
			SeatIndex: seat,
			Players:   infos,
			Config:    r.roomConfig(),
		})
		r.sender.Broadcast(r.otherIDs(playerID), wire.TypePlayerJoined, wire.PlayerJoined{Player: r.playerInfo(p)})
		r.log.Info().Str("player", playerID).Int("seat", seat).Msg("player joined")
	})
}

func (r *Room) otherIDs(except string) []string {
	out := []string{}
	for _, s := range r.seats {
		if s != nil && s.ID != except {
			out = append(out, s.ID)
		}
	}
	return out
}

// Leave removes a player. Mid-hand this forfeits the current hand first.
func (r *Room) Leave(playerID string) {
	r.post(func() { r.removePlayer(playerID, "left") })
}

// Disconnected marks a dropped connection: an immediate forfeit for the
// current hand and a freed seat.
func (r *Room) Disconnected(playerID string) {
	r.post(func() {
		if p, ok := r.players[playerID]; ok {
			p.Connected = false
		}
		r.removePlayer(playerID, "disconnected")
	})
}

func (r *Room) removePlayer(playerID, reason string) {
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	if r.phase != PhaseWaiting {
		r.forfeitPlayer(p, reason)
	}
	delete(r.players, playerID)
	r.seats[p.Seat] = nil
	r.broadcast(wire.TypePlayerLeft, wire.PlayerLeft{PlayerID: playerID})
	r.log.Info().Str("player", playerID).Str("reason", reason).Msg("player removed")
	if len(r.players) == 0 {
		r.destroy()
		return
	}
	if r.phase == PhaseWaiting {
		r.maybeStartHand()
	}
}

func (r *Room) maybeStartHand() {
	funded := 0
	for _, s := range r.seats {
		if s == nil {
			continue
		}
		if s.Stack == 0 {
			continue
		}
		if !s.Ready {
			return
		}
		funded++
	}
	if funded < r.cfg.MinPlayers {
		return
	}
	r.startHand()
}

// HandleMessage routes a decoded client message into the room loop.
func (r *Room) HandleMessage(playerID string, env wire.Envelope) {
	r.post(func() {
		if _, ok := r.players[playerID]; !ok {
			r.sendError(playerID, wire.CodeNotInRoom, "not in this room")
			return
		}
		switch env.Type {
		case wire.TypeReady:
			var m wire.Ready
			if err := wire.DecodeValue(env, &m); err != nil {
				r.sendError(playerID, wire.CodeInvalidMessage, err.Error())
				return
			}
			r.handleReady(playerID, m.IsReady)
		case wire.TypeLeaveRoom:
			r.removePlayer(playerID, "left")
		case wire.TypeSubmitShuffle:
			var m wire.SubmitShuffle
			if err := wire.DecodeValue(env, &m); err != nil {
				r.sendError(playerID, wire.CodeInvalidMessage, err.Error())
				return
			}
			r.handleShuffle(playerID, m)
		case wire.TypeSubmitUnmask:
			var m wire.SubmitUnmask
			if err := wire.DecodeValue(env, &m); err != nil {
				r.sendError(playerID, wire.CodeInvalidMessage, err.Error())
				return
			}
			r.handleUnmask(playerID, m)
		case wire.TypeSubmitAction:
			var m wire.SubmitAction
			if err := wire.DecodeValue(env, &m); err != nil {
				r.sendError(playerID, wire.CodeInvalidMessage, err.Error())
				return
			}
			r.handleAction(playerID, m)
		case wire.TypeSubmitHandReveal:
			var m wire.SubmitHandReveal
			if err := wire.DecodeValue(env, &m); err != nil {
				r.sendError(playerID, wire.CodeInvalidMessage, err.Error())
				return
			}
			r.handleHandReveal(playerID, m)
		default:
			r.sendError(playerID, wire.CodeInvalidMessage, "unknown message type "+env.Type)
		}
	})
}

// handleReady toggles readiness; a hand starts when every seated, funded
// player is ready and the table has enough players.
func (r *Room) handleReady(playerID string, isReady bool) {
	p := r.players[playerID]
	if r.phase != PhaseWaiting {
		r.sendError(playerID, wire.CodeInvalidState, "hand in progress")
		return
	}
	p.Ready = isReady
	r.broadcast(wire.TypePlayerReady, wire.PlayerReady{PlayerID: playerID, IsReady: isReady})
	r.maybeStartHand()
}

// enqueueVerify submits a proof job, debiting the player's pending budget.
func (r *Room) enqueueVerify(playerID string, circuit zkverify.CircuitType, proof []byte, signals []string, then func(err error)) {
	ok := r.verifier.Submit(VerifyJob{
		RoomID:   r.ID,
		PlayerID: playerID,
		Circuit:  circuit,
		Proof:    proof,
		Signals:  signals,
		Done: func(err error) {
			r.post(func() {
				if _, stillHere := r.players[playerID]; !stillHere {
					return // liveness check: forfeited and gone
				}
				then(err)
			})
		},
	})
	if !ok {
		r.sendError(playerID, wire.CodeBusy, "verification queue full")
	}
}

// proofRejected counts a cryptographic failure and forfeits the player once
// the per-hand budget is spent.
func (r *Room) proofRejected(p *Player, code, msg string) {
	p.ProofFailures++
	r.sendError(p.ID, code, msg)
	if p.ProofFailures >= proofFailureBudget && r.phase != PhaseWaiting {
		r.forfeitPlayer(p, "repeated proof failures")
	}
}
