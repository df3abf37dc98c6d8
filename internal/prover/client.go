package prover

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/holdem"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// Strategy decides the player's betting action from the mirrored game
// state. The returned amount is the desired total street bet for bet and
// raise.
type Strategy func(g *holdem.Game, seat int, valid []holdem.Action) (holdem.Action, uint64)

// CheckCall is the default strategy: check when free, call when facing a
// bet.
func CheckCall(g *holdem.Game, seat int, valid []holdem.Action) (holdem.Action, uint64) {
	for _, a := range valid {
		if a == holdem.ActionCheck {
			return holdem.ActionCheck, 0
		}
	}
	for _, a := range valid {
		if a == holdem.ActionCall {
			return holdem.ActionCall, 0
		}
	}
	return holdem.ActionFold, 0
}

// Client plays one seat: it mirrors the coordinator's public state, builds
// witnesses, proves through the injected engine, and submits transitions.
type Client struct {
	Key      KeyPair
	Name     string
	engine   Engine
	strategy Strategy
	log      zerolog.Logger

	// AutoReady re-readies after each hand; disable to play a single hand.
	AutoReady bool
	// OnHandEnd observes hand completion (tests, UIs).
	OnHandEnd func(reason string, finalStacks []uint64)

	table     *handrank.Table
	basicTree *handrank.MerkleTree
	flushTree *handrank.MerkleTree

	mu       sync.Mutex
	ws       *websocket.Conn
	playerID string
	roomID   string

	// Hand mirror.
	game       *holdem.Game
	holeSlots  []int
	holeCards  map[int]elgamal.Card // slot -> final masked state (our layer only)
	holeValues map[int]int          // slot -> card value
	board      []int
}

// NewClient prepares a player. The table is shared, read-only.
func NewClient(name string, engine Engine, table *handrank.Table, strategy Strategy, log zerolog.Logger) (*Client, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	basicTree, err := handrank.BuildTree(table.Basic, false)
	if err != nil {
		return nil, err
	}
	flushTree, err := handrank.BuildTree(table.Flush, true)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = CheckCall
	}
	return &Client{
		Key:       key,
		Name:      name,
		engine:    engine,
		strategy:  strategy,
		log:       log.With().Str("client", name).Logger(),
		AutoReady: true,
		table:     table,
		basicTree: basicTree,
		flushTree: flushTree,
	}, nil
}

// Connect dials the coordinator and starts the message loop. JoinRoom with
// an empty id creates a room.
func (c *Client) Connect(url, roomID string) error {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("prover: dial %s: %w", url, err)
	}
	c.ws = ws
	c.roomID = roomID
	go c.loop()
	return nil
}

func (c *Client) send(msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		c.log.Error().Err(err).Msg("encode")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Warn().Err(err).Msg("write")
	}
}

func (c *Client) loop() {
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := wire.Decode(frame)
		if err != nil {
			c.log.Warn().Err(err).Msg("bad frame")
			continue
		}
		c.handle(env)
	}
}

func (c *Client) handle(env wire.Envelope) {
	switch env.Type {
	case wire.TypeConnected:
		var m wire.Connected
		if wire.DecodeValue(env, &m) == nil {
			c.playerID = m.PlayerID
			x, y := c.Key.Public.Strings()
			c.send(wire.TypeJoinRoom, wire.JoinRoom{
				RoomID:     c.roomID,
				PlayerName: c.Name,
				PublicKeyX: x,
				PublicKeyY: y,
			})
		}
	case wire.TypeRoomJoined:
		var m wire.RoomJoined
		if wire.DecodeValue(env, &m) == nil {
			c.roomID = m.RoomID
			c.send(wire.TypeReady, wire.Ready{IsReady: true})
		}
	case wire.TypeGameStarted:
		var m wire.GameStarted
		if wire.DecodeValue(env, &m) == nil {
			c.onGameStarted(m.GameState)
		}
	case wire.TypeShuffleTurn:
		var m wire.ShuffleTurn
		if wire.DecodeValue(env, &m) == nil && m.PlayerID == c.playerID {
			c.onShuffleTurn(m)
		}
	case wire.TypeCardsDealt:
		var m wire.CardsDealt
		if wire.DecodeValue(env, &m) == nil {
			c.holeSlots = m.YourCards
		}
	case wire.TypeUnmaskRequest:
		var m wire.UnmaskRequest
		if wire.DecodeValue(env, &m) == nil {
			c.onUnmaskRequest(m)
		}
	case wire.TypeCardFullyUnmasked:
		var m wire.CardFullyUnmasked
		if wire.DecodeValue(env, &m) == nil {
			c.onCardFullyUnmasked(m)
		}
	case wire.TypePlayerTurn:
		var m wire.PlayerTurn
		if wire.DecodeValue(env, &m) == nil && m.PlayerID == c.playerID {
			c.onTurn()
		}
	case wire.TypeActionResult:
		var m wire.ActionResult
		if wire.DecodeValue(env, &m) == nil {
			c.onActionResult(m)
		}
	case wire.TypeStreetAdvanced:
		var m wire.StreetAdvanced
		if wire.DecodeValue(env, &m) == nil {
			c.onStreetAdvanced(m)
		}
	case wire.TypeRevealHandRequest:
		c.onRevealRequest()
	case wire.TypeGameEnded:
		var m wire.GameEnded
		if wire.DecodeValue(env, &m) == nil && c.OnHandEnd != nil {
			c.OnHandEnd(m.Reason, m.FinalStacks)
		}
		c.resetHand()
		if c.AutoReady {
			c.send(wire.TypeReady, wire.Ready{IsReady: true})
		}
	case wire.TypeError:
		var m wire.Error
		if wire.DecodeValue(env, &m) == nil {
			c.log.Warn().Str("code", m.Code).Str("msg", m.Message).Msg("coordinator error")
		}
	}
}

func (c *Client) resetHand() {
	c.game = nil
	c.holeSlots = nil
	c.holeCards = map[int]elgamal.Card{}
	c.holeValues = map[int]int{}
	c.board = nil
}

// onGameStarted rebuilds the betting mirror. The broadcast view carries
// post-blind stacks, so pre-blind stacks are stack + street bet.
func (c *Client) onGameStarted(v wire.GameState) {
	c.resetHand()
	stacks := make([]uint64, len(v.Stacks))
	for i := range v.Stacks {
		stacks[i] = v.Stacks[i] + v.StreetBets[i]
	}
	// Blinds come from the view: the two posted street bets, largest is the
	// big blind.
	var sb, bb uint64
	for _, b := range v.StreetBets {
		if b > bb {
			sb = bb
			bb = b
		} else if b > sb {
			sb = b
		}
	}
	if bb == 0 {
		c.log.Warn().Msg("cannot infer blinds from view")
		return
	}
	if sb == 0 {
		sb = bb / 2 // short small blind (all-in); fall back to the nominal ratio
	}
	g, err := holdem.NewGame(stacks, v.DealerSeat, sb, bb)
	if err != nil {
		c.log.Error().Err(err).Msg("mirror game")
		return
	}
	c.game = g
}

func (c *Client) onShuffleTurn(m wire.ShuffleTurn) {
	deck, err := wire.DecodeDeck(m.CurrentDeck)
	if err != nil {
		c.log.Error().Err(err).Msg("decode deck")
		return
	}
	res, err := BuildShuffle(deck, c.Key)
	if err != nil {
		c.log.Error().Err(err).Msg("build shuffle")
		return
	}
	proof, err := c.engine.Prove(res.Circuit, res.Witness)
	if err != nil {
		c.log.Error().Err(err).Msg("prove shuffle")
		return
	}
	out, err := wire.EncodeDeck(res.DeckOut)
	if err != nil {
		c.log.Error().Err(err).Msg("encode deck")
		return
	}
	c.send(wire.TypeSubmitShuffle, wire.SubmitShuffle{
		ShuffledDeck:   out,
		DeckCommitment: res.CommitAfter.String(),
		Proof:          proof,
		PublicSignals:  res.Witness.Public,
	})
}

func (c *Client) onUnmaskRequest(m wire.UnmaskRequest) {
	card, err := wire.DecodeCard(m.Card)
	if err != nil {
		c.log.Error().Err(err).Msg("decode card")
		return
	}
	res, err := BuildUnmask(card, c.Key)
	if err != nil {
		c.log.Error().Err(err).Msg("build unmask")
		return
	}
	proof, err := c.engine.Prove(zkverify.CircuitUnmask, res.Witness)
	if err != nil {
		c.log.Error().Err(err).Msg("prove unmask")
		return
	}
	c.send(wire.TypeSubmitUnmask, wire.SubmitUnmask{
		CardIndex:     m.CardIndex,
		UnmaskedCard:  wire.EncodeCard(res.CardOut),
		Proof:         proof,
		PublicSignals: res.Witness.Public,
	})
}

// onCardFullyUnmasked finishes a hole card locally: the remaining layer is
// ours, so one private partial unmask opens the value.
func (c *Client) onCardFullyUnmasked(m wire.CardFullyUnmasked) {
	card, err := wire.DecodeCard(m.Card)
	if err != nil {
		return
	}
	if m.IsCommunity {
		return // board values arrive via street_advanced
	}
	if c.holeCards == nil {
		c.holeCards = map[int]elgamal.Card{}
		c.holeValues = map[int]int{}
	}
	c.holeCards[m.CardIndex] = card
	open, err := elgamal.PartialUnmask(card, c.Key.Secret)
	if err != nil {
		c.log.Error().Err(err).Msg("final unmask")
		return
	}
	value, err := elgamal.Decode(open)
	if err != nil {
		c.log.Error().Err(err).Msg("decode hole card")
		return
	}
	c.holeValues[m.CardIndex] = value
}

func (c *Client) myHandPos() int {
	// Derived lazily from hole slots: hand position p holds slots 2p, 2p+1.
	if len(c.holeSlots) != 2 {
		return -1
	}
	return c.holeSlots[0] / 2
}

func (c *Client) onTurn() {
	if c.game == nil {
		return
	}
	seat := c.myHandPos()
	if seat < 0 {
		return
	}
	valid := c.game.ValidActions(seat)
	if len(valid) == 0 {
		return
	}
	action, amount := c.strategy(c.game, seat, valid)
	res, err := BuildGameAction(c.game, seat, action, amount)
	if err != nil {
		c.log.Error().Err(err).Msg("build action")
		return
	}
	proof, err := c.engine.Prove(zkverify.CircuitGameAction, res.Witness)
	if err != nil {
		c.log.Error().Err(err).Msg("prove action")
		return
	}
	c.send(wire.TypeSubmitAction, wire.SubmitAction{
		ActionType:      action.String(),
		Amount:          amount,
		StateCommitment: res.CommitAfter.String(),
		Proof:           proof,
		PublicSignals:   res.Witness.Public,
	})
}

// onActionResult mirrors every applied action, ours included.
func (c *Client) onActionResult(m wire.ActionResult) {
	if c.game == nil {
		return
	}
	seat := c.game.Current
	if seat < 0 {
		return
	}
	action, err := holdem.ActionFromString(m.ActionType)
	if err != nil {
		return
	}
	amount := uint64(0)
	if action == holdem.ActionBet || action == holdem.ActionRaise {
		amount = c.game.Seats[seat].StreetBet + m.Amount
	}
	if err := c.game.Apply(seat, action, amount); err != nil {
		c.log.Warn().Err(err).Str("action", m.ActionType).Msg("mirror apply")
	}
}

func (c *Client) onStreetAdvanced(m wire.StreetAdvanced) {
	c.board = append(c.board, m.CommunityCardIndices...)
	if c.game == nil {
		return
	}
	c.game.ReturnUncalled()
	if _, err := c.game.AdvanceStreet(); err != nil {
		c.log.Warn().Err(err).Msg("mirror street")
	}
}

func (c *Client) onRevealRequest() {
	if len(c.holeSlots) != 2 || len(c.board) != 5 {
		return
	}
	v0, ok0 := c.holeValues[c.holeSlots[0]]
	v1, ok1 := c.holeValues[c.holeSlots[1]]
	if !ok0 || !ok1 {
		c.log.Warn().Msg("hole cards not open yet")
		return
	}
	c0, c1 := c.holeCards[c.holeSlots[0]], c.holeCards[c.holeSlots[1]]
	holeCommit := mustHash2(elgamal.CardCommitment(c0), elgamal.CardCommitment(c1))
	boardCommit := boardCommitment(c.board)

	res, err := BuildHandEval(c.table, c.basicTree, c.flushTree, [2]int{v0, v1}, c.board, holeCommit, boardCommit)
	if err != nil {
		c.log.Error().Err(err).Msg("build hand eval")
		return
	}
	proof, err := c.engine.Prove(zkverify.CircuitHandEval, res.Witness)
	if err != nil {
		c.log.Error().Err(err).Msg("prove hand eval")
		return
	}
	c.send(wire.TypeSubmitHandReveal, wire.SubmitHandReveal{
		HandRank:        res.Eval.Rank,
		HandDescription: res.Eval.Describe(),
		CardIndices:     res.Eval.CardIndices,
		Proof:           proof,
		PublicSignals:   res.Witness.Public,
	})
}

// Close drops the connection.
func (c *Client) Close() {
	if c.ws != nil {
		_ = c.ws.Close()
	}
}
