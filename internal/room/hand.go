package room

import (
	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/holdem"
	"mentalpoker/internal/wire"
)

// startHand snapshots the funded seats, posts blinds, and opens the shuffle
// round-robin.
func (r *Room) startHand() {
	r.handSeats = r.handSeats[:0]
	for _, s := range r.seats {
		if s != nil && s.Stack > 0 {
			r.handSeats = append(r.handSeats, s.ID)
		}
	}
	n := len(r.handSeats)
	if n < r.cfg.MinPlayers {
		return
	}

	// Rotate the button one funded seat forward from last hand.
	r.dealer = r.nextDealerPos()

	stacks := make([]uint64, n)
	for i, id := range r.handSeats {
		stacks[i] = r.players[id].Stack
	}
	game, err := holdem.NewGame(stacks, r.dealer, r.cfg.SmallBlind, r.cfg.BigBlind)
	if err != nil {
		r.log.Error().Err(err).Msg("start hand")
		return
	}
	r.game = game

	for i, id := range r.handSeats {
		p := r.players[id]
		p.Forfeited = false
		p.ProofFailures = 0
		p.Reveal = nil
		p.HoleIndices = nil
		p.Stack = game.Seats[i].Stack
	}

	// Fresh plaintext deck; every card's epk and pk start at identity.
	r.deck = elgamal.FreshDeck()
	r.refreshDeckCommitments()
	r.trackers = map[int]*unmaskTracker{}
	r.board = r.board[:0]
	r.boardSlots = r.boardSlots[:0]

	// Shuffle order: round robin starting left of the button.
	r.shuffleOrder = r.shuffleOrder[:0]
	for step := 1; step <= n; step++ {
		r.shuffleOrder = append(r.shuffleOrder, r.handSeats[(r.dealer+step)%n])
	}
	r.shuffleTurn = 0
	r.phase = PhaseShuffling

	r.broadcast(wire.TypeGameStarted, wire.GameStarted{GameState: r.stateView()})
	r.log.Info().Int("players", n).Int("dealer", r.dealer).Msg("hand started")
	r.requestShuffle()
}

// nextDealerPos picks the next hand-seat position for the button. Positions
// are indices into handSeats, which only contains funded seats, so
// eliminated players are skipped by construction.
func (r *Room) nextDealerPos() int {
	n := len(r.handSeats)
	if n == 0 {
		return 0
	}
	return (r.dealer + 1) % n
}

func (r *Room) refreshDeckCommitments() {
	dc, err := elgamal.DeckCommitment(r.deck)
	if err != nil {
		r.log.Error().Err(err).Msg("deck commitment")
		return
	}
	r.deckCommit = dc
	for i := range r.deck {
		r.cardCommits[i] = elgamal.CardCommitment(r.deck[i])
	}
}

func (r *Room) handPos(playerID string) int {
	for i, id := range r.handSeats {
		if id == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) stateView() wire.GameState {
	g := r.game
	n := len(g.Seats)
	v := wire.GameState{
		Stacks:      make([]uint64, n),
		StreetBets:  make([]uint64, n),
		Pot:         g.Pot,
		Street:      uint8(g.Street),
		CurrentSeat: g.Current,
		LastAction:  uint8(g.LastAction),
		LastBetSize: g.LastBetSize,
		Status:      uint8(g.Status),
		DealerSeat:  g.Dealer,
	}
	for i := range g.Seats {
		v.Stacks[i] = g.Seats[i].Stack
		v.StreetBets[i] = g.Seats[i].StreetBet
	}
	c := holdem.StateCommitment(g)
	v.Commitment = wire.FieldString(c)
	return v
}

// forfeitPlayer folds a player out of the current hand for a protocol
// breach, timeout, or disconnect, then moves the hand forward.
func (r *Room) forfeitPlayer(p *Player, reason string) {
	if p.Forfeited || r.game == nil {
		return
	}
	pos := r.handPos(p.ID)
	if pos == -1 {
		return
	}
	p.Forfeited = true
	seat := &r.game.Seats[pos]
	if !seat.InHand || seat.Folded {
		return
	}
	seat.Folded = true
	r.log.Info().Str("player", p.ID).Str("reason", reason).Msg("player forfeits hand")

	if winner, done := r.game.FoldWinner(); done {
		r.settleFoldWin(winner)
		return
	}

	switch r.phase {
	case PhaseShuffling:
		// The deck transcript cannot continue without this player's layer.
		r.abortHand("shuffle forfeit")
	case PhaseDealing, PhaseUnmaskingHole, PhaseUnmaskingStreet:
		// A missing unmasker leaves cards that can never be opened.
		r.abortHand("unmask forfeit")
	case PhaseBetting:
		if r.game.Current == pos {
			r.game.RecomputeTurn(pos)
			r.afterBettingStep()
		}
	case PhaseShowdown:
		r.maybeSettleShowdown()
	}
}

// settleFoldWin ends a hand that collapsed to one contender.
func (r *Room) settleFoldWin(winnerPos int) {
	r.cancelTimer()
	g := r.game
	g.ReturnUncalled()
	g.Seats[winnerPos].Stack += g.Pot
	g.Pot = 0
	g.Status = holdem.StatusFinished
	r.endHand("fold")
}

// abortHand refunds every contribution and resets. Used when a forfeit
// leaves the cryptographic transcript unable to progress.
func (r *Room) abortHand(reason string) {
	r.cancelTimer()
	g := r.game
	for i := range g.Seats {
		g.Seats[i].Stack += g.Seats[i].TotalBet
		g.Seats[i].TotalBet = 0
		g.Seats[i].StreetBet = 0
	}
	g.Pot = 0
	g.Status = holdem.StatusFinished
	r.endHand(reason)
}

// endHand writes stacks back to the registry, announces the result, and
// returns the room to Waiting with readiness cleared. The button moves when
// the next hand starts (startHand).
func (r *Room) endHand(reason string) {
	r.cancelTimer()
	finalStacks := make([]uint64, len(r.handSeats))
	for i, id := range r.handSeats {
		if p, ok := r.players[id]; ok {
			p.Stack = r.game.Seats[i].Stack
			finalStacks[i] = p.Stack
		}
	}
	r.broadcast(wire.TypeGameEnded, wire.GameEnded{Reason: reason, FinalStacks: finalStacks})

	r.game = nil
	r.deck = nil
	r.trackers = nil
	r.phase = PhaseWaiting
	for _, p := range r.players {
		p.Ready = false
		p.HoleIndices = nil
		p.Reveal = nil
		p.Forfeited = false
		p.ProofFailures = 0
	}
	r.log.Info().Str("reason", reason).Msg("hand ended")
}
