package room

import (
	"strconv"

	"mentalpoker/internal/holdem"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// startBetting opens the preflop round once every hole card is dealt and
// privately decryptable by its owner.
func (r *Room) startBetting() {
	r.phase = PhaseBetting
	r.announceTurn()
}

// announceTurn publishes the current actor's options and arms the turn
// timer. With betting impossible (everyone all-in or folded), the street
// closes immediately.
func (r *Room) announceTurn() {
	g := r.game
	if g.Current < 0 {
		r.closeStreet()
		return
	}
	seat := g.Current
	playerID := r.handSeats[seat]
	p := r.players[playerID]

	actions := g.ValidActions(seat)
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.String())
	}
	r.broadcast(wire.TypePlayerTurn, wire.PlayerTurn{
		PlayerID:     playerID,
		SeatIndex:    p.Seat,
		ValidActions: names,
		MinBet:       g.BigBlind,
		MinRaise:     g.MinRaiseTo(),
		AmountToCall: g.AmountToCall(seat),
		TimeoutMs:    r.cfg.TurnTimeoutD().Milliseconds(),
	})
	r.armTimer(r.cfg.TurnTimeoutD(), func() {
		if r.phase != PhaseBetting || g.Current != seat {
			return
		}
		r.autoFold(seat)
	})
}

// autoFold is the coordinator-initiated transition on turn expiry: the
// player is folded and the table is told, with no error message.
func (r *Room) autoFold(seat int) {
	g := r.game
	playerID := r.handSeats[seat]
	if err := g.Apply(seat, holdem.ActionFold, 0); err != nil {
		r.log.Error().Err(err).Int("seat", seat).Msg("auto fold")
		return
	}
	r.log.Info().Str("player", playerID).Msg("turn timeout, auto-folding")
	r.broadcast(wire.TypeActionResult, wire.ActionResult{
		PlayerID:    playerID,
		ActionType:  holdem.ActionFold.String(),
		Amount:      0,
		NewPot:      g.Pot,
		PlayerStack: g.Seats[seat].Stack,
	})
	r.afterBettingStep()
}

// handleAction validates a player action, checks the declared state
// commitments against the server's own, and gates the transition on the
// game_action proof.
func (r *Room) handleAction(playerID string, m wire.SubmitAction) {
	p := r.players[playerID]
	if r.phase != PhaseBetting {
		r.sendError(playerID, wire.CodeInvalidState, "no betting round in progress")
		return
	}
	g := r.game
	seat := r.handPos(playerID)
	if seat == -1 || g.Current != seat {
		r.sendError(playerID, wire.CodeNotYourTurn, "not your turn")
		return
	}
	action, err := holdem.ActionFromString(m.ActionType)
	if err != nil {
		r.sendError(playerID, wire.CodeInvalidAction, err.Error())
		return
	}

	// Stage the action to derive the post-state commitment the proof must
	// speak for.
	staged := g.Clone()
	if err := staged.Apply(seat, action, m.Amount); err != nil {
		r.sendError(playerID, wire.CodeInvalidAction, err.Error())
		return
	}
	before := holdem.StateCommitment(g)
	after := holdem.StateCommitment(staged)
	if wire.FieldString(after) != m.StateCommitment {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "declared state commitment does not match applied action")
		return
	}
	expected := []string{
		wire.FieldString(before),
		m.StateCommitment,
		strconv.FormatUint(uint64(action), 10),
		strconv.FormatUint(m.Amount, 10),
	}
	if !equalSignals(m.PublicSignals, expected) {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "public signals do not match canonical game state")
		return
	}

	r.enqueueVerify(playerID, zkverify.CircuitGameAction, m.Proof, m.PublicSignals, func(err error) {
		if r.phase != PhaseBetting || g.Current != seat || r.game != g {
			return
		}
		if err != nil {
			r.proofRejected(p, wire.CodeInvalidProof, err.Error())
			return
		}
		r.cancelTimer()
		paid := g.Seats[seat].Stack - staged.Seats[seat].Stack
		if err := g.Apply(seat, action, m.Amount); err != nil {
			// The staged application succeeded; this cannot diverge.
			r.log.Error().Err(err).Msg("apply verified action")
			return
		}
		r.broadcast(wire.TypeActionResult, wire.ActionResult{
			PlayerID:    playerID,
			ActionType:  action.String(),
			Amount:      paid,
			NewPot:      g.Pot,
			PlayerStack: g.Seats[seat].Stack,
		})
		r.afterBettingStep()
	})
}

// afterBettingStep moves the hand forward after any applied action: fold
// collapse, next actor, or street close.
func (r *Room) afterBettingStep() {
	g := r.game
	if winner, done := g.FoldWinner(); done {
		r.settleFoldWin(winner)
		return
	}
	if !g.StreetComplete() {
		r.announceTurn()
		return
	}
	r.closeStreet()
}

// closeStreet returns any uncalled excess and either reveals the next
// street or enters showdown after the river.
func (r *Room) closeStreet() {
	g := r.game
	g.ReturnUncalled()
	if g.Street == holdem.StreetRiver {
		r.beginShowdown()
		return
	}
	r.beginStreetReveal()
}
