package room

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/holdem"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// beginShowdown asks every surviving player to prove their best hand's
// rank. Players that miss the reveal window forfeit the pot.
func (r *Room) beginShowdown() {
	r.phase = PhaseShowdown
	g := r.game
	g.ReturnUncalled()

	active := []string{}
	for i, id := range r.handSeats {
		if g.Seats[i].InHand && !g.Seats[i].Folded {
			active = append(active, id)
		}
	}
	for _, id := range active {
		opponents := []string{}
		for _, other := range active {
			if other != id {
				opponents = append(opponents, other)
			}
		}
		r.sender.Send(id, wire.TypeRevealHandRequest, wire.RevealHandRequest{
			Pot:       g.Pot,
			Opponents: opponents,
		})
	}
	r.armTimer(r.cfg.PhaseTimeoutD(), func() {
		if r.phase != PhaseShowdown {
			return
		}
		for i, id := range r.handSeats {
			p, ok := r.players[id]
			if !ok {
				continue
			}
			if g.Seats[i].InHand && !g.Seats[i].Folded && p.Reveal == nil {
				// Missing the reveal forfeits the pot, not the seat.
				g.Seats[i].Folded = true
				r.log.Info().Str("player", id).Msg("showdown reveal timeout")
			}
		}
		r.maybeSettleShowdown()
	})
	r.maybeSettleShowdown()
}

// holeCommitment is the server's canonical binding of a player's hole
// cards: the hash of the two card commitments at the player's deck slots,
// in their final state (every non-owner layer stripped, the owner's own
// layer still on). The hand_eval circuit opens them with the owner's secret
// as witness, so the server never learns the cards before the reveal.
func (r *Room) holeCommitment(pos int) fr.Element {
	return mpcrypto.Hash2(r.cardCommits[2*pos], r.cardCommits[2*pos+1])
}

// boardCommitment hashes the five board card indices in reveal order.
func (r *Room) boardCommitment() fr.Element {
	in := make([]fr.Element, len(r.board))
	for i, v := range r.board {
		in[i].SetUint64(uint64(v))
	}
	return mpcrypto.MustHash(in...)
}

// handleHandReveal verifies a hand-rank claim: the chosen five cards, their
// Merkle membership under the flush or basic root, and the commitment
// bindings to this player's hole slots and the public board.
func (r *Room) handleHandReveal(playerID string, m wire.SubmitHandReveal) {
	p := r.players[playerID]
	if r.phase != PhaseShowdown {
		r.sendError(playerID, wire.CodeInvalidState, "not at showdown")
		return
	}
	g := r.game
	pos := r.handPos(playerID)
	if pos == -1 || !g.Seats[pos].InHand || g.Seats[pos].Folded {
		r.sendError(playerID, wire.CodeInvalidState, "not contesting the pot")
		return
	}
	if p.Reveal != nil {
		r.sendError(playerID, wire.CodeInvalidState, "hand already revealed")
		return
	}
	if len(r.board) != 5 {
		r.sendError(playerID, wire.CodeInvalidState, "board incomplete")
		return
	}

	// The revealed selection must come from the board plus at most two
	// off-board (hole) cards, and must evaluate to the claimed rank.
	onBoard := map[int]bool{}
	for _, v := range r.board {
		onBoard[v] = true
	}
	offBoard := 0
	for _, c := range m.CardIndices {
		if !onBoard[c] {
			offBoard++
		}
	}
	if offBoard > 2 {
		r.proofRejected(p, wire.CodeInvalidCard, "selection uses more than two hole cards")
		return
	}
	eval, err := holdem.Evaluate5(r.table, m.CardIndices)
	if err != nil {
		r.sendError(playerID, wire.CodeInvalidCard, err.Error())
		return
	}
	if eval.Rank != m.HandRank {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "claimed rank does not match selection")
		return
	}

	root := r.roots.basic
	if eval.IsFlush {
		root = r.roots.flush
	}
	expected := []string{
		wire.FieldString(root),
		wire.FieldString(r.holeCommitment(pos)),
		wire.FieldString(r.boardCommitment()),
		wire.FieldString(rankField(m.HandRank)),
	}
	if !equalSignals(m.PublicSignals, expected) {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "public signals do not match canonical commitments")
		return
	}

	r.enqueueVerify(playerID, zkverify.CircuitHandEval, m.Proof, m.PublicSignals, func(err error) {
		if r.phase != PhaseShowdown || p.Reveal != nil {
			return
		}
		if err != nil {
			r.proofRejected(p, wire.CodeInvalidProof, err.Error())
			return
		}
		reveal := &wire.HandRevealed{
			PlayerID:        playerID,
			HandRank:        m.HandRank,
			HandDescription: m.HandDescription,
			CardIndices:     append([]int(nil), m.CardIndices[:]...),
		}
		p.Reveal = reveal
		r.broadcast(wire.TypeHandRevealed, *reveal)
		r.maybeSettleShowdown()
	})
}

func rankField(rank uint16) fr.Element {
	var e fr.Element
	e.SetUint64(uint64(rank))
	return e
}

// maybeSettleShowdown settles once every contender has a verified reveal.
func (r *Room) maybeSettleShowdown() {
	if r.phase != PhaseShowdown {
		return
	}
	g := r.game
	if winner, done := g.FoldWinner(); done {
		r.settleFoldWin(winner)
		return
	}
	for i, id := range r.handSeats {
		if !g.Seats[i].InHand || g.Seats[i].Folded {
			continue
		}
		p, ok := r.players[id]
		if !ok || p.Reveal == nil {
			return
		}
	}
	r.settleShowdown()
}

// settleShowdown computes side pots from total contributions and awards
// each to its lowest-ranked eligible reveals. Lower rank is the better
// hand.
func (r *Room) settleShowdown() {
	r.cancelTimer()
	g := r.game

	pots := g.SidePots()
	showdownPlayers := []wire.ShowdownPlayer{}
	for i, id := range r.handSeats {
		sp := wire.ShowdownPlayer{PlayerID: id, Folded: g.Seats[i].Folded || !g.Seats[i].InHand}
		if p, ok := r.players[id]; ok && p.Reveal != nil {
			sp.HandRank = p.Reveal.HandRank
		}
		showdownPlayers = append(showdownPlayers, sp)
	}

	dist := []wire.PotDistribution{}
	winnersSet := map[string]bool{}
	for _, pot := range pots {
		best := -1
		winners := []int{}
		for _, seat := range pot.EligibleSeats {
			p, ok := r.players[r.handSeats[seat]]
			if !ok || p.Reveal == nil {
				continue
			}
			rank := int(p.Reveal.HandRank)
			if best == -1 || rank < best {
				best = rank
				winners = []int{seat}
			} else if rank == best {
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			// A pot whose only eligible seat forfeited its reveal falls back
			// to every eligible seat.
			winners = append(winners, pot.EligibleSeats...)
		}
		g.AwardPot(pot, winners)
		ids := make([]string, 0, len(winners))
		for _, w := range winners {
			ids = append(ids, r.handSeats[w])
			winnersSet[r.handSeats[w]] = true
		}
		dist = append(dist, wire.PotDistribution{Amount: pot.Amount, Winners: ids})
	}
	g.Pot = 0
	g.Status = holdem.StatusFinished

	allWinners := []string{}
	for _, id := range r.handSeats {
		if winnersSet[id] {
			allWinners = append(allWinners, id)
		}
	}
	r.broadcast(wire.TypeShowdown, wire.Showdown{
		Players:         showdownPlayers,
		Winners:         allWinners,
		PotDistribution: dist,
	})
	r.endHand("showdown")
}
