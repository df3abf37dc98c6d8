package room

import (
	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// requestShuffle asks the next player in the round robin to permute and
// re-mask the deck, or deals once every player has contributed a layer.
func (r *Room) requestShuffle() {
	if r.shuffleTurn >= len(r.shuffleOrder) {
		r.dealCards()
		return
	}
	targetID := r.shuffleOrder[r.shuffleTurn]
	target, ok := r.players[targetID]
	if !ok {
		r.abortHand("shuffler missing")
		return
	}
	deck, err := wire.EncodeDeck(r.deck)
	if err != nil {
		r.log.Error().Err(err).Msg("encode deck")
		return
	}
	r.sender.Send(targetID, wire.TypeShuffleTurn, wire.ShuffleTurn{
		PlayerID:    targetID,
		SeatIndex:   target.Seat,
		CurrentDeck: deck,
	})
	r.armTimer(r.cfg.PhaseTimeoutD(), func() {
		if r.phase != PhaseShuffling {
			return
		}
		if p, ok := r.players[targetID]; ok {
			r.forfeitPlayer(p, "shuffle timeout")
		}
	})
}

// handleShuffle validates a submitted deck permutation against the current
// deck commitment, then gates the transition on the shuffle (first player)
// or reshuffle (later players) proof.
func (r *Room) handleShuffle(playerID string, m wire.SubmitShuffle) {
	p := r.players[playerID]
	if r.phase != PhaseShuffling {
		r.sendError(playerID, wire.CodeInvalidState, "not shuffling")
		return
	}
	if r.shuffleOrder[r.shuffleTurn] != playerID {
		r.sendError(playerID, wire.CodeNotYourTurn, "not your shuffle turn")
		return
	}
	newDeck, err := wire.DecodeDeck(m.ShuffledDeck)
	if err != nil {
		r.sendError(playerID, wire.CodeInvalidCard, err.Error())
		return
	}
	afterCommit, err := elgamal.DeckCommitment(newDeck)
	if err != nil {
		r.sendError(playerID, wire.CodeInvalidCard, err.Error())
		return
	}
	if wire.FieldString(afterCommit) != m.DeckCommitment {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "declared deck commitment does not match submitted deck")
		return
	}

	pubX, pubY := p.Pub.Strings()
	expected := []string{wire.FieldString(r.deckCommit), m.DeckCommitment, pubX, pubY}
	if !equalSignals(m.PublicSignals, expected) {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "public signals do not match canonical deck commitments")
		return
	}

	circuit := zkverify.CircuitReshuffle
	if r.shuffleTurn == 0 {
		circuit = zkverify.CircuitShuffle
	}
	turn := r.shuffleTurn
	r.enqueueVerify(playerID, circuit, m.Proof, m.PublicSignals, func(err error) {
		if r.phase != PhaseShuffling || r.shuffleTurn != turn {
			return
		}
		if err != nil {
			r.proofRejected(p, wire.CodeInvalidProof, err.Error())
			return
		}
		r.cancelTimer()
		r.deck = newDeck
		r.refreshDeckCommitments()
		r.broadcast(wire.TypeShuffleComplete, wire.ShuffleComplete{
			PlayerID:       playerID,
			DeckCommitment: wire.FieldString(r.deckCommit),
		})
		r.shuffleTurn++
		r.requestShuffle()
	})
}

func equalSignals(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		g, err := wire.ParseField(got[i])
		if err != nil {
			return false
		}
		w, err := wire.ParseField(want[i])
		if err != nil {
			return false
		}
		if !g.Equal(&w) {
			return false
		}
	}
	return true
}
