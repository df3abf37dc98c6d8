package holdem

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/mpcrypto"
)

// StateCommitment hashes the field-ordered game-state tuple the game_action
// circuit is verified against: per-seat stacks, pot, street, current player
// (1-based, 0 when betting is closed), last action, last bet size, per-seat
// street bets, status, dealer seat. Up to four seats the 2n+7-element tuple
// (11 elements heads-up) is hashed in one absorption; tables of five or more
// seats fold the per-seat vectors into sub-hashes first so the arity stays
// within the hash's bound.
func StateCommitment(g *Game) fr.Element {
	n := len(g.Seats)

	stacks := make([]fr.Element, n)
	streetBets := make([]fr.Element, n)
	for i := range g.Seats {
		stacks[i].SetUint64(g.Seats[i].Stack)
		streetBets[i].SetUint64(g.Seats[i].StreetBet)
	}

	var pot, street, current, lastAction, lastBet, status, dealer fr.Element
	pot.SetUint64(g.Pot)
	street.SetUint64(uint64(g.Street))
	if g.Current >= 0 {
		current.SetUint64(uint64(g.Current + 1))
	}
	lastAction.SetUint64(uint64(g.LastAction))
	lastBet.SetUint64(g.LastBetSize)
	status.SetUint64(uint64(g.Status))
	dealer.SetUint64(uint64(g.Dealer))

	if 2*n+7 <= 16 {
		tuple := make([]fr.Element, 0, 2*n+7)
		tuple = append(tuple, stacks...)
		tuple = append(tuple, pot, street, current, lastAction, lastBet)
		tuple = append(tuple, streetBets...)
		tuple = append(tuple, status, dealer)
		return mpcrypto.MustHash(tuple...)
	}

	stackH := mpcrypto.MustHash(stacks...)
	betH := mpcrypto.MustHash(streetBets...)
	tuple := []fr.Element{stackH, pot, street, current, lastAction, lastBet, betH, status, dealer}
	return mpcrypto.MustHash(tuple...)
}
