package holdem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func chipsInPlay(g *Game) uint64 {
	total := g.Pot
	for i := range g.Seats {
		total += g.Seats[i].Stack
	}
	return total
}

func apply(t *testing.T, g *Game, seat int, a Action, amount uint64) {
	t.Helper()
	before := chipsInPlay(g)
	require.NoError(t, g.Apply(seat, a, amount))
	require.Equal(t, before, chipsInPlay(g), "chips must be conserved")
}

func TestHeadsUpBlindsAndOrder(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)

	// Button posts the small blind heads-up and acts first preflop.
	require.Equal(t, 0, g.SmallBlindSeat)
	require.Equal(t, 1, g.BigBlindSeat)
	require.Equal(t, 0, g.Current)
	require.Equal(t, uint64(3), g.Pot)
	require.Equal(t, uint64(99), g.Seats[0].Stack)
	require.Equal(t, uint64(98), g.Seats[1].Stack)
}

// S1: heads-up fold wins the blinds.
func TestFoldWinsBlinds(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)

	apply(t, g, 0, ActionFold, 0)
	winner, done := g.FoldWinner()
	require.True(t, done)
	require.Equal(t, 1, winner)

	g.ReturnUncalled()
	g.Seats[winner].Stack += g.Pot
	g.Pot = 0
	require.Equal(t, uint64(99), g.Seats[0].Stack)
	require.Equal(t, uint64(101), g.Seats[1].Stack)
}

// S2: call and check down to the river.
func TestCheckDownToShowdown(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)

	apply(t, g, 0, ActionCall, 0)
	require.Equal(t, uint64(4), g.Pot)
	require.Equal(t, uint64(98), g.Seats[0].Stack)
	// Big blind keeps the option even with bets level.
	require.False(t, g.StreetComplete())
	require.Equal(t, 1, g.Current)
	apply(t, g, 1, ActionCheck, 0)
	require.True(t, g.StreetComplete())

	for street := StreetFlop; street <= StreetRiver; street++ {
		got, err := g.AdvanceStreet()
		require.NoError(t, err)
		require.Equal(t, street, got)
		// Heads-up postflop: the big blind acts first.
		require.Equal(t, 1, g.Current)
		apply(t, g, 1, ActionCheck, 0)
		apply(t, g, 0, ActionCheck, 0)
		require.True(t, g.StreetComplete())
	}
	require.Equal(t, uint64(4), g.Pot)
}

func TestBigBlindOptionRaise(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)

	apply(t, g, 0, ActionCall, 0)
	valid := g.ValidActions(1)
	require.Contains(t, valid, ActionRaise)
	apply(t, g, 1, ActionRaise, 6)
	require.False(t, g.StreetComplete())
	require.Equal(t, 0, g.Current)
	apply(t, g, 0, ActionCall, 0)
	require.True(t, g.StreetComplete())
	require.Equal(t, uint64(12), g.Pot)
}

func TestCheckIllegalFacingBet(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)
	err = g.Apply(0, ActionCheck, 0)
	require.ErrorIs(t, err, ErrIllegalAction)
}

func TestBetIllegalPreflop(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)
	// The big blind stands as the opening bet; only raise is available.
	err = g.Apply(0, ActionBet, 10)
	require.ErrorIs(t, err, ErrIllegalAction)
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	g, err := NewGame([]uint64{100, 100}, 0, 1, 2)
	require.NoError(t, err)
	err = g.Apply(0, ActionRaise, 3) // min raise to 4
	require.ErrorIs(t, err, ErrBadAmount)
	apply(t, g, 0, ActionRaise, 4)
}

func TestUnderRaiseAllInDoesNotReopen(t *testing.T) {
	// Seat 2 is short: an all-in below the minimum raise must not let the
	// earlier raiser go again.
	g, err := NewGame([]uint64{100, 100, 11}, 0, 1, 2)
	require.NoError(t, err)

	// Preflop: seat 0 (button) acts first in 3-handed after the blinds.
	require.Equal(t, 0, g.Current)
	apply(t, g, 0, ActionRaise, 10)
	apply(t, g, 1, ActionCall, 0)
	// Seat 2 shoves 11 total: a 1-chip under-raise.
	apply(t, g, 2, ActionAllIn, 0)
	require.True(t, g.Seats[2].AllIn)

	// Seats 0 and 1 may call the extra chip but not raise.
	require.NotContains(t, g.ValidActions(0), ActionRaise)
	apply(t, g, 0, ActionCall, 0)
	require.NotContains(t, g.ValidActions(1), ActionRaise)
	apply(t, g, 1, ActionCall, 0)
	require.True(t, g.StreetComplete())
}

func TestFullRaiseAllInReopens(t *testing.T) {
	g, err := NewGame([]uint64{100, 100, 50}, 0, 1, 2)
	require.NoError(t, err)

	apply(t, g, 0, ActionRaise, 10)
	apply(t, g, 1, ActionCall, 0)
	apply(t, g, 2, ActionAllIn, 0) // 50 total: a full raise
	require.Contains(t, g.ValidActions(0), ActionRaise)
}

// S3 first branch: the third player raises, the second folds; two side-pot
// tiers collapse around the short all-in.
func TestSidePotsShortAllInFold(t *testing.T) {
	g, err := NewGame([]uint64{20, 50, 50}, 0, 1, 2)
	require.NoError(t, err)

	require.Equal(t, 0, g.Current)
	apply(t, g, 0, ActionAllIn, 0) // 20
	apply(t, g, 1, ActionCall, 0)  // to 20
	apply(t, g, 2, ActionRaise, 50)
	apply(t, g, 1, ActionFold, 0)

	g.ReturnUncalled()
	// Seat 2's unmatched 30 comes back.
	require.Equal(t, uint64(30), g.Seats[2].Stack)

	pots := g.SidePots()
	var total uint64
	for _, p := range pots {
		total += p.Amount
		for _, seat := range p.EligibleSeats {
			require.False(t, g.Seats[seat].Folded)
		}
	}
	require.Equal(t, g.Pot, total, "side pots must cover the pot exactly")

	// Main pot: 20 x 3. Folded seat 1's chips stay in but win nothing.
	require.Equal(t, uint64(60), pots[0].Amount)
	require.Equal(t, []int{0, 2}, pots[0].EligibleSeats)
}

// S3 second branch: all three all in at two levels.
func TestSidePotsTwoTiers(t *testing.T) {
	g, err := NewGame([]uint64{20, 50, 50}, 0, 1, 2)
	require.NoError(t, err)

	apply(t, g, 0, ActionAllIn, 0)  // 20
	apply(t, g, 1, ActionAllIn, 0)  // 50
	apply(t, g, 2, ActionCall, 0)   // 50
	require.True(t, g.StreetComplete())

	pots := g.SidePots()
	require.Len(t, pots, 2)
	require.Equal(t, uint64(60), pots[0].Amount)
	require.Equal(t, []int{0, 1, 2}, pots[0].EligibleSeats)
	require.Equal(t, uint64(60), pots[1].Amount)
	require.Equal(t, []int{1, 2}, pots[1].EligibleSeats)

	var total uint64
	for _, p := range pots {
		total += p.Amount
	}
	require.Equal(t, g.Pot, total)
}

func TestAwardPotOddChipGoesClockwiseFromDealer(t *testing.T) {
	g, err := NewGame([]uint64{100, 100, 100}, 0, 1, 2)
	require.NoError(t, err)
	pot := Pot{Amount: 5, EligibleSeats: []int{1, 2}}
	payouts := g.AwardPot(pot, []int{1, 2})
	// First eligible winner clockwise from dealer seat 0 is seat 1.
	require.Equal(t, uint64(3), payouts[1])
	require.Equal(t, uint64(2), payouts[2])
}

// Legal-action closure: every action the oracle lists applies cleanly with
// a legal amount, and every action it omits is rejected.
func TestValidActionsClosure(t *testing.T) {
	scenarios := []func() *Game{
		func() *Game {
			g, _ := NewGame([]uint64{100, 100}, 0, 1, 2)
			return g
		},
		func() *Game {
			g, _ := NewGame([]uint64{100, 100}, 0, 1, 2)
			_ = g.Apply(0, ActionCall, 0)
			return g
		},
		func() *Game {
			g, _ := NewGame([]uint64{100, 100, 11}, 0, 1, 2)
			_ = g.Apply(0, ActionRaise, 10)
			_ = g.Apply(1, ActionCall, 0)
			_ = g.Apply(2, ActionAllIn, 0)
			return g
		},
		func() *Game {
			g, _ := NewGame([]uint64{100, 100}, 0, 1, 2)
			_ = g.Apply(0, ActionCall, 0)
			_ = g.Apply(1, ActionCheck, 0)
			_, _ = g.AdvanceStreet()
			return g
		},
	}

	all := []Action{ActionBet, ActionCall, ActionFold, ActionRaise, ActionCheck, ActionAllIn}
	for i, build := range scenarios {
		g := build()
		seat := g.Current
		require.GreaterOrEqual(t, seat, 0, "scenario %d", i)
		valid := map[Action]bool{}
		for _, a := range g.ValidActions(seat) {
			valid[a] = true
		}
		for _, a := range all {
			fresh := build()
			amount := uint64(0)
			switch a {
			case ActionBet:
				amount = fresh.BigBlind
			case ActionRaise:
				amount = fresh.MinRaiseTo()
			}
			err := fresh.Apply(seat, a, amount)
			if valid[a] {
				require.NoError(t, err, "scenario %d action %s should apply", i, a)
			} else {
				require.Error(t, err, "scenario %d action %s should be rejected", i, a)
			}
		}
	}
}

func TestTurnOrderSkipsFolded(t *testing.T) {
	g, err := NewGame([]uint64{100, 100, 100, 100}, 0, 1, 2)
	require.NoError(t, err)
	// Four-handed preflop: seat 3 (after big blind seat 2) opens.
	require.Equal(t, 3, g.Current)
	apply(t, g, 3, ActionCall, 0)
	apply(t, g, 0, ActionFold, 0)
	apply(t, g, 1, ActionCall, 0) // small blind tops up
	apply(t, g, 2, ActionCheck, 0)
	require.True(t, g.StreetComplete())

	_, err = g.AdvanceStreet()
	require.NoError(t, err)
	// Folded seat 0 is skipped; action starts at seat 1.
	require.Equal(t, 1, g.Current)
}

func TestPotConservationAcrossHand(t *testing.T) {
	g, err := NewGame([]uint64{100, 100, 100}, 1, 1, 2)
	require.NoError(t, err)
	start := chipsInPlay(g)

	apply(t, g, g.Current, ActionCall, 0)
	apply(t, g, g.Current, ActionCall, 0)
	apply(t, g, g.Current, ActionCheck, 0)
	_, err = g.AdvanceStreet()
	require.NoError(t, err)
	apply(t, g, g.Current, ActionBet, 10)
	apply(t, g, g.Current, ActionRaise, 25)
	apply(t, g, g.Current, ActionFold, 0)
	apply(t, g, g.Current, ActionCall, 0)

	require.Equal(t, start, chipsInPlay(g))
	var committed uint64
	for i := range g.Seats {
		committed += g.Seats[i].TotalBet
	}
	require.Equal(t, g.Pot, committed)
}
