package holdem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mentalpoker/internal/handrank"
)

// deck layout: index = suit*13 + rank, rank 0 = deuce .. 12 = ace.
func c(rank, suit int) int { return suit*13 + rank }

func loadTable(t *testing.T) *handrank.Table {
	t.Helper()
	tbl, err := handrank.Generate()
	require.NoError(t, err)
	return tbl
}

// S6: royal flush beats four of a kind on the same board.
func TestRoyalFlushBeatsQuadsOnBoard(t *testing.T) {
	tbl := loadTable(t)

	// Board: Qs Js Ts 2h 2d (spades = suit 3, hearts = 2, diamonds = 1).
	board := []int{c(10, 3), c(9, 3), c(8, 3), c(0, 2), c(0, 1)}

	// P1: As Ks.
	p1, err := BestHand(tbl, append([]int{c(12, 3), c(11, 3)}, board...))
	require.NoError(t, err)
	require.Equal(t, handrank.StraightFlush, p1.Category)
	require.Equal(t, uint16(0), p1.Rank)
	require.True(t, p1.IsFlush)

	// P2: Ah Ad -> two pair, aces and deuces, not quads (only two deuces on
	// board); use 2s 2c instead for quads.
	p2, err := BestHand(tbl, append([]int{c(0, 3), c(0, 0)}, board...))
	require.NoError(t, err)
	require.Equal(t, handrank.Quads, p2.Category)

	require.Less(t, p1.Rank, p2.Rank, "lower rank is the better hand")
}

func TestBestHandPicksFiveOfSeven(t *testing.T) {
	tbl := loadTable(t)
	// Board pairs the deuce; hole cards make a straight.
	cards7 := []int{c(3, 0), c(4, 1), c(5, 2), c(6, 3), c(7, 0), c(0, 1), c(0, 2)}
	e, err := BestHand(tbl, cards7)
	require.NoError(t, err)
	require.Equal(t, handrank.Straight, e.Category)
	for _, idx := range e.CardIndices {
		require.NotEqual(t, c(0, 1), idx)
		require.NotEqual(t, c(0, 2), idx)
	}
}

func TestBestHandRejectsDuplicates(t *testing.T) {
	tbl := loadTable(t)
	_, err := BestHand(tbl, []int{1, 1, 2, 3, 4, 5, 6})
	require.Error(t, err)
}

func TestEvaluate5TieIsSymmetric(t *testing.T) {
	tbl := loadTable(t)
	// Same ranks, different suits: identical class.
	a, err := Evaluate5(tbl, [5]int{c(12, 0), c(10, 1), c(8, 2), c(6, 3), c(4, 0)})
	require.NoError(t, err)
	b, err := Evaluate5(tbl, [5]int{c(12, 1), c(10, 2), c(8, 3), c(6, 0), c(4, 1)})
	require.NoError(t, err)
	require.Equal(t, a.Rank, b.Rank)
}
