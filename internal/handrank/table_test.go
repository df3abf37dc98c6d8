package handrank

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// card builds a deck index from rank (0=deuce..12=ace) and suit 0..3.
func card(rank, suit int) int {
	return suit*13 + rank
}

func product(t *testing.T, cards ...int) uint64 {
	t.Helper()
	prod := uint64(1)
	for _, c := range cards {
		p, err := CardPrime(c)
		require.NoError(t, err)
		prod *= p
	}
	return prod
}

func TestGenerateCounts(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	require.Len(t, tbl.Basic, NumBasicHands)
	require.Len(t, tbl.Flush, NumFlushHands)

	// Global ranks must cover 0..7461 exactly once.
	seen := make([]bool, NumClasses)
	for _, e := range tbl.Basic {
		require.False(t, seen[e.Rank])
		seen[e.Rank] = true
	}
	for _, e := range tbl.Flush {
		require.False(t, seen[e.Rank])
		seen[e.Rank] = true
	}
	for rank, ok := range seen {
		require.True(t, ok, "rank %d unassigned", rank)
	}
}

func TestRoyalFlushIsRankZero(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	// A K Q J T suited.
	key := product(t, card(12, 0), card(11, 0), card(10, 0), card(9, 0), card(8, 0))
	e, err := tbl.Lookup(key, true)
	require.NoError(t, err)
	require.Equal(t, uint16(0), e.Rank)
	require.Equal(t, StraightFlush, e.Category)
}

func TestRoyalFlushBeatsQuads(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)

	royal := product(t, card(12, 0), card(11, 0), card(10, 0), card(9, 0), card(8, 0))
	rf, err := tbl.Lookup(royal, true)
	require.NoError(t, err)

	// Four aces + king.
	quads := product(t, card(12, 0), card(12, 1), card(12, 2), card(12, 3), card(11, 0))
	q, err := tbl.Lookup(quads, false)
	require.NoError(t, err)
	require.Equal(t, Quads, q.Category)
	require.Less(t, rf.Rank, q.Rank)
}

func TestWheelIsWeakestStraight(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)

	wheel := product(t, card(12, 0), card(0, 1), card(1, 2), card(2, 3), card(3, 0))
	w, err := tbl.Lookup(wheel, false)
	require.NoError(t, err)
	require.Equal(t, Straight, w.Category)

	sixHigh := product(t, card(0, 0), card(1, 1), card(2, 2), card(3, 3), card(4, 0))
	s, err := tbl.Lookup(sixHigh, false)
	require.NoError(t, err)
	require.Equal(t, Straight, s.Category)
	require.Greater(t, w.Rank, s.Rank, "wheel ranks below the six-high straight")
}

func TestCategoryOrdering(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)

	lookups := []struct {
		cat  Category
		key  uint64
		fl   bool
	}{
		{StraightFlush, product(t, card(8, 0), card(7, 0), card(6, 0), card(5, 0), card(4, 0)), true},
		{Quads, product(t, card(5, 0), card(5, 1), card(5, 2), card(5, 3), card(0, 0)), false},
		{FullHouse, product(t, card(5, 0), card(5, 1), card(5, 2), card(0, 0), card(0, 1)), false},
		{Flush, product(t, card(0, 0), card(2, 0), card(4, 0), card(6, 0), card(9, 0)), true},
		{Straight, product(t, card(4, 0), card(5, 1), card(6, 2), card(7, 3), card(8, 0)), false},
		{Trips, product(t, card(5, 0), card(5, 1), card(5, 2), card(0, 0), card(1, 1)), false},
		{TwoPair, product(t, card(5, 0), card(5, 1), card(4, 2), card(4, 3), card(0, 0)), false},
		{OnePair, product(t, card(5, 0), card(5, 1), card(4, 2), card(3, 3), card(0, 0)), false},
		{HighCard, product(t, card(0, 0), card(2, 1), card(4, 2), card(6, 3), card(9, 0)), false},
	}

	prev := -1
	for _, l := range lookups {
		e, err := tbl.Lookup(l.key, l.fl)
		require.NoError(t, err)
		require.Equal(t, l.cat, e.Category)
		require.Greater(t, int(e.Rank), prev, "%s must rank below the previous category", l.cat)
		prev = int(e.Rank)
	}
}

func TestLookupUnknownKey(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	_, err = tbl.Lookup(1, false)
	require.Error(t, err)
}

func TestArtifactRoundTrip(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, tbl.Save(dir))
	require.FileExists(t, filepath.Join(dir, BasicFileName))
	require.FileExists(t, filepath.Join(dir, FlushFileName))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, len(tbl.Basic), len(loaded.Basic))
	require.Equal(t, len(tbl.Flush), len(loaded.Flush))
	for i := range tbl.Basic {
		require.Equal(t, tbl.Basic[i], loaded.Basic[i])
	}
	for i := range tbl.Flush {
		require.Equal(t, tbl.Flush[i], loaded.Flush[i])
	}
}
