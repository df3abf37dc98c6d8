// Package handrank builds the 7462-class equivalence table of 5-card poker
// hands, keyed by rank-prime products, and the Poseidon Merkle trees a
// player proves hand strength against without opening their hole cards.
package handrank

import (
	"fmt"
	"sort"
)

type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case Trips:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case Quads:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Class counts: 6175 non-flush rank multisets, 1287 five-distinct-rank sets,
// 7462 equivalence classes total. Rank 0 is the royal flush.
const (
	NumBasicHands = 6175
	NumFlushHands = 1287
	NumClasses    = NumBasicHands + NumFlushHands
)

// rankPrimes maps a rank index 0..12 (deuce..ace) to its prime, so a 5-card
// multiset's product is a canonical identifier.
var rankPrimes = [13]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41}

// CardPrime returns the rank prime of deck index 0..51. Deck layout follows
// the card codec: rank = index % 13.
func CardPrime(cardIndex int) (uint64, error) {
	if cardIndex < 0 || cardIndex >= 52 {
		return 0, fmt.Errorf("handrank: card index %d out of range", cardIndex)
	}
	return rankPrimes[cardIndex%13], nil
}

// Entry is one equivalence class.
type Entry struct {
	PrimeProduct uint64
	Rank         uint16
	Category     Category
}

// Table holds the two ordered class lists and their lookup indexes.
type Table struct {
	Basic []Entry // 6175 non-flush classes, ascending rank
	Flush []Entry // 1287 flush classes, ascending rank

	basicByKey map[uint64]Entry
	flushByKey map[uint64]Entry
}

// class carries the strength key used to order all 7462 classes globally.
type class struct {
	category    Category
	tiebreakers []uint8 // high-to-low
	primeProd   uint64
	isFlush     bool
}

func compareClass(a, b class) int {
	if a.category != b.category {
		if a.category < b.category {
			return -1
		}
		return 1
	}
	l := len(a.tiebreakers)
	if len(b.tiebreakers) > l {
		l = len(b.tiebreakers)
	}
	for i := 0; i < l; i++ {
		var av, bv uint8
		if i < len(a.tiebreakers) {
			av = a.tiebreakers[i]
		}
		if i < len(b.tiebreakers) {
			bv = b.tiebreakers[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// straightHigh returns the high rank index (0-based, ace=12, wheel=3) of a
// straight over five distinct rank indices sorted descending, or ok=false.
func straightHigh(desc []uint8) (uint8, bool) {
	// Wheel: A-5-4-3-2 plays as a five-high straight.
	if desc[0] == 12 && desc[1] == 3 && desc[2] == 2 && desc[3] == 1 && desc[4] == 0 {
		return 3, true
	}
	for i := 1; i < 5; i++ {
		if desc[i-1] != desc[i]+1 {
			return 0, false
		}
	}
	return desc[0], true
}

func primeProductOf(ranks []uint8) uint64 {
	prod := uint64(1)
	for _, r := range ranks {
		prod *= rankPrimes[r]
	}
	return prod
}

// classifyRanks evaluates one rank multiset (ascending, multiplicity <= 4).
func classifyRanks(ranks []uint8, suited bool) class {
	counts := map[uint8]uint8{}
	for _, r := range ranks {
		counts[r]++
	}

	type group struct {
		rank  uint8
		count uint8
	}
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	desc := append([]uint8(nil), ranks...)
	sort.Slice(desc, func(i, j int) bool { return desc[i] > desc[j] })

	c := class{primeProd: primeProductOf(ranks), isFlush: suited}

	distinct := len(counts) == 5
	var sHigh uint8
	var isStraight bool
	if distinct {
		sHigh, isStraight = straightHigh(desc)
	}

	switch {
	case suited && isStraight:
		c.category = StraightFlush
		c.tiebreakers = []uint8{sHigh}
	case suited:
		c.category = Flush
		c.tiebreakers = desc
	case groups[0].count == 4:
		c.category = Quads
		c.tiebreakers = []uint8{groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		c.category = FullHouse
		c.tiebreakers = []uint8{groups[0].rank, groups[1].rank}
	case isStraight:
		c.category = Straight
		c.tiebreakers = []uint8{sHigh}
	case groups[0].count == 3:
		c.category = Trips
		c.tiebreakers = []uint8{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2 && groups[1].count == 2:
		c.category = TwoPair
		c.tiebreakers = []uint8{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2:
		c.category = OnePair
		c.tiebreakers = []uint8{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
	default:
		c.category = HighCard
		c.tiebreakers = desc
	}
	return c
}

// Generate enumerates every equivalence class, orders them by strength, and
// assigns global ranks 0..7461.
func Generate() (*Table, error) {
	classes := make([]class, 0, NumClasses)

	// Non-flush: all rank multisets of size 5 with multiplicity <= 4.
	var ranks [5]uint8
	var rec func(pos int, min uint8)
	rec = func(pos int, min uint8) {
		if pos == 5 {
			counts := [13]uint8{}
			for _, r := range ranks {
				counts[r]++
			}
			for _, n := range counts {
				if n > 4 {
					return
				}
			}
			classes = append(classes, classifyRanks(ranks[:], false))
			return
		}
		for r := min; r < 13; r++ {
			ranks[pos] = r
			rec(pos+1, r)
		}
	}
	rec(0, 0)

	// Flush: all five-distinct-rank sets, suited.
	for a := uint8(0); a < 13; a++ {
		for b := a + 1; b < 13; b++ {
			for c := b + 1; c < 13; c++ {
				for d := c + 1; d < 13; d++ {
					for e := d + 1; e < 13; e++ {
						classes = append(classes, classifyRanks([]uint8{a, b, c, d, e}, true))
					}
				}
			}
		}
	}

	if len(classes) != NumClasses {
		return nil, fmt.Errorf("handrank: generated %d classes, want %d", len(classes), NumClasses)
	}

	// Strongest first; rank = position.
	sort.SliceStable(classes, func(i, j int) bool { return compareClass(classes[i], classes[j]) > 0 })

	t := &Table{
		basicByKey: make(map[uint64]Entry, NumBasicHands),
		flushByKey: make(map[uint64]Entry, NumFlushHands),
	}
	for i, c := range classes {
		e := Entry{PrimeProduct: c.primeProd, Rank: uint16(i), Category: c.category}
		if c.isFlush {
			t.Flush = append(t.Flush, e)
			t.flushByKey[c.primeProd] = e
		} else {
			t.Basic = append(t.Basic, e)
			t.basicByKey[c.primeProd] = e
		}
	}
	if len(t.Basic) != NumBasicHands || len(t.Flush) != NumFlushHands {
		return nil, fmt.Errorf("handrank: split %d/%d, want %d/%d",
			len(t.Basic), len(t.Flush), NumBasicHands, NumFlushHands)
	}
	return t, nil
}

// Lookup resolves a prime-product key against the flush or basic list.
func (t *Table) Lookup(primeProduct uint64, isFlush bool) (Entry, error) {
	var e Entry
	var ok bool
	if isFlush {
		e, ok = t.flushByKey[primeProduct]
	} else {
		e, ok = t.basicByKey[primeProduct]
	}
	if !ok {
		return Entry{}, fmt.Errorf("handrank: no class for key %d (flush=%v)", primeProduct, isFlush)
	}
	return e, nil
}
