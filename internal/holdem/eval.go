package holdem

import (
	"fmt"

	"mentalpoker/internal/handrank"
)

// Card indices are deck positions 0..51; rank = index % 13 (deuce..ace),
// suit = index / 13.

var combos7Choose5 = [21][5]int{
	{0, 1, 2, 3, 4},
	{0, 1, 2, 3, 5},
	{0, 1, 2, 3, 6},
	{0, 1, 2, 4, 5},
	{0, 1, 2, 4, 6},
	{0, 1, 2, 5, 6},
	{0, 1, 3, 4, 5},
	{0, 1, 3, 4, 6},
	{0, 1, 3, 5, 6},
	{0, 1, 4, 5, 6},
	{0, 2, 3, 4, 5},
	{0, 2, 3, 4, 6},
	{0, 2, 3, 5, 6},
	{0, 2, 4, 5, 6},
	{0, 3, 4, 5, 6},
	{1, 2, 3, 4, 5},
	{1, 2, 3, 4, 6},
	{1, 2, 3, 5, 6},
	{1, 2, 4, 5, 6},
	{1, 3, 4, 5, 6},
	{2, 3, 4, 5, 6},
}

// Eval is the best five-card selection of a seven-card hand.
type Eval struct {
	Rank         uint16
	Category     handrank.Category
	IsFlush      bool
	PrimeProduct uint64
	CardIndices  [5]int
}

// Describe renders the showdown hand description.
func (e Eval) Describe() string {
	return e.Category.String()
}

func assertDistinct(cards []int) error {
	var seen [52]bool
	for _, c := range cards {
		if c < 0 || c > 51 {
			return fmt.Errorf("holdem: invalid card index %d", c)
		}
		if seen[c] {
			return fmt.Errorf("holdem: duplicate card index %d", c)
		}
		seen[c] = true
	}
	return nil
}

// Evaluate5 ranks one exact five-card selection against the class table.
func Evaluate5(t *handrank.Table, cards5 [5]int) (Eval, error) {
	if err := assertDistinct(cards5[:]); err != nil {
		return Eval{}, err
	}
	suit := cards5[0] / 13
	isFlush := true
	prod := uint64(1)
	for _, c := range cards5 {
		if c/13 != suit {
			isFlush = false
		}
		p, err := handrank.CardPrime(c)
		if err != nil {
			return Eval{}, err
		}
		prod *= p
	}
	entry, err := t.Lookup(prod, isFlush)
	if err != nil {
		return Eval{}, err
	}
	return Eval{
		Rank:         entry.Rank,
		Category:     entry.Category,
		IsFlush:      isFlush,
		PrimeProduct: prod,
		CardIndices:  cards5,
	}, nil
}

// BestHand finds the lowest-ranked (strongest) five-card selection of
// {hole0, hole1, board0..4}.
func BestHand(t *handrank.Table, cards7 []int) (Eval, error) {
	if len(cards7) != 7 {
		return Eval{}, fmt.Errorf("holdem: BestHand wants 7 cards, got %d", len(cards7))
	}
	if err := assertDistinct(cards7); err != nil {
		return Eval{}, err
	}
	var best Eval
	haveBest := false
	for _, idx := range combos7Choose5 {
		var five [5]int
		for i, j := range idx {
			five[i] = cards7[j]
		}
		e, err := Evaluate5(t, five)
		if err != nil {
			return Eval{}, err
		}
		if !haveBest || e.Rank < best.Rank {
			best = e
			haveBest = true
		}
	}
	return best, nil
}
