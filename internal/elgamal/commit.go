package elgamal

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/mpcrypto"
)

// CardCommitment hashes the six card coordinates with arity 6. Identity
// points contribute (0, 0) — the circuits use the same pre-image.
func CardCommitment(c Card) fr.Element {
	ex, ey := c.Epk.Coords()
	mx, my := c.Msg.Coords()
	px, py := c.Pk.Coords()
	return mpcrypto.MustHash(ex, ey, mx, my, px, py)
}

// DeckCommitment is the order-independent multiset commitment
// D = prod_i (cardCommitment(card_i) + 1) over F_p. A shuffle proof shows
// input and output decks share D without exposing the permutation.
func DeckCommitment(cards []Card) (fr.Element, error) {
	if len(cards) != DeckSize {
		return fr.Element{}, fmt.Errorf("elgamal: deck has %d cards, want %d", len(cards), DeckSize)
	}
	var acc, one, term fr.Element
	acc.SetOne()
	one.SetOne()
	for i := range cards {
		cc := CardCommitment(cards[i])
		term.Add(&cc, &one)
		acc.Mul(&acc, &term)
	}
	return acc, nil
}
