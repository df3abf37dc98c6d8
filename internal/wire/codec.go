package wire

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/mpcrypto"
)

// EncodeCard flattens a card triple into its wire 6-tuple.
func EncodeCard(c elgamal.Card) Card {
	var out Card
	out[0], out[1] = c.Epk.Strings()
	out[2], out[3] = c.Msg.Strings()
	out[4], out[5] = c.Pk.Strings()
	return out
}

// DecodeCard parses and validates a wire card.
func DecodeCard(w Card) (elgamal.Card, error) {
	epk, err := mpcrypto.PointFromStrings(w[0], w[1])
	if err != nil {
		return elgamal.Card{}, fmt.Errorf("epk: %w", err)
	}
	msg, err := mpcrypto.PointFromStrings(w[2], w[3])
	if err != nil {
		return elgamal.Card{}, fmt.Errorf("msg: %w", err)
	}
	pk, err := mpcrypto.PointFromStrings(w[4], w[5])
	if err != nil {
		return elgamal.Card{}, fmt.Errorf("pk: %w", err)
	}
	return elgamal.Card{Epk: epk, Msg: msg, Pk: pk}, nil
}

// EncodeDeck flattens a 52-card deck.
func EncodeDeck(cards []elgamal.Card) ([52]Card, error) {
	var out [52]Card
	if len(cards) != elgamal.DeckSize {
		return out, fmt.Errorf("wire: deck has %d cards", len(cards))
	}
	for i := range cards {
		out[i] = EncodeCard(cards[i])
	}
	return out, nil
}

// DecodeDeck parses a 52-card wire deck.
func DecodeDeck(w [52]Card) ([]elgamal.Card, error) {
	cards := make([]elgamal.Card, elgamal.DeckSize)
	for i := range w {
		c, err := DecodeCard(w[i])
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		cards[i] = c
	}
	return cards, nil
}

// FieldString renders a field element in wire form.
func FieldString(e fr.Element) string {
	return e.String()
}

// ParseField parses a decimal field-element string.
func ParseField(s string) (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetString(s); err != nil {
		return fr.Element{}, fmt.Errorf("wire: field element %q: %w", s, err)
	}
	return e, nil
}
