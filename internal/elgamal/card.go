// Package elgamal implements the collaborative card-masking scheme: each
// card is an ElGamal ciphertext on BabyJubJub under the joint public key of
// the players holding a mask layer, and unmasking is a commutative sequence
// of per-player partial decryptions.
package elgamal

import (
	"errors"
	"fmt"

	"mentalpoker/internal/mpcrypto"
)

const DeckSize = 52

var (
	// ErrNoParticipants is returned by Mask when no player has been added to
	// the card's joint key yet.
	ErrNoParticipants = errors.New("elgamal: mask requires at least one participant key")
	// ErrAlreadyUnmasked is returned by PartialUnmask when the joint key is
	// already the identity.
	ErrAlreadyUnmasked = errors.New("elgamal: card is already fully unmasked")
	// ErrPkAtInfinity is returned by AddPlayerToMask on a malformed card that
	// carries an ephemeral key but no joint key.
	ErrPkAtInfinity = errors.New("elgamal: masked card has joint key at infinity")
)

// Card is the ciphertext triple.
//
//	Epk: aggregate ephemeral key, (sum of nonces)*G; identity if never masked.
//	Msg: masked message point.
//	Pk:  joint public key, (sum of player secrets)*G; identity if no layers.
type Card struct {
	Epk mpcrypto.Point
	Msg mpcrypto.Point
	Pk  mpcrypto.Point
}

// NewCard returns the plaintext card for deck index 0..51: epk and pk at
// identity, msg the card value point.
func NewCard(index int) (Card, error) {
	v, err := CardPoint(index)
	if err != nil {
		return Card{}, err
	}
	return Card{
		Epk: mpcrypto.Identity(),
		Msg: v,
		Pk:  mpcrypto.Identity(),
	}, nil
}

// FreshDeck returns the 52 plaintext cards in index order.
func FreshDeck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		c, err := NewCard(i)
		if err != nil {
			panic(err) // indices 0..51 are always valid
		}
		deck[i] = c
	}
	return deck
}

// CardPoint maps a deck index to its value point, M_i = (i+1)*G. The offset
// keeps index 0 away from the identity.
func CardPoint(index int) (mpcrypto.Point, error) {
	if index < 0 || index >= DeckSize {
		return mpcrypto.Point{}, fmt.Errorf("elgamal: card index %d out of range", index)
	}
	return mpcrypto.MulBase(mpcrypto.ScalarFromUint64(uint64(index + 1))), nil
}

// PointToCardIndex inverts CardPoint by exhaustive comparison over the deck.
func PointToCardIndex(p mpcrypto.Point) (int, error) {
	for i := 0; i < DeckSize; i++ {
		v, _ := CardPoint(i)
		if mpcrypto.PointEq(p, v) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("elgamal: point does not decode to a card")
}

// AddPlayerToMask adds a player's key layer: pk' = pk + s*G, and if the card
// already carries an ephemeral key, msg' = msg + s*epk so the new layer also
// covers the existing nonces.
func AddPlayerToMask(c Card, s mpcrypto.Scalar) (Card, error) {
	if !c.Epk.IsIdentity() && c.Pk.IsIdentity() {
		return Card{}, ErrPkAtInfinity
	}
	out := c
	out.Pk = mpcrypto.PointAdd(c.Pk, mpcrypto.MulBase(s))
	if !c.Epk.IsIdentity() {
		out.Msg = mpcrypto.PointAdd(c.Msg, mpcrypto.MulPoint(c.Epk, s))
	}
	return out, nil
}

// Mask re-randomizes the card under the current joint key:
// epk' = epk + rho*G, msg' = msg + rho*pk.
func Mask(c Card, rho mpcrypto.Scalar) (Card, error) {
	if c.Pk.IsIdentity() {
		return Card{}, ErrNoParticipants
	}
	out := c
	out.Epk = mpcrypto.PointAdd(c.Epk, mpcrypto.MulBase(rho))
	out.Msg = mpcrypto.PointAdd(c.Msg, mpcrypto.MulPoint(c.Pk, rho))
	return out, nil
}

// PartialUnmask removes one player's layer: msg' = msg - s*epk,
// pk' = pk - s*G. When the last layer is removed the joint key cancels to
// the explicit identity and Msg is the card value point again.
func PartialUnmask(c Card, s mpcrypto.Scalar) (Card, error) {
	if c.Pk.IsIdentity() {
		return Card{}, ErrAlreadyUnmasked
	}
	out := c
	out.Msg = mpcrypto.PointSub(c.Msg, mpcrypto.MulPoint(c.Epk, s))
	out.Pk = mpcrypto.PointSub(c.Pk, mpcrypto.MulBase(s))
	return out, nil
}

// AddAndMask is the shuffle-step composition: add the player's key layer,
// then re-randomize with a fresh nonce.
func AddAndMask(c Card, s, rho mpcrypto.Scalar) (Card, error) {
	withKey, err := AddPlayerToMask(c, s)
	if err != nil {
		return Card{}, err
	}
	return Mask(withKey, rho)
}

// Decode returns the deck index of a fully unmasked card.
func Decode(c Card) (int, error) {
	if !c.Pk.IsIdentity() {
		return 0, fmt.Errorf("elgamal: card still has mask layers")
	}
	return PointToCardIndex(c.Msg)
}

// Validate checks the declared points of a card received off the wire.
func Validate(c Card) error {
	if err := mpcrypto.CheckPoint(c.Epk); err != nil {
		return fmt.Errorf("epk: %w", err)
	}
	if err := mpcrypto.CheckPoint(c.Msg); err != nil {
		return fmt.Errorf("msg: %w", err)
	}
	if err := mpcrypto.CheckPoint(c.Pk); err != nil {
		return fmt.Errorf("pk: %w", err)
	}
	return nil
}
