// Package prover is the client side of the protocol: key material, witness
// assembly for each circuit, and an automaton that plays a seat over the
// coordinator's websocket. Proof generation itself is a black box behind
// the Engine interface; this package prepares exactly the inputs the
// circuits constrain and the coordinator's canonical commitments expect.
package prover

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/holdem"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/zkverify"
)

// Engine generates proofs for assembled witnesses. Implementations wrap the
// external proving stack; the coordinator only ever sees (proof,
// publicSignals).
type Engine interface {
	Prove(circuit zkverify.CircuitType, w Witness) (proof []byte, err error)
}

// Witness carries a circuit's full assignment: public signals in circuit
// order plus the private inputs, all as decimal field-element strings.
type Witness struct {
	Public  []string
	Private map[string][]string
}

// KeyPair is a player's long-term protocol key.
type KeyPair struct {
	Secret mpcrypto.Scalar
	Public mpcrypto.Point
}

func GenerateKey() (KeyPair, error) {
	s, err := mpcrypto.RandomScalar()
	if err != nil {
		return KeyPair{}, err
	}
	if s.IsZero() {
		return GenerateKey()
	}
	return KeyPair{Secret: s, Public: mpcrypto.MulBase(s)}, nil
}

// randomPermutation draws a uniform permutation of [0, n) from crypto/rand.
func randomPermutation(n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("prover: permutation rng: %w", err)
		}
		k := int(j.Int64())
		perm[i], perm[k] = perm[k], perm[i]
	}
	return perm, nil
}

// ShuffleResult is a prepared shuffle or reshuffle step: the output deck
// the coordinator receives and the witness the circuit proves over.
type ShuffleResult struct {
	DeckOut     []elgamal.Card
	CommitAfter fr.Element
	Witness     Witness
	Circuit     zkverify.CircuitType
}

// BuildShuffle permutes and re-masks the current deck under the player's
// key. The first shuffler receives the plaintext deck (shuffle circuit);
// later players transform an already-masked deck (reshuffle circuit).
func BuildShuffle(deckIn []elgamal.Card, key KeyPair) (*ShuffleResult, error) {
	if len(deckIn) != elgamal.DeckSize {
		return nil, fmt.Errorf("prover: deck has %d cards", len(deckIn))
	}
	commitBefore, err := elgamal.DeckCommitment(deckIn)
	if err != nil {
		return nil, err
	}

	perm, err := randomPermutation(elgamal.DeckSize)
	if err != nil {
		return nil, err
	}
	circuit := zkverify.CircuitReshuffle
	if deckIn[0].Pk.IsIdentity() {
		circuit = zkverify.CircuitShuffle
	}

	deckOut := make([]elgamal.Card, elgamal.DeckSize)
	nonces := make([]mpcrypto.Scalar, elgamal.DeckSize)
	for i := 0; i < elgamal.DeckSize; i++ {
		rho, err := mpcrypto.RandomScalar()
		if err != nil {
			return nil, err
		}
		nonces[i] = rho
		out, err := elgamal.AddAndMask(deckIn[perm[i]], key.Secret, rho)
		if err != nil {
			return nil, fmt.Errorf("prover: card %d: %w", i, err)
		}
		deckOut[i] = out
	}
	commitAfter, err := elgamal.DeckCommitment(deckOut)
	if err != nil {
		return nil, err
	}

	pubX, pubY := key.Public.Strings()
	w := Witness{
		Public: []string{commitBefore.String(), commitAfter.String(), pubX, pubY},
		Private: map[string][]string{
			"permutation":  intStrings(perm),
			"playerSecret": {key.Secret.String()},
			"nonces":       scalarStrings(nonces),
			"deckIn":       deckStrings(deckIn),
			"deckOut":      deckStrings(deckOut),
		},
	}
	return &ShuffleResult{DeckOut: deckOut, CommitAfter: commitAfter, Witness: w, Circuit: circuit}, nil
}

// AddKeysResult is the non-shuffling key-layer variant used by simplified
// protocols: every card gains s*G on its joint key, nothing moves.
type AddKeysResult struct {
	DeckOut []elgamal.Card
	Witness Witness
}

// BuildAddKeys adds the player's key layer to every card without
// permutation or re-masking.
func BuildAddKeys(deckIn []elgamal.Card, key KeyPair) (*AddKeysResult, error) {
	commitBefore, err := elgamal.DeckCommitment(deckIn)
	if err != nil {
		return nil, err
	}
	deckOut := make([]elgamal.Card, len(deckIn))
	wasIdentity := make([]int, len(deckIn))
	for i := range deckIn {
		if deckIn[i].Pk.IsIdentity() {
			wasIdentity[i] = 1
		}
		out, err := elgamal.AddPlayerToMask(deckIn[i], key.Secret)
		if err != nil {
			return nil, fmt.Errorf("prover: card %d: %w", i, err)
		}
		deckOut[i] = out
	}
	commitAfter, err := elgamal.DeckCommitment(deckOut)
	if err != nil {
		return nil, err
	}
	pubX, pubY := key.Public.Strings()
	w := Witness{
		Public: []string{commitBefore.String(), commitAfter.String(), pubX, pubY},
		Private: map[string][]string{
			"playerSecret": {key.Secret.String()},
			"pkWasIdentity": intStrings(wasIdentity),
			"deckIn":        deckStrings(deckIn),
			"deckOut":       deckStrings(deckOut),
		},
	}
	return &AddKeysResult{DeckOut: deckOut, Witness: w}, nil
}

// MaskResult is a prepared re-randomization of one card.
type MaskResult struct {
	CardOut elgamal.Card
	Witness Witness
}

// BuildMask re-randomizes a card under the current joint key with a fresh
// nonce, without touching the key set.
func BuildMask(card elgamal.Card) (*MaskResult, error) {
	rho, err := mpcrypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	out, err := elgamal.Mask(card, rho)
	if err != nil {
		return nil, err
	}
	inCommit := elgamal.CardCommitment(card)
	outCommit := elgamal.CardCommitment(out)
	w := Witness{
		Public: []string{inCommit.String(), outCommit.String()},
		Private: map[string][]string{
			"nonce":   {rho.String()},
			"cardIn":  cardStrings(card),
			"cardOut": cardStrings(out),
		},
	}
	return &MaskResult{CardOut: out, Witness: w}, nil
}

// UnmaskResult is a prepared partial unmask of one card.
type UnmaskResult struct {
	CardOut elgamal.Card
	Witness Witness
}

// BuildUnmask strips the player's layer from a card and assembles the
// unmask witness: the proof speaks for the transition between the two card
// commitments under the declared public key.
func BuildUnmask(card elgamal.Card, key KeyPair) (*UnmaskResult, error) {
	out, err := elgamal.PartialUnmask(card, key.Secret)
	if err != nil {
		return nil, err
	}
	inCommit := elgamal.CardCommitment(card)
	outCommit := elgamal.CardCommitment(out)
	pubX, pubY := key.Public.Strings()
	w := Witness{
		Public: []string{inCommit.String(), outCommit.String(), pubX, pubY},
		Private: map[string][]string{
			"playerSecret": {key.Secret.String()},
			"cardIn":       cardStrings(card),
			"cardOut":      cardStrings(out),
		},
	}
	return &UnmaskResult{CardOut: out, Witness: w}, nil
}

// ActionResult is a prepared betting action with its state-transition
// witness.
type ActionResult struct {
	CommitAfter fr.Element
	Witness     Witness
}

// BuildGameAction applies the action to a staged copy of the public game
// state and binds the before/after commitments.
func BuildGameAction(g *holdem.Game, seat int, action holdem.Action, amount uint64) (*ActionResult, error) {
	staged := g.Clone()
	if err := staged.Apply(seat, action, amount); err != nil {
		return nil, err
	}
	before := holdem.StateCommitment(g)
	after := holdem.StateCommitment(staged)
	w := Witness{
		Public: []string{
			before.String(),
			after.String(),
			fmt.Sprintf("%d", uint64(action)),
			fmt.Sprintf("%d", amount),
		},
		Private: map[string][]string{
			"currentPlayer": {fmt.Sprintf("%d", seat+1)},
		},
	}
	return &ActionResult{CommitAfter: after, Witness: w}, nil
}

// HandEvalResult is a prepared hand-rank claim.
type HandEvalResult struct {
	Eval    holdem.Eval
	Witness Witness
}

// BuildHandEval selects the best five of {hole, board}, walks the class
// tree for the sibling path, and assembles the hand_eval witness against
// the canonical hole and board commitments.
func BuildHandEval(
	table *handrank.Table,
	basicTree, flushTree *handrank.MerkleTree,
	holeValues [2]int,
	board []int,
	holeCommitment, boardCommitment fr.Element,
) (*HandEvalResult, error) {
	if len(board) != 5 {
		return nil, fmt.Errorf("prover: board has %d cards", len(board))
	}
	cards7 := append([]int{holeValues[0], holeValues[1]}, board...)
	eval, err := holdem.BestHand(table, cards7)
	if err != nil {
		return nil, err
	}

	tree := basicTree
	entries := table.Basic
	root := basicTree.Root()
	if eval.IsFlush {
		tree = flushTree
		entries = table.Flush
		root = flushTree.Root()
	}
	leafIdx := sort.Search(len(entries), func(i int) bool { return entries[i].Rank >= eval.Rank })
	if leafIdx == len(entries) || entries[leafIdx].Rank != eval.Rank {
		return nil, fmt.Errorf("prover: rank %d not in class list", eval.Rank)
	}
	proof, err := tree.Prove(leafIdx)
	if err != nil {
		return nil, err
	}

	// use flags over the 7 candidate cards, exactly five set.
	use := make([]int, 7)
	for _, chosen := range eval.CardIndices {
		for i, c := range cards7 {
			if c == chosen {
				use[i] = 1
			}
		}
	}

	var isFlush int
	if eval.IsFlush {
		isFlush = 1
	}
	w := Witness{
		Public: []string{
			root.String(),
			holeCommitment.String(),
			boardCommitment.String(),
			fmt.Sprintf("%d", eval.Rank),
		},
		Private: map[string][]string{
			"holeCards":  intStrings(holeValues[:]),
			"boardCards": intStrings(board),
			"use":        intStrings(use),
			"lookupKey":  {fmt.Sprintf("%d", eval.PrimeProduct)},
			"isFlush":    {fmt.Sprintf("%d", isFlush)},
			"leafIndex":  {fmt.Sprintf("%d", leafIdx)},
			"siblings":   frStrings(proof.Siblings[:]),
			"pathBits":   intStringsU8(proof.PathBits[:]),
		},
	}
	return &HandEvalResult{Eval: eval, Witness: w}, nil
}

func intStrings(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprintf("%d", x)
	}
	return out
}

func intStringsU8(xs []uint8) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprintf("%d", x)
	}
	return out
}

func scalarStrings(xs []mpcrypto.Scalar) []string {
	out := make([]string, len(xs))
	for i := range xs {
		out[i] = xs[i].String()
	}
	return out
}

func frStrings(xs []fr.Element) []string {
	out := make([]string, len(xs))
	for i := range xs {
		out[i] = xs[i].String()
	}
	return out
}

func cardStrings(c elgamal.Card) []string {
	ex, ey := c.Epk.Strings()
	mx, my := c.Msg.Strings()
	px, py := c.Pk.Strings()
	return []string{ex, ey, mx, my, px, py}
}

func deckStrings(deck []elgamal.Card) []string {
	out := make([]string, 0, len(deck)*6)
	for i := range deck {
		out = append(out, cardStrings(deck[i])...)
	}
	return out
}
