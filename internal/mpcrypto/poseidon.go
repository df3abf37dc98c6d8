package mpcrypto

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Poseidon over the BN254 scalar field, matching the proving circuits.
//
// The hash absorbs n field elements (1 <= n <= 16) in a single permutation of
// width t = n+1 with capacity 1. Parameters (round constants, MDS matrix) are
// derived per width, and the capacity element is initialized to n, so
// H([x]) != H([x, 0]): the input length is bound into the state rather than
// padded away. Any change here desynchronizes the server from the circuits
// and rejects every proof; SelfCheck is asserted at process start.

const (
	poseidonMaxArity   = 16
	poseidonFullRounds = 8
)

// Partial round counts per state width t = 2..17.
var poseidonPartialRounds = [poseidonMaxArity]int{
	56, 57, 56, 60, 60, 63, 64, 63, 60, 66, 60, 65, 70, 60, 64, 68,
}

type poseidonParams struct {
	t              int
	partialRounds  int
	roundConstants []fr.Element
	mds            [][]fr.Element
}

var (
	poseidonMu    sync.Mutex
	poseidonCache = map[int]*poseidonParams{}
)

func poseidonParamsForWidth(t int) *poseidonParams {
	poseidonMu.Lock()
	defer poseidonMu.Unlock()
	if p, ok := poseidonCache[t]; ok {
		return p
	}
	p := derivePoseidonParams(t)
	poseidonCache[t] = p
	return p
}

// derivePoseidonParams produces the width-t constants deterministically. The
// derivation (seeded power map for round constants, Cauchy matrix for the
// MDS) mirrors the circuit-side table generator; both sides must agree
// byte-for-byte.
func derivePoseidonParams(t int) *poseidonParams {
	partial := poseidonPartialRounds[t-2]
	total := poseidonFullRounds + partial

	seed := new(big.Int).SetBytes([]byte("PoseidonBN254"))
	seed.Add(seed, new(big.Int).Lsh(big.NewInt(int64(t)), 128))

	modulus := fr.Modulus()
	rcs := make([]fr.Element, t*total)
	for i := range rcs {
		v := new(big.Int).Add(seed, big.NewInt(int64(i)))
		v.Exp(v, big.NewInt(5), modulus)
		rcs[i].SetBigInt(v)
	}

	// Cauchy MDS: M[i][j] = 1 / (x_i + y_j), x_i = i, y_j = t + j.
	mds := make([][]fr.Element, t)
	for i := 0; i < t; i++ {
		mds[i] = make([]fr.Element, t)
		for j := 0; j < t; j++ {
			var sum fr.Element
			sum.SetUint64(uint64(i + t + j))
			mds[i][j].Inverse(&sum)
		}
	}

	return &poseidonParams{t: t, partialRounds: partial, roundConstants: rcs, mds: mds}
}

// sbox computes x^5 in place.
func sbox(x *fr.Element) {
	var x2, x4 fr.Element
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(&x4, x)
}

func mdsMul(p *poseidonParams, state []fr.Element) []fr.Element {
	out := make([]fr.Element, p.t)
	for i := 0; i < p.t; i++ {
		var acc, tmp fr.Element
		for j := 0; j < p.t; j++ {
			tmp.Mul(&p.mds[i][j], &state[j])
			acc.Add(&acc, &tmp)
		}
		out[i] = acc
	}
	return out
}

func poseidonPermutation(p *poseidonParams, state []fr.Element) []fr.Element {
	half := poseidonFullRounds / 2
	rc := 0

	for r := 0; r < half; r++ {
		for i := 0; i < p.t; i++ {
			state[i].Add(&state[i], &p.roundConstants[rc])
			rc++
		}
		for i := 0; i < p.t; i++ {
			sbox(&state[i])
		}
		state = mdsMul(p, state)
	}
	for r := 0; r < p.partialRounds; r++ {
		for i := 0; i < p.t; i++ {
			state[i].Add(&state[i], &p.roundConstants[rc])
			rc++
		}
		sbox(&state[0])
		state = mdsMul(p, state)
	}
	for r := 0; r < half; r++ {
		for i := 0; i < p.t; i++ {
			state[i].Add(&state[i], &p.roundConstants[rc])
			rc++
		}
		for i := 0; i < p.t; i++ {
			sbox(&state[i])
		}
		state = mdsMul(p, state)
	}
	return state
}

// Hash absorbs 1..16 field elements and squeezes one.
func Hash(inputs ...fr.Element) (fr.Element, error) {
	n := len(inputs)
	if n == 0 || n > poseidonMaxArity {
		return fr.Element{}, fmt.Errorf("poseidon: arity %d out of range [1, %d]", n, poseidonMaxArity)
	}
	p := poseidonParamsForWidth(n + 1)
	state := make([]fr.Element, n+1)
	state[0].SetUint64(uint64(n)) // length generator
	copy(state[1:], inputs)
	state = poseidonPermutation(p, state)
	return state[0], nil
}

// Hash2 is the two-input compression used at every internal Merkle node.
func Hash2(a, b fr.Element) fr.Element {
	h, err := Hash(a, b)
	if err != nil {
		// Arity 2 is always in range.
		panic(err)
	}
	return h
}

// MustHash is Hash for callers with a statically valid arity.
func MustHash(inputs ...fr.Element) fr.Element {
	h, err := Hash(inputs...)
	if err != nil {
		panic(err)
	}
	return h
}

// SelfCheck asserts the hash conventions at process start: determinism
// across fresh parameter derivations, arity separation, and the identity
// coordinate convention.
func SelfCheck() error {
	var one, two fr.Element
	one.SetOne()
	two.SetUint64(2)

	a := MustHash(one, two)
	poseidonMu.Lock()
	poseidonCache = map[int]*poseidonParams{}
	poseidonMu.Unlock()
	b := MustHash(one, two)
	if !a.Equal(&b) {
		return fmt.Errorf("poseidon: parameter derivation is not deterministic")
	}

	var zero fr.Element
	padded := MustHash(one, two, zero)
	if a.Equal(&padded) {
		return fmt.Errorf("poseidon: arity 2 and padded arity 3 collide")
	}

	x, y := Identity().Coords()
	if !x.IsZero() || !y.IsZero() {
		return fmt.Errorf("identity must commit as (0, 0)")
	}
	return nil
}
