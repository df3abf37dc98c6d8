package mpcrypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Scalar is an integer modulo the BabyJubJub prime subgroup order L.
type Scalar struct {
	v big.Int
}

func (s Scalar) bigInt() *big.Int {
	return new(big.Int).Set(&s.v)
}

func reduce(v *big.Int) *big.Int {
	out := new(big.Int).Mod(v, SubgroupOrder())
	if out.Sign() < 0 {
		out.Add(out, SubgroupOrder())
	}
	return out
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromUint64(x uint64) Scalar {
	var s Scalar
	s.v.SetUint64(x)
	return s
}

func ScalarFromBig(v *big.Int) Scalar {
	var s Scalar
	s.v.Set(reduce(v))
	return s
}

// ScalarFromString decodes a decimal scalar string and reduces mod L.
func ScalarFromString(str string) (Scalar, error) {
	v, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return Scalar{}, fmt.Errorf("scalar: invalid decimal %q", str)
	}
	return ScalarFromBig(v), nil
}

// RandomScalar draws a uniform scalar in [0, L) from crypto/rand.
func RandomScalar() (Scalar, error) {
	v, err := rand.Int(rand.Reader, SubgroupOrder())
	if err != nil {
		return Scalar{}, fmt.Errorf("scalar: rng: %w", err)
	}
	return ScalarFromBig(v), nil
}

func (s Scalar) IsZero() bool {
	return s.v.Sign() == 0
}

func (s Scalar) String() string {
	return s.v.String()
}

func ScalarAdd(a, b Scalar) Scalar {
	return ScalarFromBig(new(big.Int).Add(&a.v, &b.v))
}

func ScalarSub(a, b Scalar) Scalar {
	return ScalarFromBig(new(big.Int).Sub(&a.v, &b.v))
}

func ScalarMul(a, b Scalar) Scalar {
	return ScalarFromBig(new(big.Int).Mul(&a.v, &b.v))
}

func ScalarNeg(a Scalar) Scalar {
	return ScalarFromBig(new(big.Int).Neg(&a.v))
}

func ScalarInv(a Scalar) (Scalar, error) {
	if a.IsZero() {
		return Scalar{}, fmt.Errorf("scalar: inverse of zero")
	}
	inv := new(big.Int).ModInverse(&a.v, SubgroupOrder())
	if inv == nil {
		return Scalar{}, fmt.Errorf("scalar: not invertible")
	}
	return ScalarFromBig(inv), nil
}
