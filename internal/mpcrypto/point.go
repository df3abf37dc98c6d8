// Package mpcrypto implements the curve and hash core of the mental-poker
// protocol: BabyJubJub point arithmetic over the BN254 scalar field, scalars
// reduced modulo the prime subgroup order, and the Poseidon commitment hash
// shared with the proving circuits.
package mpcrypto

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

// Point is an affine BabyJubJub point. The twisted Edwards identity (0, 1) is
// a valid affine point, so Infinity marks the identity explicitly: a card
// whose epk or pk has never been set carries Infinity=true and its
// coordinates are ignored.
type Point struct {
	X, Y     fr.Element
	Infinity bool
}

var curveParams = twistededwards.GetEdwardsCurve()

// Identity returns the group identity.
func Identity() Point {
	return Point{Infinity: true}
}

// Generator returns the prime-subgroup base point.
func Generator() Point {
	return Point{X: curveParams.Base.X, Y: curveParams.Base.Y}
}

// SubgroupOrder returns the order L of the prime subgroup.
func SubgroupOrder() *big.Int {
	return new(big.Int).Set(&curveParams.Order)
}

func (p Point) affine() twistededwards.PointAffine {
	if p.Infinity {
		var id twistededwards.PointAffine
		id.X.SetZero()
		id.Y.SetOne()
		return id
	}
	return twistededwards.PointAffine{X: p.X, Y: p.Y}
}

// fromAffine canonicalizes (0, 1) back to the explicit identity so that
// exactly canceling points never leave a degenerate non-identity value.
func fromAffine(a twistededwards.PointAffine) Point {
	if a.X.IsZero() && a.Y.IsOne() {
		return Identity()
	}
	return Point{X: a.X, Y: a.Y}
}

// IsIdentity reports whether p is the group identity, under either encoding.
func (p Point) IsIdentity() bool {
	return p.Infinity || (p.X.IsZero() && p.Y.IsOne())
}

// IsOnCurve reports whether p satisfies the curve equation. The identity is
// on the curve.
func (p Point) IsOnCurve() bool {
	if p.Infinity {
		return true
	}
	a := p.affine()
	return a.IsOnCurve()
}

// PointAdd returns p + q.
func PointAdd(p, q Point) Point {
	if p.Infinity {
		return fromAffine(q.affine())
	}
	if q.Infinity {
		return fromAffine(p.affine())
	}
	pa, qa := p.affine(), q.affine()
	var out twistededwards.PointAffine
	out.Add(&pa, &qa)
	return fromAffine(out)
}

// PointSub returns p - q.
func PointSub(p, q Point) Point {
	return PointAdd(p, PointNeg(q))
}

// PointNeg returns -p. On twisted Edwards, -(x, y) = (-x, y).
func PointNeg(p Point) Point {
	if p.IsIdentity() {
		return Identity()
	}
	var out twistededwards.PointAffine
	a := p.affine()
	out.Neg(&a)
	return fromAffine(out)
}

// MulPoint returns k*p.
//
// The underlying library uses a windowed double-and-add; this routine is not
// constant time in k. Callers multiplying long-term secrets or shuffle nonces
// do so on their own machine only (the scalar never crosses the wire), which
// is the trust boundary this protocol assumes.
func MulPoint(p Point, k Scalar) Point {
	if p.Infinity || k.IsZero() {
		return Identity()
	}
	a := p.affine()
	var out twistededwards.PointAffine
	out.ScalarMultiplication(&a, k.bigInt())
	return fromAffine(out)
}

// MulBase returns k*G.
func MulBase(k Scalar) Point {
	return MulPoint(Generator(), k)
}

// PointEq reports whether p and q are the same group element.
func PointEq(p, q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	return p.X.Equal(&q.X) && p.Y.Equal(&q.Y)
}

// CheckPoint validates a declared point: it must either be the identity or
// satisfy the curve equation.
func CheckPoint(p Point) error {
	if !p.IsOnCurve() {
		return fmt.Errorf("point (%s, %s) is not on the curve", p.X.String(), p.Y.String())
	}
	return nil
}

// Coords returns the affine coordinates used in commitments. By convention
// the identity contributes (0, 0), not (0, 1); the circuits hash the same
// pre-image.
func (p Point) Coords() (x, y fr.Element) {
	if p.IsIdentity() {
		return x, y // both zero
	}
	return p.X, p.Y
}

// PointFromStrings decodes a point from a pair of decimal coordinate strings.
// "0","0" decodes to the identity, matching the commitment convention.
func PointFromStrings(xs, ys string) (Point, error) {
	var x, y fr.Element
	if _, err := x.SetString(xs); err != nil {
		return Point{}, fmt.Errorf("point x %q: %w", xs, err)
	}
	if _, err := y.SetString(ys); err != nil {
		return Point{}, fmt.Errorf("point y %q: %w", ys, err)
	}
	if x.IsZero() && (y.IsZero() || y.IsOne()) {
		return Identity(), nil
	}
	p := Point{X: x, Y: y}
	if !p.IsOnCurve() {
		return Point{}, fmt.Errorf("point (%s, %s) is not on the curve", xs, ys)
	}
	return p, nil
}

// Strings encodes the point as the wire's pair of decimal strings.
func (p Point) Strings() (xs, ys string) {
	x, y := p.Coords()
	return x.String(), y.String()
}
