// Package curve implements the secp256k1 group used for Bitcoin keys.
//
// Point arithmetic is done in affine coordinates over math/big and is NOT
// constant time; it serves encoding, validation and test vectors. Public key
// derivation from real private keys goes through CreatePublicKey, which uses
// the constant-time implementation in go-sdk's primitives/ec.
package curve

import "math/big"

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("curve: bad constant " + s)
	}
	return v
}

// secp256k1 domain parameters (SEC 2, section 2.4.1).
var (
	// P is the field prime 2^256 - 2^32 - 977.
	P = mustHex("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f")

	// N is the order of the base point.
	N = mustHex("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")

	// B is the curve constant in y^2 = x^3 + 7.
	B = big.NewInt(7)

	gx = mustHex("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	gy = mustHex("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8")

	// sqrtExp is (P+1)/4; P ≡ 3 mod 4 so a^sqrtExp is a square root of a when one exists.
	sqrtExp = new(big.Int).Rsh(new(big.Int).Add(P, big.NewInt(1)), 2)
)

// Point is an affine curve point. The zero value is the point at infinity.
type Point struct {
	X, Y *big.Int
}

// G returns the base point.
func G() Point {
	return Point{X: new(big.Int).Set(gx), Y: new(big.Int).Set(gy)}
}

// Infinity returns the identity element.
func Infinity() Point {
	return Point{}
}

// IsInfinity reports whether p is the identity element.
func (p Point) IsInfinity() bool {
	return p.X == nil || p.Y == nil
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// curveRHS returns x^3 + 7 mod P.
func curveRHS(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Mul(r, x)
	r.Add(r, B)
	return r.Mod(r, P)
}

// IsOnCurve reports whether p satisfies y^2 = x^3 + 7 with both coordinates in [0, P).
// The point at infinity is not considered on the curve.
func IsOnCurve(p Point) bool {
	if p.IsInfinity() {
		return false
	}
	if p.X.Sign() < 0 || p.X.Cmp(P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(P) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(p.Y, p.Y)
	lhs.Mod(lhs, P)
	return lhs.Cmp(curveRHS(p.X)) == 0
}

// Negate returns -p.
func Negate(p Point) Point {
	if p.IsInfinity() {
		return Infinity()
	}
	y := new(big.Int).Neg(p.Y)
	return Point{X: new(big.Int).Set(p.X), Y: y.Mod(y, P)}
}

// Add returns p + q.
func Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}

	if p.X.Cmp(q.X) == 0 {
		if p.Y.Cmp(q.Y) == 0 {
			return Double(p)
		}
		// q = -p
		return Infinity()
	}

	// lambda = (y2 - y1) / (x2 - x1)
	num := new(big.Int).Sub(q.Y, p.Y)
	den := new(big.Int).Sub(q.X, p.X)
	den.Mod(den, P)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)

	return chord(lambda, p, q.X)
}

// Double returns 2p.
func Double(p Point) Point {
	if p.IsInfinity() || p.Y.Sign() == 0 {
		return Infinity()
	}

	// lambda = 3x^2 / 2y
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	den := new(big.Int).Lsh(p.Y, 1)
	den.Mod(den, P)
	den.ModInverse(den, P)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, P)

	return chord(lambda, p, p.X)
}

// chord finishes an addition given the slope through p and a second point with x coordinate x2.
func chord(lambda *big.Int, p Point, x2 *big.Int) Point {
	// x3 = lambda^2 - x1 - x2
	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, p.X)
	x3.Sub(x3, x2)
	x3.Mod(x3, P)

	// y3 = lambda(x1 - x3) - y1
	y3 := new(big.Int).Sub(p.X, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, p.Y)
	y3.Mod(y3, P)

	return Point{X: x3, Y: y3}
}

// ScalarMult returns k*p using left-to-right double-and-add.
// Variable time: do not feed secret scalars.
func ScalarMult(k *big.Int, p Point) Point {
	e := new(big.Int).Mod(k, N)
	if e.Sign() == 0 || p.IsInfinity() {
		return Infinity()
	}

	r := Infinity()
	for i := e.BitLen() - 1; i >= 0; i-- {
		r = Double(r)
		if e.Bit(i) == 1 {
			r = Add(r, p)
		}
	}
	return r
}

// ScalarBaseMult returns k*G. Variable time, see ScalarMult.
func ScalarBaseMult(k *big.Int) Point {
	return ScalarMult(k, G())
}

// sqrtModP returns a square root of a mod P, or false when a is a non-residue.
func sqrtModP(a *big.Int) (*big.Int, bool) {
	y := new(big.Int).Exp(a, sqrtExp, P)
	check := new(big.Int).Mul(y, y)
	check.Mod(check, P)
	if check.Cmp(new(big.Int).Mod(a, P)) != 0 {
		return nil, false
	}
	return y, true
}
