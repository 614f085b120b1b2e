package orbit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const pi = math.Pi

// keplerIterations is the fixed iteration count for the Kepler solver.
// The fixed-point update E = M + e·sin(E) converges acceptably within five
// rounds for e below roughly 0.2. The count and update rule are part of the
// output contract with the frontend; do not swap in Newton-Raphson.
const keplerIterations = 5

// solveKepler returns the eccentric anomaly for mean anomaly m and
// eccentricity e, using fixed-point iteration seeded at E = m.
func solveKepler(m, e float64) float64 {
	ecc := m
	for i := 0; i < keplerIterations; i++ {
		ecc = m + e*math.Sin(ecc)
	}
	return ecc
}

// Position propagates the orbit to t seconds past epoch and returns the
// position in the system's native frame, in km. Pure and total for finite
// inputs with e in [0,1); for e >= 1 the true-anomaly formula leaves its
// domain and components come back NaN. Callers that need a checked variant
// use PositionAt. No modulo reduction of t is required; the trig functions
// absorb the wrap-around, so t may be negative or arbitrarily large.
func Position(el Elements, t float64) r3.Vec {
	m := el.M0 + el.N*t
	ecc := solveKepler(m, el.E)

	// True anomaly and radius from the eccentric anomaly.
	v := 2 * math.Atan2(
		math.Sqrt(1+el.E)*math.Sin(ecc/2),
		math.Sqrt(1-el.E)*math.Cos(ecc/2),
	)
	r := el.A * (1 - el.E*math.Cos(ecc))

	// Simplified rotation into the native frame. Matches the frontend's
	// rendering transform, which is why it is not the standard
	// perifocal-to-ECI matrix.
	sinO, cosO := math.Sincos(el.O)
	sinWV, cosWV := math.Sincos(el.W + v)
	sinI, cosI := math.Sincos(el.I)

	return r3.Vec{
		X: r * (cosO*cosWV - sinO*sinWV*cosI),
		Y: r * (sinO*cosWV + cosO*sinWV*cosI),
		Z: r * (sinI * sinWV),
	}
}

// PositionAt is the checked form of Position. It rejects e >= 1 up front and
// verifies the output is finite, mirroring how propagation failures are
// detected rather than trusted downstream.
func (el Elements) PositionAt(t float64) (r3.Vec, error) {
	if el.E >= 1 {
		return r3.Vec{}, &NumericDomainError{Reason: "eccentricity >= 1 is outside the elliptical-orbit domain"}
	}
	p := Position(el, t)
	if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
		return r3.Vec{}, &NumericDomainError{Reason: "propagation produced a non-finite position"}
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
