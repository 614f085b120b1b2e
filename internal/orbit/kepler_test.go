package orbit

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// leoElements returns a low-eccentricity LEO-like orbit used across tests.
func leoElements(t *testing.T) Elements {
	t.Helper()
	el, err := NewElements(EarthRadius+500, 0.01, 0.9, 1.2, 2.1, 0.3, 0.0011)
	if err != nil {
		t.Fatalf("NewElements failed: %v", err)
	}
	return el
}

// TestCircularOrbitRadius verifies that a circular orbit (e=0) keeps a
// position magnitude equal to the semi-major axis for every time.
func TestCircularOrbitRadius(t *testing.T) {
	el, err := NewElements(6871, 0, 0.5, 0.7, 1.1, 0.2, 0.0011)
	if err != nil {
		t.Fatalf("NewElements failed: %v", err)
	}

	for _, tt := range []float64{-7200, -1, 0, 1, 60, 3600, 86400, 1e7} {
		p := Position(el, tt)
		mag := r3.Norm(p)
		if math.Abs(mag-el.A) > 1e-6 {
			t.Errorf("t=%g: |position| = %.9f km, want %.9f km", tt, mag, el.A)
		}
	}
}

// TestPeriodicity verifies position(t) == position(t + 2π/n) within tolerance.
func TestPeriodicity(t *testing.T) {
	el := leoElements(t)
	period := el.Period()

	for _, tt := range []float64{0, 17, 1234.5, -300} {
		a := Position(el, tt)
		b := Position(el, tt+period)
		if d := r3.Norm(r3.Sub(a, b)); d > 1e-6 {
			t.Errorf("t=%g: position drifted %.3g km over one period", tt, d)
		}
	}
}

// TestPositionNoPrewrap verifies propagation does not require wrapping t:
// a huge t must land on the same point as its period-reduced equivalent.
func TestPositionNoPrewrap(t *testing.T) {
	el := leoElements(t)
	period := el.Period()

	big := 1000*period + 42.0
	a := Position(el, big)
	b := Position(el, 42.0)
	// Tolerance is loose: M0 + n*t loses precision at large t.
	if d := r3.Norm(r3.Sub(a, b)); d > 1e-3 {
		t.Errorf("position at t=%g differs from t=42 by %.3g km", big, d)
	}
}

// TestSolveKeplerLowEccentricity checks the fixed-point solver against
// Kepler's equation M = E - e·sin(E) for moderate eccentricities.
func TestSolveKeplerLowEccentricity(t *testing.T) {
	for _, e := range []float64{0, 0.001, 0.01, 0.1, 0.2} {
		for _, m := range []float64{0, 0.5, 1.5, 3.0, 6.0} {
			ecc := solveKepler(m, e)
			residual := math.Abs(m - (ecc - e*math.Sin(ecc)))
			if residual > 5e-4 {
				t.Errorf("e=%g M=%g: residual %.3g after fixed iterations", e, m, residual)
			}
		}
	}
}

// TestSolveKeplerCircular verifies E == M exactly when e == 0.
func TestSolveKeplerCircular(t *testing.T) {
	for _, m := range []float64{-3, 0, 0.25, 2, 100} {
		if ecc := solveKepler(m, 0); ecc != m {
			t.Errorf("e=0 M=%g: E = %g, want %g", m, ecc, m)
		}
	}
}

// TestPositionAtDomainError verifies the checked propagation rejects e >= 1.
func TestPositionAtDomainError(t *testing.T) {
	el := Elements{A: 7000, E: 1.0, N: 0.001}
	_, err := el.PositionAt(0)
	if err == nil {
		t.Fatal("expected error for e=1, got nil")
	}
	var domErr *NumericDomainError
	if !errors.As(err, &domErr) {
		t.Errorf("error type = %T, want *NumericDomainError", err)
	}

	el.E = 1.5
	if _, err := el.PositionAt(10); err == nil {
		t.Error("expected error for e=1.5, got nil")
	}
}

// TestPositionAtValid verifies the checked propagation matches the raw one.
func TestPositionAtValid(t *testing.T) {
	el := leoElements(t)
	got, err := el.PositionAt(120)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	want := Position(el, 120)
	if got != want {
		t.Errorf("PositionAt = %v, want %v", got, want)
	}
}

// TestPositionAltitudeReasonable sanity-checks that a LEO orbit stays near
// its semi-major axis (within the e-bounded annulus a(1-e)..a(1+e)).
func TestPositionAltitudeReasonable(t *testing.T) {
	el := leoElements(t)
	lo := el.A * (1 - el.E)
	hi := el.A * (1 + el.E)

	for tt := 0.0; tt < el.Period(); tt += 60 {
		mag := r3.Norm(Position(el, tt))
		// Small slack for the approximate Kepler solve.
		if mag < lo-1 || mag > hi+1 {
			t.Errorf("t=%g: |position| = %.3f km outside [%.3f, %.3f]", tt, mag, lo, hi)
		}
	}
}
