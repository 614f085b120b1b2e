// Package orbit holds the Keplerian data model and the two-body propagator.
//
// Angles are radians, distances are kilometers, mean motion is rad/s. The
// output frame is this system's native simplified rotation (not textbook
// ECI); downstream consumers (cache, stream, web frontend) depend on it.
package orbit

// EarthRadius is the mean Earth radius in kilometers.
const EarthRadius = 6371.0

// Elements is a set of classical Keplerian orbital elements plus mean motion.
// Immutable once constructed. JSON field names are a stable wire contract
// shared with the frontend.
type Elements struct {
	A  float64 `json:"a"`  // semi-major axis, km
	E  float64 `json:"e"`  // eccentricity, [0,1) for bound orbits
	I  float64 `json:"i"`  // inclination, rad
	W  float64 `json:"w"`  // argument of periapsis, rad
	O  float64 `json:"O"`  // longitude of ascending node, rad
	M0 float64 `json:"M0"` // mean anomaly at epoch, rad
	N  float64 `json:"n"`  // mean motion, rad/s
}

// NewElements validates and returns a set of orbital elements.
// Rejects a <= 0, n <= 0 and e outside [0,1), naming the offending field.
func NewElements(a, e, i, w, o, m0, n float64) (Elements, error) {
	if a <= 0 {
		return Elements{}, &InvalidElementError{Field: "a", Value: a, Rule: "semi-major axis must be > 0"}
	}
	if n <= 0 {
		return Elements{}, &InvalidElementError{Field: "n", Value: n, Rule: "mean motion must be > 0"}
	}
	if e < 0 || e >= 1 {
		return Elements{}, &InvalidElementError{Field: "e", Value: e, Rule: "eccentricity must be in [0,1) for a bound elliptical orbit"}
	}
	return Elements{A: a, E: e, I: i, W: w, O: o, M0: m0, N: n}, nil
}

// Period returns the orbital period in seconds (2π/n).
func (el Elements) Period() float64 {
	return 2 * pi / el.N
}

// ObjectType classifies a tracked object.
type ObjectType string

const (
	TypeSatellite ObjectType = "SATELLITE"
	TypeDebris    ObjectType = "DEBRIS"
)

// Object is a tracked orbital object: identity, classification and orbit.
// Create-once, read-many for the lifetime of a simulation session.
type Object struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     ObjectType `json:"type"`
	Color    string     `json:"color"` // display metadata, ignored by the core
	Elements Elements   `json:"elements"`
}
