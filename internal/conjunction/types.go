package conjunction

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sentinel/orbitgo/internal/orbit"
)

// Conjunction is one detected close-approach event between a satellite and a
// debris object. Created fresh on each detection pass, never mutated.
// JSON field names are the stable wire contract shared with the frontend.
type Conjunction struct {
	// ID is derived from the two object ids plus the evaluation time. It is
	// a stable key for a specific detection instance, not globally unique
	// across repeated calls.
	ID string `json:"id"`
	// ObjectA is always the satellite name, ObjectB always the debris name.
	ObjectA string `json:"objectA"`
	ObjectB string `json:"objectB"`
	// TimeToImpact is seconds until impact. It is drawn at random in
	// [0, 72h] rather than derived from approach geometry, a known
	// simplification of the scoring model.
	TimeToImpact float64   `json:"timeToImpact"`
	Probability  float64   `json:"probability"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	MissDistance float64   `json:"missDistance"` // km at evaluation time
}

// ObjectPosition is one object's propagated position at a frame time.
type ObjectPosition struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     orbit.ObjectType `json:"type"`
	Position r3.Vec           `json:"position"` // km, native frame
}

// Frame holds everything the service knows about one instant of the
// simulation: all object positions plus the screened conjunction set.
// This is the unit the cache stores and the stream sends.
type Frame struct {
	SimTime      float64          `json:"t"` // seconds past catalog epoch
	Positions    []ObjectPosition `json:"positions"`
	Conjunctions []Conjunction    `json:"conjunctions"`
}
