package conjunction

// RiskLevel is the discrete risk classification of a conjunction.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Classify maps a collision probability to a risk level. Pure and
// deterministic; boundaries are strict (0.7 is MEDIUM, 0.3 is LOW).
func Classify(p float64) RiskLevel {
	switch {
	case p > 0.7:
		return RiskHigh
	case p > 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}
