package orbit

import "fmt"

// InvalidElementError reports an orbital element rejected at construction time.
type InvalidElementError struct {
	Field string
	Value float64
	Rule  string
}

func (e *InvalidElementError) Error() string {
	return fmt.Sprintf("invalid orbital element %s=%g: %s", e.Field, e.Value, e.Rule)
}

// NumericDomainError reports an element combination that drives the elliptical
// propagation formulas outside their numeric domain (e.g. e >= 1).
type NumericDomainError struct {
	Reason string
}

func (e *NumericDomainError) Error() string {
	return "numeric domain error: " + e.Reason
}
