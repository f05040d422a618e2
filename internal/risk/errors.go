package risk

import "fmt"

// RiskInputError reports a numeric argument outside the model's domain.
type RiskInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *RiskInputError) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Field, e.Value, e.Reason)
}
