package propagation

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidWindow is returned for a negative duration or a non-positive step.
var ErrInvalidWindow = errors.New("invalid propagation window")

// PropagationError reports an element set the propagator could not turn into
// valid positions. No samples accompany it.
type PropagationError struct {
	CatalogID int
	At        time.Time // zero when the failure happened before propagation
	Reason    string
	Code      int // go-satellite error code, 0 when not applicable
	Err       error
}

func (e *PropagationError) Error() string {
	msg := fmt.Sprintf("propagation failed for catalog %d", e.CatalogID)
	if !e.At.IsZero() {
		msg += " at " + e.At.UTC().Format(time.RFC3339)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PropagationError) Unwrap() error {
	return e.Err
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + " km"
}
