package massmap

import (
	"fmt"
	"strings"
)

// Extrapolation selects what happens to target masses outside the native
// mass grid.
type Extrapolation int

const (
	// Reject fails the mapping before any interpolation is done.
	Reject Extrapolation = iota
	// Clamp returns the value at the nearest end of the grid.
	Clamp
	// Linear extends the first or last grid segment.
	Linear
)

func (e Extrapolation) String() string {
	switch e {
	case Reject:
		return "reject"
	case Clamp:
		return "clamp"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Extrapolation(%d)", int(e))
	}
}

// ParseExtrapolation converts a policy name; the empty string means Reject.
func ParseExtrapolation(s string) (Extrapolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return Reject, nil
	case "clamp":
		return Clamp, nil
	case "linear":
		return Linear, nil
	default:
		return Reject, fmt.Errorf("unknown extrapolation policy: %s (want reject, clamp or linear)", s)
	}
}
