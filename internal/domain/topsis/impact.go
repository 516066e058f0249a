package topsis

import (
	"fmt"
	"strings"
)

// Impact is the optimisation direction of a criterion.
type Impact int

// The zero Impact is deliberately invalid so an unset direction is caught by validation.
const (
	Benefit Impact = iota + 1 // higher raw value preferred
	Cost                      // lower raw value preferred
)

// Valid reports whether i is Benefit or Cost.
func (i Impact) Valid() bool { return i == Benefit || i == Cost }

func (i Impact) String() string {
	switch i {
	case Benefit:
		return "+"
	case Cost:
		return "-"
	default:
		return fmt.Sprintf("Impact(%d)", int(i))
	}
}

// ParseImpact accepts "+", "benefit", "max" and "-", "cost", "min" in any case.
func ParseImpact(s string) (Impact, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+", "benefit", "max":
		return Benefit, nil
	case "-", "cost", "min":
		return Cost, nil
	default:
		return 0, newValidationError(ErrInvalidImpact, -1, "unknown impact %q", s)
	}
}

// MarshalText encodes the impact as "+" or "-".
func (i Impact) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, newValidationError(ErrInvalidImpact, -1, "cannot encode %s", i)
	}
	return []byte(i.String()), nil
}

// UnmarshalText decodes any form accepted by ParseImpact.
func (i *Impact) UnmarshalText(text []byte) error {
	v, err := ParseImpact(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseImpacts parses every element of ss, reporting the first bad position.
func ParseImpacts(ss []string) ([]Impact, error) {
	out := make([]Impact, len(ss))
	for k, s := range ss {
		v, err := ParseImpact(s)
		if err != nil {
			return nil, newValidationError(ErrInvalidImpact, k, "unknown impact %q", s)
		}
		out[k] = v
	}
	return out, nil
}
