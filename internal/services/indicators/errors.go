package indicators

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series is too short for the requested period.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports which indicator failed and how much history it needed.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need %d values, have %d", e.Indicator, e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

func insufficient(indicator string, need, have int) error {
	return &InsufficientDataError{Indicator: indicator, Need: need, Have: have}
}
