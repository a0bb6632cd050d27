package forecast

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidVariance marks a non-positive or non-finite variance. It is a configuration error.
	ErrInvalidVariance = errors.New("invalid variance")
	// ErrInvalidCurveShape marks a curve with fewer than 2 points or non-increasing tenors.
	ErrInvalidCurveShape = errors.New("invalid curve shape")
	// ErrInvalidConfig marks any other unusable engine parameter.
	ErrInvalidConfig = errors.New("invalid engine config")
)

func checkVariance(name string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s = %v", ErrInvalidVariance, name, v)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
