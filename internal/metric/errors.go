package metric

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNesting means a metric cannot be split across query levels.
// Callers recover by planning the query flat.
var ErrUnsupportedNesting = errors.New("metric does not support nesting")

// NestingError names the metric that could not nest.
type NestingError struct {
	Metric     string
	Expression string
}

func (e *NestingError) Error() string {
	return fmt.Sprintf("%v: %s = %s", ErrUnsupportedNesting, e.Metric, e.Expression)
}

// Unwrap makes errors.Is(err, ErrUnsupportedNesting) hold.
func (e *NestingError) Unwrap() error {
	return ErrUnsupportedNesting
}
