package aggregate

import (
	"fmt"

	"github.com/xtxerr/tdigest/internal/errors"
)

// MaxSeriesLength is the longest accepted series name in bytes.
const MaxSeriesLength = 255

// ValidateSeries checks a series name. Any printable text is accepted;
// path separators are mapped when the series is exported to a file.
func ValidateSeries(name string) error {
	if name == "" {
		return fmt.Errorf("series: %w", errors.ErrMissingField)
	}
	if len(name) > MaxSeriesLength {
		return fmt.Errorf("series too long: maximum %d bytes allowed: %w", MaxSeriesLength, errors.ErrInvalidInput)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("series cannot contain control characters at position %d: %w", i, errors.ErrInvalidInput)
		}
	}
	return nil
}
