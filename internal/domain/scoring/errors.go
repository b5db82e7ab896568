package scoring

import (
	"errors"
	"strings"
)

// ErrIncompleteInput is returned when a BodyScoreInput is not ready for
// calculation. It is always wrapped by an *IncompleteInputError.
var ErrIncompleteInput = errors.New("incomplete body score input")

// IncompleteInputError names the fields that kept an input from being scored.
type IncompleteInputError struct {
	Fields []string
}

func (e *IncompleteInputError) Error() string {
	return ErrIncompleteInput.Error() + ": missing " + strings.Join(e.Fields, ", ")
}

// Unwrap lets errors.Is match ErrIncompleteInput.
func (e *IncompleteInputError) Unwrap() error { return ErrIncompleteInput }
