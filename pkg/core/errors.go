package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the importer, the SDK wrapper and the standards
// list extractor. Concrete errors wrap or match one of these via errors.Is.
var (
	ErrInvalidPath       = errors.New("invalid path")
	ErrSDK               = errors.New("vendor sdk error")
	ErrSchema            = errors.New("schema error")
	ErrIO                = errors.New("i/o error")
	ErrInternalInvariant = errors.New("internal invariant violated")
)

// ValidationError represents an error found while constructing a scan or
// mutating a raw data file.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is reports validation failures as internal invariant violations.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInternalInvariant
}
