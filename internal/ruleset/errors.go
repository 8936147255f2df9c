package ruleset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSeverity is returned when a rule severity is not off, warn or error.
	ErrInvalidSeverity = errors.New("severity must be one of off, warn, error")
	// ErrInvalidDocument is returned when a configuration document is structurally malformed.
	ErrInvalidDocument = errors.New("invalid configuration document")
)

// InvalidSeverityError reports the rule carrying an unrecognised severity.
type InvalidSeverityError struct {
	Rule  string
	Value string
}

func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("rule %q: invalid severity %q: %v", e.Rule, e.Value, ErrInvalidSeverity)
}

func (e *InvalidSeverityError) Unwrap() error {
	return ErrInvalidSeverity
}
