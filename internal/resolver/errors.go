package resolver

import (
	"errors"
	"fmt"
)

// ErrUnresolvablePreset is returned when a preset reference cannot be found or loaded.
var ErrUnresolvablePreset = errors.New("unresolvable preset")

// UnresolvablePresetError carries the preset reference that failed and the
// loader's cause.
type UnresolvablePresetError struct {
	Ref string
	Err error
}

func (e *UnresolvablePresetError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v %q", ErrUnresolvablePreset, e.Ref)
	}
	return fmt.Sprintf("%v %q: %v", ErrUnresolvablePreset, e.Ref, e.Err)
}

func (e *UnresolvablePresetError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvablePreset}
	}
	return []error{ErrUnresolvablePreset, e.Err}
}
