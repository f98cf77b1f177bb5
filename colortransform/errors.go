package colortransform

import "fmt"

// NotSupportedError marks a deliberately-unimplemented feature: a valid
// request the engine declines (spec.md §7).
type NotSupportedError struct{ Reason string }

func (e *NotSupportedError) Error() string { return fmt.Sprintf("colortransform: not supported: %s", e.Reason) }

// InvalidTransformError marks a compilation-time rejection: a non-invertible
// matrix, zero power under inversion, an unresolved symbolic reference, a
// config cycle, etc. (spec.md §4.2, §7, §9).
type InvalidTransformError struct{ Reason string }

func (e *InvalidTransformError) Error() string {
	return fmt.Sprintf("colortransform: invalid transform: %s", e.Reason)
}

func notSupported(format string, args ...any) error {
	return &NotSupportedError{Reason: fmt.Sprintf(format, args...)}
}

func invalidTransform(format string, args ...any) error {
	return &InvalidTransformError{Reason: fmt.Sprintf(format, args...)}
}
