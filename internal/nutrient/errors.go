package nutrient

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Validation errors for nutrient vectors and anchors.
// These are sentinel errors that can be compared with errors.Is().
var (
	// ErrNegativeValue indicates a macro field below zero.
	ErrNegativeValue = constError("nutrient value cannot be negative")

	// ErrNonFinite indicates a NaN or infinite macro field.
	ErrNonFinite = constError("nutrient value must be finite")

	// ErrUnknownAnchor indicates an anchor key that does not name a macro.
	ErrUnknownAnchor = constError("unknown anchor")
)
