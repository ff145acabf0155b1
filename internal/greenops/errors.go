package greenops

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, comparable with errors.Is.
var (
	// ErrInvalidUnit indicates an unrecognized mass unit.
	ErrInvalidUnit = constError("invalid mass unit")

	// ErrNegativeValue indicates a negative weight or CO2 amount.
	ErrNegativeValue = constError("negative value")

	// ErrCalculationOverflow indicates an Inf or NaN input or result.
	ErrCalculationOverflow = constError("calculation overflow")

	// ErrUnknownMaterial indicates a material name with no factor row.
	// The calculator itself never returns it; input boundaries do.
	ErrUnknownMaterial = constError("unknown material kind")
)
