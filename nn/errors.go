package nn

import "fmt"

// ShapeMismatchError reports a violated structural precondition: a weight
// pattern requested for incompatible dimensions, or an input whose feature
// width does not match a layer's declared input size. Construction stops at
// the first violation; no partial matrix is ever returned.
type ShapeMismatchError struct {
	Op         string
	OutputSize int
	InputSize  int
	Detail     string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch for (%d, %d): %s", e.Op, e.OutputSize, e.InputSize, e.Detail)
}

// UnsupportedModeError reports an initialization mode outside the known set.
type UnsupportedModeError struct {
	Mode Mode
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported initialization mode %q", string(e.Mode))
}
