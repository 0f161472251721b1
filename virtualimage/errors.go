package virtualimage

import "errors"

var (
	ErrGridDimensionZero = errors.New("virtualimage: tiles_per_row and tiles_per_column must be > 0")
	ErrOutOfBounds       = errors.New("virtualimage: grid coordinate out of bounds")
)
