package region

import (
	"errors"
	"fmt"

	"github.com/banshee-data/voxedit/internal/voxel"
)

var (
	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("grid shape mismatch")

	// ErrModelMismatch is returned when the edit and object models do not
	// share identical density and feature grids.
	ErrModelMismatch = errors.New("edit and object models differ")
)

// ShapeMismatchError reports an input grid whose spatial dimensions differ
// from the density grid's.
type ShapeMismatchError struct {
	Field string
	Want  voxel.Dims
	Got   voxel.Dims
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s is %s, want %s", ErrShapeMismatch, e.Field, e.Got, e.Want)
}

// Is lets errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
