package region

import (
	"fmt"
	"math/rand"

	"github.com/banshee-data/voxedit/internal/config"
	"github.com/banshee-data/voxedit/internal/voxel"
)

// CheckModels verifies that the edit and object models were trained from
// the same geometry: identical density and feature grids. Attention is
// the only field allowed to differ.
func CheckModels(edit, object *voxel.Model) error {
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("edit model: %w", err)
	}
	if err := object.Validate(); err != nil {
		return fmt.Errorf("object model: %w", err)
	}
	if edit.Dims() != object.Dims() {
		return &ShapeMismatchError{Field: "object model", Want: edit.Dims(), Got: object.Dims()}
	}
	if !edit.Density.Equal(object.Density) {
		return fmt.Errorf("%w: density grids differ", ErrModelMismatch)
	}
	if !edit.Features.Equal(object.Features) {
		return fmt.Errorf("%w: feature grids differ", ErrModelMismatch)
	}
	return nil
}

// ModelInputs assembles segmentation inputs from a checked model pair,
// applying the configured feature activation.
func ModelInputs(edit, object *voxel.Model, cfg Config) Inputs {
	features := edit.Features
	if cfg.FeatureActivation == config.ActivationSigmoid {
		features = features.Map(voxel.Sigmoid)
	}
	return Inputs{
		Density:         edit.Density,
		Features:        features,
		EditAttention:   edit.Attention,
		ObjectAttention: object.Attention,
	}
}

// Refine segments the edit region of a model pair and returns a copy of
// the edit model whose attention channel is replaced by the selection.
// The inputs are not modified.
func Refine(edit, object *voxel.Model, cfg Config, rng *rand.Rand) (*voxel.Model, *Result, error) {
	if err := CheckModels(edit, object); err != nil {
		return nil, nil, err
	}
	res, err := ComputeEditRegion(ModelInputs(edit, object, cfg), cfg, rng)
	if err != nil {
		return nil, nil, err
	}
	out := edit.Clone()
	if err := ApplySelection(out.Attention, res.Selection); err != nil {
		return nil, nil, err
	}
	return out, res, nil
}
