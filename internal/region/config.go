package region

import (
	"fmt"
	"math"

	"github.com/banshee-data/voxedit/internal/config"
)

// Config holds the resolved segmentation parameters.
type Config struct {
	K     float64 // affinity scale (default: 5.0)
	Sigma float64 // affinity bandwidth (default: 0.1)

	EditMaskThresh     float64 // fraction of the top edit probability a primary edit seed must reach (default: 0.992)
	MinNumEditVoxels   int     // primary edit seeds below this trigger the top-k fallback (default: 300)
	TopKEditThresh     int     // fallback edit seed count (default: 300)
	TopKObjThresh      int     // fallback object seed count (default: 200)
	NumObjVoxelsThresh int     // cap on the random object seed sample (default: 5000)
	RandomSeed         int64   // seeds the object subsample when no rand source is passed

	FeatureActivation string // config.ActivationSigmoid or config.ActivationNone

	BackgroundValue float64 // attention written outside the region (default: -20)
	UnselectedValue float64 // diagnostic value for active but unselected voxels (default: -10)
	SelectedValue   float64 // attention written inside the region (default: 0)

	KeepComponents int // largest density components kept after editing; 0 disables
}

// DefaultConfig returns the default parameters without reading any file.
func DefaultConfig() Config {
	return ConfigFromRegion(config.EmptyRegionConfig())
}

// ConfigFromRegion resolves a loaded RegionConfig, filling defaults for
// unset fields.
func ConfigFromRegion(rc *config.RegionConfig) Config {
	return Config{
		K:                  rc.GetK(),
		Sigma:              rc.GetSigma(),
		EditMaskThresh:     rc.GetEditMaskThresh(),
		MinNumEditVoxels:   rc.GetMinNumEditVoxels(),
		TopKEditThresh:     rc.GetTopKEditThresh(),
		TopKObjThresh:      rc.GetTopKObjThresh(),
		NumObjVoxelsThresh: rc.GetNumObjVoxelsThresh(),
		RandomSeed:         rc.GetRandomSeed(),
		FeatureActivation:  rc.GetFeatureActivation(),
		BackgroundValue:    rc.GetBackgroundValue(),
		UnselectedValue:    rc.GetUnselectedValue(),
		SelectedValue:      rc.GetSelectedValue(),
		KeepComponents:     rc.GetKeepComponents(),
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	switch {
	case c.K < 0 || math.IsNaN(c.K) || math.IsInf(c.K, 0):
		return fmt.Errorf("k must be a finite value >= 0, got %v", c.K)
	case c.Sigma <= 0 || math.IsNaN(c.Sigma) || math.IsInf(c.Sigma, 0):
		return fmt.Errorf("sigma must be a finite value > 0, got %v", c.Sigma)
	case c.EditMaskThresh < 0 || c.EditMaskThresh > 1 || math.IsNaN(c.EditMaskThresh):
		return fmt.Errorf("edit_mask_thresh must be between 0 and 1, got %v", c.EditMaskThresh)
	case c.MinNumEditVoxels < 0 || c.TopKEditThresh < 0 || c.TopKObjThresh < 0 ||
		c.NumObjVoxelsThresh < 0 || c.KeepComponents < 0:
		return fmt.Errorf("voxel counts must be non-negative")
	case c.FeatureActivation != config.ActivationSigmoid && c.FeatureActivation != config.ActivationNone:
		return fmt.Errorf("unknown feature activation %q", c.FeatureActivation)
	case !(c.BackgroundValue < c.UnselectedValue && c.UnselectedValue < c.SelectedValue):
		return fmt.Errorf("sentinels must satisfy background < unselected < selected")
	}
	return nil
}
