package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical region defaults file.
const DefaultConfigPath = "config/region.defaults.json"

// Feature activations applied to voxel features before affinity computation.
const (
	ActivationSigmoid = "sigmoid"
	ActivationNone    = "none"
)

// RegionConfig holds the edit-region segmentation parameters. Fields are
// pointers so that a partial file only overrides what it names; the Get*
// methods supply defaults for everything else.
type RegionConfig struct {
	// Affinity graph
	K     *float64 `json:"k,omitempty" yaml:"k,omitempty"`
	Sigma *float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	// Seeding
	EditMaskThresh     *float64 `json:"edit_mask_thresh,omitempty" yaml:"edit_mask_thresh,omitempty"`
	MinNumEditVoxels   *int     `json:"min_num_edit_voxels,omitempty" yaml:"min_num_edit_voxels,omitempty"`
	TopKEditThresh     *int     `json:"top_k_edit_thresh,omitempty" yaml:"top_k_edit_thresh,omitempty"`
	TopKObjThresh      *int     `json:"top_k_obj_thresh,omitempty" yaml:"top_k_obj_thresh,omitempty"`
	NumObjVoxelsThresh *int     `json:"num_obj_voxels_thresh,omitempty" yaml:"num_obj_voxels_thresh,omitempty"`
	RandomSeed         *int64   `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`

	FeatureActivation *string `json:"feature_activation,omitempty" yaml:"feature_activation,omitempty"`

	// Output sentinels
	BackgroundValue *float64 `json:"background_value,omitempty" yaml:"background_value,omitempty"`
	UnselectedValue *float64 `json:"unselected_value,omitempty" yaml:"unselected_value,omitempty"`
	SelectedValue   *float64 `json:"selected_value,omitempty" yaml:"selected_value,omitempty"`

	// Post-processing
	KeepComponents *int `json:"keep_components,omitempty" yaml:"keep_components,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyRegionConfig returns a RegionConfig with all fields nil.
func EmptyRegionConfig() *RegionConfig {
	return &RegionConfig{}
}

// DefaultRegionConfig returns a RegionConfig with every field set to its
// default value.
func DefaultRegionConfig() *RegionConfig {
	return &RegionConfig{
		K:                  ptrFloat64(5.0),
		Sigma:              ptrFloat64(0.1),
		EditMaskThresh:     ptrFloat64(0.992),
		MinNumEditVoxels:   ptrInt(300),
		TopKEditThresh:     ptrInt(300),
		TopKObjThresh:      ptrInt(200),
		NumObjVoxelsThresh: ptrInt(5000),
		RandomSeed:         ptrInt64(0),
		FeatureActivation:  ptrString(ActivationSigmoid),
		BackgroundValue:    ptrFloat64(-20),
		UnselectedValue:    ptrFloat64(-10),
		SelectedValue:      ptrFloat64(0),
		KeepComponents:     ptrInt(0),
	}
}

// LoadRegionConfig loads a RegionConfig from a .json, .yaml or .yml file.
// Omitted fields keep their defaults, so partial configs are safe.
func LoadRegionConfig(path string) (*RegionConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRegionConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *RegionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRegionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the ranges of every field that is set.
func (c *RegionConfig) Validate() error {
	if c.K != nil && (*c.K < 0 || !finite(*c.K)) {
		return fmt.Errorf("k must be a finite value >= 0, got %v", *c.K)
	}
	if c.Sigma != nil && (*c.Sigma <= 0 || !finite(*c.Sigma)) {
		return fmt.Errorf("sigma must be a finite value > 0, got %v", *c.Sigma)
	}
	if c.EditMaskThresh != nil && (*c.EditMaskThresh < 0 || *c.EditMaskThresh > 1 || math.IsNaN(*c.EditMaskThresh)) {
		return fmt.Errorf("edit_mask_thresh must be between 0 and 1, got %v", *c.EditMaskThresh)
	}

	counts := []struct {
		name string
		v    *int
	}{
		{"min_num_edit_voxels", c.MinNumEditVoxels},
		{"top_k_edit_thresh", c.TopKEditThresh},
		{"top_k_obj_thresh", c.TopKObjThresh},
		{"num_obj_voxels_thresh", c.NumObjVoxelsThresh},
		{"keep_components", c.KeepComponents},
	}
	for _, cnt := range counts {
		if cnt.v != nil && *cnt.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", cnt.name, *cnt.v)
		}
	}

	if c.FeatureActivation != nil {
		switch *c.FeatureActivation {
		case ActivationSigmoid, ActivationNone:
		default:
			return fmt.Errorf("feature_activation must be %q or %q, got %q",
				ActivationSigmoid, ActivationNone, *c.FeatureActivation)
		}
	}

	bg, un, sel := c.GetBackgroundValue(), c.GetUnselectedValue(), c.GetSelectedValue()
	if !finite(bg) || !finite(un) || !finite(sel) {
		return fmt.Errorf("sentinel values must be finite")
	}
	if !(bg < un && un < sel) {
		return fmt.Errorf("sentinels must satisfy background < unselected < selected, got %v, %v, %v", bg, un, sel)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GetK returns the affinity scale or the default.
func (c *RegionConfig) GetK() float64 {
	if c.K == nil {
		return 5.0
	}
	return *c.K
}

// GetSigma returns the affinity bandwidth or the default.
func (c *RegionConfig) GetSigma() float64 {
	if c.Sigma == nil {
		return 0.1
	}
	return *c.Sigma
}

// GetEditMaskThresh returns the edit_mask_thresh value or the default.
func (c *RegionConfig) GetEditMaskThresh() float64 {
	if c.EditMaskThresh == nil {
		return 0.992
	}
	return *c.EditMaskThresh
}

// GetMinNumEditVoxels returns the min_num_edit_voxels value or the default.
func (c *RegionConfig) GetMinNumEditVoxels() int {
	if c.MinNumEditVoxels == nil {
		return 300
	}
	return *c.MinNumEditVoxels
}

// GetTopKEditThresh returns the top_k_edit_thresh value or the default.
func (c *RegionConfig) GetTopKEditThresh() int {
	if c.TopKEditThresh == nil {
		return 300
	}
	return *c.TopKEditThresh
}

// GetTopKObjThresh returns the top_k_obj_thresh value or the default.
func (c *RegionConfig) GetTopKObjThresh() int {
	if c.TopKObjThresh == nil {
		return 200
	}
	return *c.TopKObjThresh
}

// GetNumObjVoxelsThresh returns the num_obj_voxels_thresh value or the default.
func (c *RegionConfig) GetNumObjVoxelsThresh() int {
	if c.NumObjVoxelsThresh == nil {
		return 5000
	}
	return *c.NumObjVoxelsThresh
}

// GetRandomSeed returns the random_seed value or the default.
func (c *RegionConfig) GetRandomSeed() int64 {
	if c.RandomSeed == nil {
		return 0
	}
	return *c.RandomSeed
}

// GetFeatureActivation returns the feature_activation value or the default.
func (c *RegionConfig) GetFeatureActivation() string {
	if c.FeatureActivation == nil || *c.FeatureActivation == "" {
		return ActivationSigmoid
	}
	return *c.FeatureActivation
}

// GetBackgroundValue returns the background sentinel or the default.
func (c *RegionConfig) GetBackgroundValue() float64 {
	if c.BackgroundValue == nil {
		return -20
	}
	return *c.BackgroundValue
}

// GetUnselectedValue returns the unselected-active sentinel or the default.
func (c *RegionConfig) GetUnselectedValue() float64 {
	if c.UnselectedValue == nil {
		return -10
	}
	return *c.UnselectedValue
}

// GetSelectedValue returns the selected sentinel or the default.
func (c *RegionConfig) GetSelectedValue() float64 {
	if c.SelectedValue == nil {
		return 0
	}
	return *c.SelectedValue
}

// GetKeepComponents returns the keep_components value or the default.
func (c *RegionConfig) GetKeepComponents() int {
	if c.KeepComponents == nil {
		return 0
	}
	return *c.KeepComponents
}
