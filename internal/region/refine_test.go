package region

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/voxedit/internal/config"
	"github.com/banshee-data/voxedit/internal/testutil"
	"github.com/banshee-data/voxedit/internal/voxel"
)

func TestCheckModels(t *testing.T) {
	d := voxel.Dims{X: 4, Y: 2, Z: 2}
	tests := []struct {
		name    string
		mutate  func(edit, object *voxel.Model)
		wantErr error
	}{
		{"matching", func(_, _ *voxel.Model) {}, nil},
		{"attention may differ", func(_, o *voxel.Model) { o.Attention.Fill(3) }, nil},
		{"density differs", func(_, o *voxel.Model) { o.Density.Data[0] = 0 }, ErrModelMismatch},
		{"features differ", func(_, o *voxel.Model) { o.Features.Data[5] += 1 }, ErrModelMismatch},
		{"shape differs", func(_, o *voxel.Model) { *o = *voxel.NewModel(testutil.Cube(2), 2) }, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit, object := testutil.ModelPair(d, 2)
			tt.mutate(edit, object)
			err := CheckModels(edit, object)
			if tt.wantErr == nil {
				testutil.AssertNoError(t, err)
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckModels_InvalidModel(t *testing.T) {
	edit, object := testutil.ModelPair(testutil.Cube(2), 1)
	edit.Attention = nil
	testutil.AssertError(t, CheckModels(edit, object))
}

func TestModelInputs_Activation(t *testing.T) {
	edit, object := testutil.ModelPair(voxel.Dims{X: 2, Y: 1, Z: 1}, 1)

	cfg := DefaultConfig()
	in := ModelInputs(edit, object, cfg)
	if got, want := in.Features.Data[0], voxel.Sigmoid(-2); math.Abs(got-want) > 1e-12 {
		t.Errorf("activated feature = %v, want %v", got, want)
	}
	if edit.Features.Data[0] != -2 {
		t.Errorf("input features must not change, got %v", edit.Features.Data[0])
	}

	cfg.FeatureActivation = config.ActivationNone
	in = ModelInputs(edit, object, cfg)
	if in.Features != edit.Features {
		t.Error("expected raw features to be passed through without activation")
	}
	if in.ObjectAttention != object.Attention {
		t.Error("expected object attention to come from the object model")
	}
}

func TestRefine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinNumEditVoxels = 1

	d := voxel.Dims{X: 6, Y: 3, Z: 3}
	edit, object := testutil.ModelPair(d, 2)
	before := edit.Clone()

	out, res, err := Refine(edit, object, cfg, nil)
	testutil.AssertNoError(t, err)
	if !edit.Attention.Equal(before.Attention) {
		t.Error("edit model must not be modified")
	}
	if !out.Attention.Equal(res.Selection) {
		t.Error("refined attention should equal the selection")
	}
	if !out.Density.Equal(edit.Density) {
		t.Error("refined density should equal the edit density")
	}

	// The feature step between X=2 and X=3 is where the cut falls.
	for i := 0; i < d.Len(); i++ {
		c := d.Coord(i)
		want := cfg.BackgroundValue
		if c.X < d.X/2 {
			want = cfg.SelectedValue
		}
		if got := out.Attention.Data[i]; got != want {
			t.Errorf("cell %v: attention %v, want %v", c, got, want)
		}
	}
}

func TestRefine_ModelMismatch(t *testing.T) {
	edit, object := testutil.ModelPair(testutil.Cube(3), 2)
	object.Density.Data[4] = 9
	_, _, err := Refine(edit, object, DefaultConfig(), nil)
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("expected ErrModelMismatch, got %v", err)
	}
}
