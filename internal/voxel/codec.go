package voxel

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/x448/float16"
)

// ErrCorruptModel is returned when a model file cannot be decoded.
var ErrCorruptModel = errors.New("corrupt model file")

// Precision selects how grid values are stored in a model file.
type Precision string

const (
	PrecisionFloat64 Precision = "float64"
	PrecisionFloat16 Precision = "float16"
)

const modelFormatVersion = 1

// modelBlob is the gob payload of a model file. Exactly one of the
// float64 or float16 slice sets is populated, per Precision.
type modelBlob struct {
	Version   int
	X, Y, Z   int
	Channels  int
	Precision Precision

	Density   []float64
	Features  []float64
	Attention []float64

	Density16   []uint16
	Features16  []uint16
	Attention16 []uint16
}

// WriteModel gob-encodes m and gzip-compresses it onto w.
func WriteModel(w io.Writer, m *Model, p Precision) error {
	if err := m.Validate(); err != nil {
		return err
	}
	d := m.Dims()
	blob := modelBlob{
		Version:   modelFormatVersion,
		X:         d.X,
		Y:         d.Y,
		Z:         d.Z,
		Channels:  m.Features.Channels,
		Precision: p,
	}
	switch p {
	case PrecisionFloat64, "":
		blob.Precision = PrecisionFloat64
		blob.Density = m.Density.Data
		blob.Features = m.Features.Data
		blob.Attention = m.Attention.Data
	case PrecisionFloat16:
		blob.Density16 = toHalf(m.Density.Data)
		blob.Features16 = toHalf(m.Features.Data)
		blob.Attention16 = toHalf(m.Attention.Data)
	default:
		return fmt.Errorf("unknown model precision %q", p)
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(&blob); err != nil {
		gz.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return gz.Close()
}

// ReadModel decodes a model written by WriteModel.
func ReadModel(r io.Reader) (*Model, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	defer gz.Close()

	var blob modelBlob
	if err := gob.NewDecoder(gz).Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if blob.Version != modelFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptModel, blob.Version)
	}

	d := Dims{X: blob.X, Y: blob.Y, Z: blob.Z}
	m := &Model{
		Density:   &ScalarGrid{Dims: d},
		Features:  &FeatureGrid{Dims: d, Channels: blob.Channels},
		Attention: &ScalarGrid{Dims: d},
	}
	switch blob.Precision {
	case PrecisionFloat64:
		m.Density.Data = blob.Density
		m.Features.Data = blob.Features
		m.Attention.Data = blob.Attention
	case PrecisionFloat16:
		m.Density.Data = fromHalf(blob.Density16)
		m.Features.Data = fromHalf(blob.Features16)
		m.Attention.Data = fromHalf(blob.Attention16)
	default:
		return nil, fmt.Errorf("%w: unknown precision %q", ErrCorruptModel, blob.Precision)
	}
	// gob decodes empty slices as nil
	if m.Density.Data == nil {
		m.Density.Data = []float64{}
	}
	if m.Features.Data == nil {
		m.Features.Data = []float64{}
	}
	if m.Attention.Data == nil {
		m.Attention.Data = []float64{}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	return m, nil
}

// SaveModel writes m to path, creating parent directories.
func SaveModel(path string, m *Model, p Precision) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteModel(bw, m, p); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return f.Close()
}

// LoadModel reads a model file from path.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	m, err := ReadModel(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func toHalf(src []float64) []uint16 {
	out := make([]uint16, len(src))
	for i, v := range src {
		out[i] = float16.Fromfloat32(float32(v)).Bits()
	}
	return out
}

func fromHalf(src []uint16) []float64 {
	out := make([]float64, len(src))
	for i, b := range src {
		out[i] = float64(float16.Frombits(b).Float32())
	}
	return out
}
