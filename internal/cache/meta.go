package cache

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// DataFileName is the flat binary holding grayscale frames in raw
	// capture order, shape (n_frames, height, width), no header.
	DataFileName = "frames.dat"

	// MetaFileName is the sidecar record describing the binary. Its
	// total_num_samples is the ground truth frame count: it reflects what
	// was actually written, never the source's self-reported count.
	MetaFileName = "meta.json"
)

// Meta is the on-disk cache metadata record.
type Meta struct {
	TotalNumSamples int     `json:"total_num_samples"`
	Height          int     `json:"height"`
	Width           int     `json:"width"`
	Dtype           string  `json:"dtype"`
	FPS             float64 `json:"fps"`
}

// FrameBytes returns the byte size of a single cached frame.
func (m Meta) FrameBytes() int {
	return m.Height * m.Width
}

// LoadMeta reads and validates the metadata record from a cache folder file.
func LoadMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("reading cache metadata: %w", err)
	}

	var m Meta
	if err = json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parsing cache metadata '%s': %w", path, err)
	}

	if m.Height <= 0 || m.Width <= 0 {
		return Meta{}, fmt.Errorf("invalid frame shape (%d, %d) in '%s'", m.Height, m.Width, path)
	}
	if m.TotalNumSamples < 0 {
		return Meta{}, fmt.Errorf("invalid sample count %d in '%s'", m.TotalNumSamples, path)
	}

	return m, nil
}

func saveMeta(path string, m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling cache metadata: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}

	return nil
}
