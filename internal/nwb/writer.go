// Package nwb writes the conversion output container. The real NWB
// serialization lives outside this repository; the Writer interface is
// the seam, and DirWriter is a directory-based implementation storing
// per-channel data and timestamps as .npy arrays with YAML sidecars.
package nwb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gopkg.in/yaml.v3"

	"github.com/neurodata-lab/widefield-nwb/internal/metadata"
)

// ImagingSeries is one per-channel extracted sample sequence together
// with its resolved timestamps and channel properties.
type ImagingSeries struct {
	Name             string    // Series name, e.g. "optical_channel_calcium"
	ChannelID        int       // Excitation channel id
	WavelengthNm     int       // Excitation wavelength
	Color            string    // Light source color label
	Height           int       // Frame height in pixels
	Width            int       // Frame width in pixels
	SamplingHz       float64   // Per-channel sampling rate
	TimestampsSource string    // "externally-aligned" or "native-log"
	Timestamps       []float64 // One entry per sample, capture order
	Data             []byte    // Flat (n, height, width) grayscale samples
}

// NumSamples returns the sample count implied by the data buffer.
func (s *ImagingSeries) NumSamples() int {
	if s.Height == 0 || s.Width == 0 {
		return 0
	}
	return len(s.Data) / (s.Height * s.Width)
}

// Writer serializes imaging series and session metadata into an output
// container.
type Writer interface {
	WriteImagingSeries(ctx context.Context, series *ImagingSeries) error
	WriteMetadata(ctx context.Context, doc metadata.Document) error
}

// seriesSidecar is the YAML record written next to each series' arrays.
type seriesSidecar struct {
	Name             string  `yaml:"name"`
	ChannelID        int     `yaml:"channelId"`
	WavelengthNm     int     `yaml:"wavelengthNm"`
	Color            string  `yaml:"color,omitempty"`
	NumSamples       int     `yaml:"numSamples"`
	Height           int     `yaml:"height"`
	Width            int     `yaml:"width"`
	SamplingHz       float64 `yaml:"samplingHz"`
	TimestampsSource string  `yaml:"timestampsSource"`
}

// WithLogger sets the logger for the writer.
func WithLogger(logger *slog.Logger) func(*DirWriter) {
	return func(w *DirWriter) {
		w.logger = logger
	}
}

// DirWriter writes series into a session output directory:
// <name>.data.npy (flat uint8 samples), <name>.times.npy (float64
// seconds) and <name>.yaml (shape and channel properties).
type DirWriter struct {
	dir    string
	logger *slog.Logger
}

// NewDirWriter creates the output directory tree if absent.
func NewDirWriter(dir string, options ...func(*DirWriter)) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output folder '%s': %w", dir, err)
	}

	w := DirWriter{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&w)
	}

	return &w, nil
}

func (w *DirWriter) WriteImagingSeries(ctx context.Context, series *ImagingSeries) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if n := series.NumSamples(); len(series.Timestamps) != n {
		return fmt.Errorf("series '%s': %d timestamps for %d samples",
			series.Name, len(series.Timestamps), n)
	}

	if err := w.writeArray(series.Name+".data.npy", series.Data); err != nil {
		return err
	}
	if err := w.writeArray(series.Name+".times.npy", series.Timestamps); err != nil {
		return err
	}

	sidecar := seriesSidecar{
		Name:             series.Name,
		ChannelID:        series.ChannelID,
		WavelengthNm:     series.WavelengthNm,
		Color:            series.Color,
		NumSamples:       series.NumSamples(),
		Height:           series.Height,
		Width:            series.Width,
		SamplingHz:       series.SamplingHz,
		TimestampsSource: series.TimestampsSource,
	}
	if err := writeYAML(filepath.Join(w.dir, series.Name+".yaml"), sidecar); err != nil {
		return err
	}

	w.logger.Info("wrote imaging series",
		slog.String("name", series.Name),
		slog.Int("samples", series.NumSamples()),
		slog.String("timestamps", series.TimestampsSource),
	)
	return nil
}

func (w *DirWriter) WriteMetadata(ctx context.Context, doc metadata.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return metadata.WriteFile(filepath.Join(w.dir, "metadata.yaml"), doc)
}

func (w *DirWriter) writeArray(name string, data any) error {
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating array file '%s': %w", path, err)
	}
	defer f.Close()

	if err = npyio.Write(f, data); err != nil {
		return fmt.Errorf("writing array '%s': %w", path, err)
	}

	return f.Sync()
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling sidecar '%s': %w", path, err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing sidecar '%s': %w", path, err)
	}

	return nil
}
