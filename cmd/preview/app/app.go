package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/neurodata-lab/widefield-nwb/internal/cache"
	"github.com/neurodata-lab/widefield-nwb/internal/camlog"
	"github.com/neurodata-lab/widefield-nwb/internal/extract"
)

// Run renders a grayscale montage of cached frames for visual QC: either
// raw capture order, or a single excitation channel demultiplexed through
// the camera log.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.CacheDir); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("cache folder '%s' does not exist: %w", config.CacheDir, err)
	}

	reader, err := cache.OpenReader(config.CacheDir)
	if err != nil {
		return err
	}
	defer reader.Close()

	meta := reader.Meta()
	logger.Info("cache opened",
		slog.Int("frames", meta.TotalNumSamples),
		slog.Int("height", meta.Height),
		slog.Int("width", meta.Width),
		slog.String("frameSize", humanize.IBytes(uint64(meta.FrameBytes()))),
	)

	indices, timestamps, err := selectFrames(config, meta)
	if err != nil {
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	data, err := reader.ReadFrames(indices)
	if err != nil {
		return err
	}

	montage := NewMontage(meta.Height, meta.Width, config.Columns)
	img := montage.Render(data, len(indices))

	if !config.NoAnnotations {
		annotator, err := NewAnnotator()
		if err != nil {
			return fmt.Errorf("creating annotator: %w", err)
		}

		if err = annotator.Annotate(img, montage, indices, timestamps); err != nil {
			return fmt.Errorf("annotating montage: %w", err)
		}
	}

	logger.Info("rendering montage",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}

// selectFrames resolves the montage's cache row indices: all rows in
// capture order, or one channel's rows when a camera log and channel id
// are supplied. Returns per-frame native timestamps when known.
func selectFrames(config *Config, meta cache.Meta) ([]int, []float64, error) {
	var indices []int
	var timestamps []float64

	if config.CamlogFile != "" {
		entries, err := camlog.Parse(config.CamlogFile, meta.TotalNumSamples)
		if err != nil {
			return nil, nil, err
		}

		if config.ChannelID >= 0 {
			indices = extract.SelectChannel(entries, config.ChannelID)
			for _, e := range entries {
				if e.ChannelID == config.ChannelID {
					timestamps = append(timestamps, e.Timestamp)
				}
			}
		} else {
			for _, e := range entries {
				indices = append(indices, e.FrameID-1)
				timestamps = append(timestamps, e.Timestamp)
			}
		}
	} else {
		indices = make([]int, meta.TotalNumSamples)
		for i := range indices {
			indices[i] = i
		}
	}

	if config.StartSample >= len(indices) {
		return nil, nil, fmt.Errorf("start sample %d beyond %d available frames", config.StartSample, len(indices))
	}

	end := config.StartSample + config.NumSamples
	if end > len(indices) {
		end = len(indices)
	}

	indices = indices[config.StartSample:end]
	if timestamps != nil {
		timestamps = timestamps[config.StartSample:end]
	}

	return indices, timestamps, nil
}
