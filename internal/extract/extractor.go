// Package extract demultiplexes the interleaved frame cache into
// per-channel sample sequences and serves random-access reads over them.
package extract

import (
	"fmt"
	"path/filepath"

	"github.com/neurodata-lab/widefield-nwb/internal/cache"
	"github.com/neurodata-lab/widefield-nwb/internal/camlog"
	"github.com/neurodata-lab/widefield-nwb/internal/lightsource"
)

// Extractor is a per-channel view over a built frame cache. It resolves a
// caller-supplied excitation wavelength to a channel id, demultiplexes the
// camera log down to that channel's frames, and gathers pixel data from
// the memory-mapped cache without re-decoding video.
type Extractor struct {
	reader   *cache.Reader
	property lightsource.Property

	entries []camlog.Entry // log entries for the selected channel only
	indices []int          // zero-based cache rows for the selected channel
}

// NewExtractor opens the cache in cacheDir and builds the channel view
// for the given excitation wavelength. The camera log is truncated to the
// cache's actual written frame count, and must carry exactly two distinct
// channels.
func NewExtractor(cacheDir, camlogPath string, table *lightsource.Table, wavelengthNm int) (*Extractor, error) {
	property, err := table.PropertyForWavelength(wavelengthNm)
	if err != nil {
		return nil, err
	}

	reader, err := cache.OpenReader(cacheDir)
	if err != nil {
		return nil, err
	}

	entries, err := camlog.Parse(camlogPath, reader.Meta().TotalNumSamples)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	if err = ValidateChannels(entries); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("camera log '%s': %w", filepath.Base(camlogPath), err)
	}

	channel := make([]camlog.Entry, 0, len(entries)/NumInterleavedChannels)
	for _, e := range entries {
		if e.ChannelID == property.ChannelID {
			channel = append(channel, e)
		}
	}

	return &Extractor{
		reader:   reader,
		property: property,
		entries:  channel,
		indices:  SelectChannel(entries, property.ChannelID),
	}, nil
}

// Property returns the resolved light-source property for this channel.
func (e *Extractor) Property() lightsource.Property {
	return e.property
}

// ChannelName returns the optical channel label used in the output
// container: calcium for the 470 nm functional channel, isosbestic
// otherwise.
func (e *Extractor) ChannelName() string {
	if e.property.WavelengthNm == 470 {
		return "optical_channel_calcium"
	}
	return "optical_channel_isosbestic"
}

// ImageShape returns (height, width) of a single frame.
func (e *Extractor) ImageShape() (int, int) {
	meta := e.reader.Meta()
	return meta.Height, meta.Width
}

// NumSamples returns the authoritative sample count for this channel:
// the length of the demultiplexed index sequence, distinct from the
// combined cache's total frame count.
func (e *Extractor) NumSamples() int {
	return len(e.indices)
}

// SamplingFrequency returns the per-channel rate in Hz: the combined
// interleaved capture rate divided by the channel count. Assumes exactly
// even interleaving between channels.
func (e *Extractor) SamplingFrequency() float64 {
	return e.reader.Meta().FPS / NumInterleavedChannels
}

// FrameIndices returns a copy of the zero-based cache rows belonging to
// this channel, in capture order.
func (e *Extractor) FrameIndices() []int {
	return append([]int(nil), e.indices...)
}

// ReadRange gathers the [startSample, endSample) slice of this channel's
// samples from the cache as a flat buffer of (n, height, width) grayscale
// bytes. Negative startSample and endSample select the full range bound.
// An empty resolved selection is a fatal error.
func (e *Extractor) ReadRange(startSample, endSample int) ([]byte, error) {
	if startSample < 0 {
		startSample = 0
	}
	if endSample < 0 || endSample > len(e.indices) {
		endSample = len(e.indices)
	}
	if startSample >= endSample {
		return nil, fmt.Errorf("%w: samples [%d, %d) of %d",
			cache.ErrNoFramesSelected, startSample, endSample, len(e.indices))
	}

	return e.reader.ReadFrames(e.indices[startSample:endSample])
}

// NativeTimestamps returns the camera-log timestamps for this channel's
// [startSample, endSample) slice, or nil when the log carried no entries.
// These are the fallback timestamp source; externally aligned times are
// preferred whenever available.
func (e *Extractor) NativeTimestamps(startSample, endSample int) []float64 {
	if len(e.entries) == 0 {
		return nil
	}

	if startSample < 0 {
		startSample = 0
	}
	if endSample < 0 || endSample > len(e.entries) {
		endSample = len(e.entries)
	}
	if startSample >= endSample {
		return nil
	}

	timestamps := make([]float64, 0, endSample-startSample)
	for _, entry := range e.entries[startSample:endSample] {
		timestamps = append(timestamps, entry.Timestamp)
	}

	return timestamps
}

// Close releases the underlying cache mapping.
func (e *Extractor) Close() error {
	return e.reader.Close()
}
