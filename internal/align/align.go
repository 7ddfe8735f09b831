// Package align reconciles the per-channel sample sequences with their
// timestamp sources. Two sources exist: the native camera-log timestamps
// and the externally computed aligned-time arrays produced by the
// upstream synchronization pipeline. The externally aligned source is
// authoritative and always preferred when its datasets are present.
package align

import (
	"errors"
	"fmt"
	"os"

	"github.com/neurodata-lab/widefield-nwb/internal/extract"
	"github.com/neurodata-lab/widefield-nwb/internal/lightsource"
)

var (
	// ErrLengthMismatch is returned when the aligned-time selection for a
	// channel does not match the channel's demultiplexed sample count.
	// This indicates an upstream data-integrity problem and is fatal;
	// the selection is never truncated or padded.
	ErrLengthMismatch = errors.New("aligned timestamp count does not match channel sample count")

	// ErrParallelArrays is returned when the aligned-times and
	// light-source arrays are not the same length.
	ErrParallelArrays = errors.New("aligned times and light source arrays differ in length")
)

// TimestampsForChannel filters the combined aligned-times array down to
// the entries belonging to the channel that carries the given excitation
// wavelength. times and lightSources are parallel arrays, one entry per
// raw captured frame across all channels; ordering is preserved.
func TimestampsForChannel(wavelengthNm int, times []float64, lightSources []int, table *lightsource.Table) ([]float64, error) {
	channelID, err := table.ChannelForWavelength(wavelengthNm)
	if err != nil {
		return nil, err
	}

	if len(times) != len(lightSources) {
		return nil, fmt.Errorf("%w: %d times, %d light sources",
			ErrParallelArrays, len(times), len(lightSources))
	}

	selected := make([]float64, 0, len(times)/extract.NumInterleavedChannels)
	for i, t := range times {
		if lightSources[i] == channelID {
			selected = append(selected, t)
		}
	}

	return selected, nil
}

// SourceKind identifies which timestamp source a session uses.
type SourceKind int

const (
	// NativeLog uses the per-frame camera-log timestamps. Fallback path
	// when no externally aligned datasets are supplied.
	NativeLog SourceKind = iota

	// ExternallyAligned uses the upstream-computed aligned-time arrays.
	// Preferred whenever both datasets are present.
	ExternallyAligned
)

func (k SourceKind) String() string {
	if k == ExternallyAligned {
		return "externally-aligned"
	}
	return "native-log"
}

// Source is the resolved timestamp source for a session.
type Source struct {
	Kind             SourceKind
	AlignedTimesPath string
	LightSourcePath  string
}

// SelectSource decides the timestamp source by which inputs are supplied:
// when both aligned datasets exist on disk the externally aligned variant
// wins, otherwise the native camera log is used.
func SelectSource(alignedTimesPath, lightSourcePath string) Source {
	if alignedTimesPath != "" && lightSourcePath != "" &&
		fileExists(alignedTimesPath) && fileExists(lightSourcePath) {
		return Source{
			Kind:             ExternallyAligned,
			AlignedTimesPath: alignedTimesPath,
			LightSourcePath:  lightSourcePath,
		}
	}

	return Source{Kind: NativeLog}
}

// ChannelTimestamps produces the monotonic per-channel timestamp vector
// for the extractor's channel. For the externally aligned source the
// selection length must equal the channel's sample count, else the
// session fails validation.
func (s Source) ChannelTimestamps(ext *extract.Extractor, table *lightsource.Table) ([]float64, error) {
	switch s.Kind {
	case ExternallyAligned:
		times, err := LoadTimes(s.AlignedTimesPath)
		if err != nil {
			return nil, err
		}

		lightSources, err := LoadLightSources(s.LightSourcePath)
		if err != nil {
			return nil, err
		}

		selected, err := TimestampsForChannel(ext.Property().WavelengthNm, times, lightSources, table)
		if err != nil {
			return nil, err
		}

		if len(selected) != ext.NumSamples() {
			return nil, fmt.Errorf("%w: %d aligned timestamps for %d samples (channel %d)",
				ErrLengthMismatch, len(selected), ext.NumSamples(), ext.Property().ChannelID)
		}

		return selected, nil

	default:
		return ext.NativeTimestamps(0, -1), nil
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
