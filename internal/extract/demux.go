package extract

import (
	"errors"
	"fmt"
	"slices"

	"github.com/neurodata-lab/widefield-nwb/internal/camlog"
)

// NumInterleavedChannels is the channel count the pipeline is defined
// for. Widefield rigs interleave exactly two excitation LEDs (functional
// and isosbestic); any other count in the camera log is a configuration
// error, not a supported mode.
const NumInterleavedChannels = 2

// ErrChannelCount is returned when the camera log does not carry exactly
// two distinct excitation channels.
var ErrChannelCount = errors.New("unexpected channel count in camera log")

// SelectChannel filters camera log entries down to one excitation channel
// and maps their 1-based frame ids to zero-based indices into the frame
// cache. Relative order (capture order) is preserved, never re-sorted.
func SelectChannel(entries []camlog.Entry, channelID int) []int {
	indices := make([]int, 0, len(entries)/NumInterleavedChannels)
	for _, e := range entries {
		if e.ChannelID == channelID {
			indices = append(indices, e.FrameID-1)
		}
	}

	return indices
}

// DistinctChannels returns the sorted distinct channel ids present in the
// log.
func DistinctChannels(entries []camlog.Entry) []int {
	var channels []int
	for _, e := range entries {
		if !slices.Contains(channels, e.ChannelID) {
			channels = append(channels, e.ChannelID)
		}
	}

	slices.Sort(channels)
	return channels
}

// ValidateChannels checks the dual-channel interleaving invariant.
func ValidateChannels(entries []camlog.Entry) error {
	if n := len(DistinctChannels(entries)); n != NumInterleavedChannels {
		return fmt.Errorf("%w: expected %d distinct channels, found %d",
			ErrChannelCount, NumInterleavedChannels, n)
	}

	return nil
}
