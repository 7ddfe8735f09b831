package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/neurodata-lab/widefield-nwb/internal/video"
)

// probeOutput mirrors the subset of ffprobe -of json output we consume.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NBFrames  string `json:"nb_frames"`
	FrameRate string `json:"r_frame_rate"`
}

// Probe queries the first video stream of the file for its frame count,
// shape and nominal capture rate. The reported frame count comes from the
// container header and may exceed what the decoder actually delivers.
func Probe(ctx context.Context, path string) (video.Metadata, error) {
	binPath, err := FindRuntime(ProbeRuntime)
	if err != nil {
		return video.Metadata{}, fmt.Errorf("error finding runtime: %w", err)
	}

	cmd := exec.CommandContext(ctx, binPath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_frames,nb_read_packets,r_frame_rate",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return video.Metadata{}, fmt.Errorf("probing '%s': %w", path, err)
	}

	var probed probeOutput
	if err = json.Unmarshal(out, &probed); err != nil {
		return video.Metadata{}, fmt.Errorf("parsing probe output: %w", err)
	}
	if len(probed.Streams) == 0 {
		return video.Metadata{}, fmt.Errorf("no video stream found in '%s'", path)
	}

	stream := probed.Streams[0]

	numFrames, err := strconv.Atoi(stream.NBFrames)
	if err != nil {
		return video.Metadata{}, fmt.Errorf("invalid frame count '%s': %w", stream.NBFrames, err)
	}

	frameRate, err := parseFrameRate(stream.FrameRate)
	if err != nil {
		return video.Metadata{}, err
	}

	return video.Metadata{
		TotalNumSamples: numFrames,
		Height:          stream.Height,
		Width:           stream.Width,
		ColorDepth:      3,
		FrameRate:       frameRate,
	}, nil
}

// parseFrameRate parses ffprobe's rational rate notation, e.g. "60/1".
func parseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		rate, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate '%s': %w", s, err)
		}
		return rate, nil
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate '%s': %w", s, err)
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate '%s'", s)
	}

	return n / d, nil
}
