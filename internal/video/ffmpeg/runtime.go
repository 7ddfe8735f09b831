package ffmpeg

import (
	"fmt"
	"os/exec"
)

const (
	DecodeRuntime = "ffmpeg"
	ProbeRuntime  = "ffprobe"
)

// FindRuntime locates an external decoder binary on the PATH.
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", fmt.Errorf("failed to find binary '%s': %w", runtime, err)
	}

	return binPath, nil
}
