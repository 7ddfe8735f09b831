package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/neurodata-lab/widefield-nwb/internal/video"
)

// Source decodes an interleaved video file into raw RGB24 frames by
// streaming ffmpeg's rawvideo output. Frames are delivered strictly in
// capture order; the decoder may run out before the container-reported
// frame count is reached.
type Source struct {
	meta video.Metadata

	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc

	frame []byte
	done  bool
}

// Open probes the file and starts an ffmpeg decode pipeline for it.
func Open(ctx context.Context, path string) (*Source, error) {
	meta, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	binPath, err := FindRuntime(DecodeRuntime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, binPath,
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("error starting decoder: %w", err)
	}

	return &Source{
		meta:   meta,
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, meta.BytesPerFrame()),
		cancel: cancel,
		frame:  make([]byte, meta.BytesPerFrame()),
	}, nil
}

// Metadata returns the probed stream metadata.
func (s *Source) Metadata() video.Metadata {
	return s.meta
}

// Next returns the next decoded RGB24 frame, or io.EOF once the decoder
// output is exhausted. The returned slice is reused between calls.
func (s *Source) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	if _, err := io.ReadFull(s.reader, s.frame); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading decoded frame: %w", err)
	}

	return s.frame, nil
}

// Close stops the decoder and releases the pipe.
func (s *Source) Close() error {
	s.cancel()
	_ = s.stdout.Close()

	if err := s.cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil // killed by cancel
		}
		return fmt.Errorf("decoder exited with error: %w", err)
	}

	return nil
}
