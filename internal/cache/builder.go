package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/neurodata-lab/widefield-nwb/internal/video"
)

// SourcePattern matches the single raw interleaved video file expected in
// a session's raw-data folder.
const SourcePattern = "*.frames.mov"

var (
	// ErrNoSourceFile is returned when the raw-data folder holds no file
	// matching SourcePattern.
	ErrNoSourceFile = errors.New("no raw video file found")

	// ErrAmbiguousSource is returned when more than one file matches
	// SourcePattern; the pipeline is defined for exactly one source per
	// session folder.
	ErrAmbiguousSource = errors.New("multiple raw video files found")
)

// WithLogger sets the logger for the builder.
func WithLogger(logger *slog.Logger) func(*Builder) {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder converts a raw interleaved video into the disk-backed frame
// cache: a flat grayscale binary plus a metadata record. The build is a
// single synchronous pass with no retries.
type Builder struct {
	open   video.Opener
	logger *slog.Logger
}

// NewBuilder creates a Builder decoding sources through open.
func NewBuilder(open video.Opener, options ...func(*Builder)) *Builder {
	b := Builder{
		open:   open,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&b)
	}

	return &b
}

// Build creates the frame cache for the raw video in sourceDir, writing
// frames.dat and meta.json under cacheDir. If cacheDir is empty a
// temporary directory is created. When the cache binary already exists
// and overwrite is false, Build is an idempotent no-op: the source is
// never reopened. Returns the cache folder path.
//
// The binary is preallocated for the source's reported frame count. If
// the decoder exhausts early, the metadata records the actual number of
// frames written; downstream consumers must trust the metadata record,
// never the source's own count.
func (b *Builder) Build(ctx context.Context, sourceDir, cacheDir string, overwrite bool) (string, error) {
	started := time.Now()

	if cacheDir == "" {
		dir, err := os.MkdirTemp("", "wf_cache_")
		if err != nil {
			return "", fmt.Errorf("creating temporary cache folder: %w", err)
		}
		cacheDir = dir
	} else if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache folder '%s': %w", cacheDir, err)
	}

	dataPath := filepath.Join(cacheDir, DataFileName)
	metaPath := filepath.Join(cacheDir, MetaFileName)

	if _, err := os.Stat(dataPath); err == nil && !overwrite {
		b.logger.Info("frame cache already exists, skipping rebuild", slog.String("cache", cacheDir))
		return cacheDir, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking cache file '%s': %w", dataPath, err)
	}

	sourcePath, err := findSource(sourceDir)
	if err != nil {
		return "", err
	}

	source, err := b.open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("opening source '%s': %w", sourcePath, err)
	}
	defer source.Close()

	meta := source.Metadata()
	written, err := b.writeFrames(ctx, source, dataPath, meta)
	if err != nil {
		return "", err
	}

	record := Meta{
		TotalNumSamples: written,
		Height:          meta.Height,
		Width:           meta.Width,
		Dtype:           "uint8",
		FPS:             meta.FrameRate,
	}
	if err = saveMeta(metaPath, record); err != nil {
		return "", err
	}

	b.reportSizes(sourcePath, dataPath, time.Since(started))
	return cacheDir, nil
}

// writeFrames preallocates the flat binary for the reported frame count,
// then fills grayscale frames in capture order until the decoder is
// exhausted. Returns the number of frames actually written.
func (b *Builder) writeFrames(ctx context.Context, source video.Source, dataPath string, meta video.Metadata) (int, error) {
	frameBytes := meta.Height * meta.Width

	out, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating cache file '%s': %w", dataPath, err)
	}
	defer out.Close()

	if err = out.Truncate(int64(meta.TotalNumSamples) * int64(frameBytes)); err != nil {
		return 0, fmt.Errorf("preallocating cache file: %w", err)
	}

	writer := bufio.NewWriterSize(out, 1<<20)
	gray := make([]byte, frameBytes)

	var written int
	for written < meta.TotalNumSamples {
		if err = ctx.Err(); err != nil {
			return 0, err
		}

		frame, err := source.Next()
		if errors.Is(err, io.EOF) {
			break // source under-delivered; recorded count is the truth
		}
		if err != nil {
			return 0, fmt.Errorf("decoding frame %d: %w", written, err)
		}

		if err = video.Grayscale(frame, gray); err != nil {
			return 0, fmt.Errorf("converting frame %d: %w", written, err)
		}

		if _, err = writer.Write(gray); err != nil {
			return 0, fmt.Errorf("writing frame %d: %w", written, err)
		}

		written++
	}

	if err = writer.Flush(); err != nil {
		return 0, fmt.Errorf("flushing cache file: %w", err)
	}
	if err = out.Sync(); err != nil {
		return 0, fmt.Errorf("syncing cache file: %w", err)
	}

	return written, nil
}

func (b *Builder) reportSizes(sourcePath, dataPath string, elapsed time.Duration) {
	var sourceBytes, cacheBytes uint64
	if stat, err := os.Stat(sourcePath); err == nil {
		sourceBytes = uint64(stat.Size())
	}
	if stat, err := os.Stat(dataPath); err == nil {
		cacheBytes = uint64(stat.Size())
	}

	b.logger.Info("frame cache built",
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
		slog.String("sourceSize", humanize.IBytes(sourceBytes)),
		slog.String("cacheSize", humanize.IBytes(cacheBytes)),
	)
}

// findSource locates exactly one raw video file in the source folder.
func findSource(sourceDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(sourceDir, SourcePattern))
	if err != nil {
		return "", fmt.Errorf("globbing '%s': %w", sourceDir, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no '%s' files in folder '%s'", ErrNoSourceFile, SourcePattern, sourceDir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %d '%s' files in folder '%s', ensure only one is present",
			ErrAmbiguousSource, len(matches), SourcePattern, sourceDir)
	}
}
