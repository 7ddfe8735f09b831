package cache

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/exp/mmap"
)

// ErrNoFramesSelected is returned when a read resolves to an empty frame
// selection. An empty request signals an upstream configuration bug, not
// a legitimate no-data condition, so it fails loudly.
var ErrNoFramesSelected = errors.New("no frames selected")

// Reader serves arbitrary frame rows from a built cache through a
// read-only memory mapping. The full array is never loaded into resident
// memory; row gathers trigger paged reads from disk. Safe for concurrent
// readers since the build step completed and flushed before opening.
type Reader struct {
	meta Meta
	data *mmap.ReaderAt
}

// OpenReader memory-maps the cache binary in cacheDir using the shape and
// dtype recorded in its metadata.
func OpenReader(cacheDir string) (*Reader, error) {
	meta, err := LoadMeta(filepath.Join(cacheDir, MetaFileName))
	if err != nil {
		return nil, err
	}

	if meta.Dtype != "uint8" {
		return nil, fmt.Errorf("unsupported cache dtype '%s', expected uint8", meta.Dtype)
	}

	dataPath := filepath.Join(cacheDir, DataFileName)
	data, err := mmap.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("mapping cache file '%s': %w", dataPath, err)
	}

	if min := int64(meta.TotalNumSamples) * int64(meta.FrameBytes()); int64(data.Len()) < min {
		_ = data.Close()
		return nil, fmt.Errorf("cache file '%s' is %d bytes, metadata requires at least %d",
			dataPath, data.Len(), min)
	}

	return &Reader{meta: meta, data: data}, nil
}

// Meta returns the cache metadata record.
func (r *Reader) Meta() Meta {
	return r.meta
}

// ReadFrames gathers the given raw-cache row indices into a flat buffer
// of len(indices)*height*width grayscale bytes, in the order requested.
func (r *Reader) ReadFrames(indices []int) ([]byte, error) {
	if len(indices) == 0 {
		return nil, ErrNoFramesSelected
	}

	frameBytes := r.meta.FrameBytes()
	out := make([]byte, len(indices)*frameBytes)

	for i, idx := range indices {
		if idx < 0 || idx >= r.meta.TotalNumSamples {
			return nil, fmt.Errorf("frame index %d out of range [0, %d)", idx, r.meta.TotalNumSamples)
		}

		offset := int64(idx) * int64(frameBytes)
		if _, err := r.data.ReadAt(out[i*frameBytes:(i+1)*frameBytes], offset); err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", idx, err)
		}
	}

	return out, nil
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	return r.data.Close()
}
