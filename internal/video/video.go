package video

import "fmt"

// Metadata describes a raw interleaved video stream as reported by its
// container. TotalNumSamples comes from the container header and may be
// optimistic: decoders are allowed to deliver fewer frames than reported.
type Metadata struct {
	TotalNumSamples int     // Reported frame count, may overestimate
	Height          int     // Frame height in pixels
	Width           int     // Frame width in pixels
	ColorDepth      int     // Color components per pixel (3 for RGB24)
	FrameRate       float64 // Combined interleaved capture rate in Hz
}

// BytesPerFrame returns the size of a single decoded frame in bytes.
func (m Metadata) BytesPerFrame() int {
	return m.Height * m.Width * m.ColorDepth
}

// Source is a sequential decoder over an interleaved video file.
// Next returns one decoded RGB24 frame at a time, in capture order,
// and io.EOF when the stream is exhausted.
type Source interface {
	Metadata() Metadata
	Next() ([]byte, error)
	Close() error
}

// Opener constructs a Source for a video file path. The ffmpeg-backed
// implementation satisfies this; tests substitute synthetic sources.
type Opener func(path string) (Source, error)

// Grayscale converts one RGB24 frame into single-channel luma values
// using the ITU-R BT.601 weights, writing into gray which must hold
// exactly height*width bytes.
func Grayscale(rgb, gray []byte) error {
	if len(rgb) != len(gray)*3 {
		return fmt.Errorf("frame size mismatch: %d RGB bytes for %d gray pixels", len(rgb), len(gray))
	}

	for i := range gray {
		r := uint32(rgb[i*3])
		g := uint32(rgb[i*3+1])
		b := uint32(rgb[i*3+2])

		// 16.16 fixed point BT.601 luma
		gray[i] = byte((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
	}

	return nil
}
