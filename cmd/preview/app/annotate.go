package app

import (
	"fmt"
	"image"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi  float64 = 72
	size float64 = 14
)

// Annotator draws per-tile labels (frame index, native timestamp) under
// each montage tile.
type Annotator struct {
	context *freetype.Context
}

func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(image.White)
	context.SetHinting(font.HintingFull)

	return &Annotator{context: context}, nil
}

// Annotate labels each tile with its raw cache frame index and, when the
// camera log supplied one, the native timestamp in seconds. timestamps
// may be nil or shorter than indices; missing entries are omitted.
func (a *Annotator) Annotate(img *image.RGBA, montage *Montage, indices []int, timestamps []float64) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	for i, frameIndex := range indices {
		origin := montage.TileOrigin(i)

		label := fmt.Sprintf("#%d", frameIndex)
		if i < len(timestamps) {
			label = fmt.Sprintf("#%d  t=%.3fs", frameIndex, timestamps[i])
		}

		pt := freetype.Pt(origin.X+2, origin.Y+montage.frameHeight+int(size)+2)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing label for frame %d: %w", frameIndex, err)
		}
	}

	return nil
}
