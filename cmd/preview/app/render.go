package app

import (
	"image"
	"image/color"
	"image/draw"
)

// tileGap is the spacing in pixels between montage tiles; it doubles as
// room for the per-tile annotation strip.
const tileGap = 24

// Montage lays out grayscale frames left-to-right, top-to-bottom on a
// fixed column grid.
type Montage struct {
	frameHeight int
	frameWidth  int
	columns     int
}

func NewMontage(frameHeight, frameWidth, columns int) *Montage {
	return &Montage{
		frameHeight: frameHeight,
		frameWidth:  frameWidth,
		columns:     columns,
	}
}

// TileOrigin returns the top-left pixel of tile i.
func (m *Montage) TileOrigin(i int) image.Point {
	col := i % m.columns
	row := i / m.columns

	return image.Point{
		X: col * (m.frameWidth + tileGap),
		Y: row * (m.frameHeight + tileGap),
	}
}

// Render draws n frames from the flat grayscale buffer into a montage
// image. The buffer holds n frames of frameHeight*frameWidth bytes each.
func (m *Montage) Render(data []byte, n int) *image.RGBA {
	rows := (n + m.columns - 1) / m.columns
	width := m.columns*(m.frameWidth+tileGap) - tileGap
	height := rows * (m.frameHeight + tileGap)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	frameBytes := m.frameHeight * m.frameWidth
	for i := 0; i < n; i++ {
		origin := m.TileOrigin(i)
		frame := data[i*frameBytes : (i+1)*frameBytes]

		for y := 0; y < m.frameHeight; y++ {
			for x := 0; x < m.frameWidth; x++ {
				v := frame[y*m.frameWidth+x]
				img.SetRGBA(origin.X+x, origin.Y+y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	}

	return img
}
