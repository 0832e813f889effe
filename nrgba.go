package pix

import (
	"errors"
	"image"
	"image/color"
	"io"
)

var _ ImageBuffered = (*NRGBA)(nil)

// NRGBA exposes an [image.NRGBA] as an [ImageBuffered] of shape [ShapeNRGBA8888].
// The wrapped image must have its origin at (0,0); use [ToNRGBA] to obtain one.
type NRGBA struct {
	img *image.NRGBA
}

// NewNRGBA wraps img. It does not copy the pixel buffer.
func NewNRGBA(img *image.NRGBA) *NRGBA {
	return &NRGBA{img: img}
}

// Dims implements [Image].
func (n *NRGBA) Dims() Dims {
	b := n.img.Bounds()
	return Dims{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: n.img.Stride,
		Shape:  ShapeNRGBA8888,
	}
}

// Buffer implements [ImageBuffered].
func (n *NRGBA) Buffer() []byte { return n.img.Pix }

// ReadAt implements [io.ReaderAt] over the raw pixel buffer.
func (n *NRGBA) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	} else if off >= int64(len(n.img.Pix)) {
		return 0, io.EOF
	}
	c := copy(p, n.img.Pix[off:])
	if c < len(p) {
		return c, io.EOF
	}
	return c, nil
}

// Image returns the wrapped image.
func (n *NRGBA) Image() *image.NRGBA { return n.img }

// ToNRGBA returns img as a straight-alpha 8-bit image with its origin at (0,0).
// Every channel keeps the high byte of its straight (non-premultiplied) value,
// so transparent pixels keep their color. Sources without an alpha channel
// come out fully opaque. The returned image never aliases img's pixel buffer.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*w], src.Pix[off:off+4*w])
		}
	case *image.NRGBA64:
		// Big endian 16-bit channels; keep the high bytes.
		for y := 0; y < h; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+4*w]
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for i := range row {
				row[i] = src.Pix[off+2*i]
			}
		}
	default:
		for y := 0; y < h; y++ {
			row := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				c := straight8(img.At(b.Min.X+x, b.Min.Y+y))
				i := x * 4
				row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return dst
}

// straight8 converts c to 8-bit straight alpha. Straight-alpha colors are
// narrowed directly; premultiplied ones are unpremultiplied at 16 bits first.
func straight8(c color.Color) color.NRGBA {
	switch c := c.(type) {
	case color.NRGBA:
		return c
	case color.NRGBA64:
		return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
	}
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return color.NRGBA{R: uint8(n.R >> 8), G: uint8(n.G >> 8), B: uint8(n.B >> 8), A: uint8(n.A >> 8)}
}
