package pix

import (
	"errors"
	"image"
	"io"
)

// Image is raw pixel memory described by [Dims]: rows of equal length
// separated by a fixed stride. Pixels are reached through ReadAt, which may be
// backed by memory, a file or anything else.
type Image interface {
	Dims() Dims
	io.ReaderAt
}

// ImageBuffered is an [Image] whose pixels may live in a single slice.
// Buffer returns nil when the pixels are not currently in memory.
type ImageBuffered interface {
	Image
	Buffer() []byte
}

// Filter transforms the pixels of one [Image] into a destination buffer.
type Filter interface {
	// ShapeIO reports the pixel layout written to and read from by Process.
	ShapeIO() (output, input Shape)
	// Process writes the transform of src (restricted to roi when non-nil) into dst
	// and returns the layout of what it wrote. A nil dst requests in-place
	// processing on the buffer of src, which then must be an [ImageBuffered]
	// with a nil roi. See [ValidateProcessArgs].
	Process(dst []byte, src Image, roi *image.Rectangle) (Dims, error)
	// Controls lists the editable parameters of the filter.
	Controls() []Control
}

// Shape identifies the in-memory layout of a single pixel.
type Shape int

const (
	shapeUndefined Shape = iota
	// ShapeRGBA8888 is alpha-premultiplied like [image.RGBA].
	ShapeRGBA8888
	// ShapeNRGBA8888 carries straight alpha like [image.NRGBA].
	ShapeNRGBA8888
)

// BytesPerPixel returns the size of one pixel or 0 for unknown shapes.
func (sh Shape) BytesPerPixel() int {
	switch sh {
	case ShapeRGBA8888, ShapeNRGBA8888:
		return 4
	}
	return 0
}

func (sh Shape) String() string {
	switch sh {
	case ShapeRGBA8888:
		return "rgba8888"
	case ShapeNRGBA8888:
		return "nrgba8888"
	}
	return "undefined"
}

// Dims describes the memory layout of an [Image].
type Dims struct {
	Width  int
	Height int
	Stride int // Bytes between the starts of consecutive rows.
	Shape  Shape
}

var (
	errEmptyImage  = errors.New("empty image")
	errBadShape    = errors.New("bad pixel shape")
	errShortStride = errors.New("stride smaller than pixel row size")
)

// Validate reports whether d describes a non-empty image of a known shape.
func (d Dims) Validate() error {
	switch {
	case d.Width <= 0 || d.Height <= 0:
		return errEmptyImage
	case d.Shape.BytesPerPixel() == 0:
		return errBadShape
	case d.SizeRow() > d.Stride:
		return errShortStride
	}
	return nil
}

// SizeRow returns the number of pixel bytes in one row, excluding padding.
func (d Dims) SizeRow() int {
	return d.Width * d.Shape.BytesPerPixel()
}

// Size returns the number of bytes spanned from the first pixel to the last.
// The final row carries no padding.
func (d Dims) Size() int64 {
	if d.Width <= 0 || d.Height <= 0 {
		return 0
	}
	return int64(d.Height-1)*int64(d.Stride) + int64(d.SizeRow())
}

// ImageRow returns the pixels of row y of img. Buffered images return a
// subslice of their buffer, which aliases img. Otherwise the row is read into
// scratch, which must hold at least one row.
func ImageRow(scratch []byte, img Image, y int) ([]byte, error) {
	d := img.Dims()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	n := d.SizeRow()
	if len(scratch) < n {
		return nil, io.ErrShortBuffer
	}
	if y < 0 || y >= d.Height {
		return nil, errors.New("row out of bounds")
	}
	off := int64(y) * int64(d.Stride)
	if b, ok := img.(ImageBuffered); ok {
		if buf := b.Buffer(); buf != nil {
			return buf[off : off+int64(n)], nil
		}
	}
	got, err := img.ReadAt(scratch[:n], off)
	if got == n {
		return scratch[:n], nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// ValidateProcessArgs is the common argument check of [Filter.Process].
// It validates src, roi and, for a non-zero out.Stride, that dst can hold
// out.Height rows (or roi.Dy() rows) of out.Stride bytes.
//
// A nil dst selects in-place processing: roi must be nil, out.Shape must equal
// the source shape and src must expose a complete buffer, which is returned as dst.
func ValidateProcessArgs(dst []byte, out Dims, src Image, roi *image.Rectangle) (_ []byte, srcDims Dims, err error) {
	srcDims = src.Dims()
	if err = srcDims.Validate(); err != nil {
		return nil, srcDims, err
	}
	rows := out.Height
	if roi != nil {
		if err = checkROI(*roi, srcDims); err != nil {
			return nil, srcDims, err
		}
		rows = roi.Dy()
	}
	if dst == nil {
		dst, err = inPlaceBuffer(out, src, srcDims, roi)
		if err != nil {
			return nil, srcDims, err
		}
	}
	if int64(len(dst)) < int64(out.Stride)*int64(rows) {
		return dst, srcDims, errors.New("destination buffer not large enough to store output")
	}
	return dst, srcDims, nil
}

func checkROI(roi image.Rectangle, d Dims) error {
	switch {
	case roi.Min.X < 0 || roi.Min.Y < 0 || roi.Max.X < 0 || roi.Max.Y < 0:
		return errors.New("negative ROI")
	case roi.Max.X > d.Width || roi.Max.Y > d.Height:
		return errors.New("ROI exceeds image bounds")
	case roi.Empty():
		return errors.New("empty ROI")
	}
	return nil
}

func inPlaceBuffer(out Dims, src Image, srcDims Dims, roi *image.Rectangle) ([]byte, error) {
	if roi != nil {
		return nil, errors.New("in-place operation does not support ROI")
	} else if out.Shape != srcDims.Shape {
		return nil, errors.New("src must match filter output shape for in-place op")
	}
	b, ok := src.(ImageBuffered)
	if !ok {
		return nil, errors.New("src does not implement ImageBuffered for in-place op")
	}
	buf := b.Buffer()
	if buf == nil {
		return nil, errors.New("src returned nil buffer on in-place op")
	} else if int64(len(buf)) < srcDims.Size() {
		return nil, errors.New("src buffer too small to hold the complete image")
	}
	return buf, nil
}
