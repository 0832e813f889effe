package filters

import (
	"image"

	pix "github.com/pixinvert/pixinvert"
	"golang.org/x/sync/errgroup"
)

var (
	errShapeMismatch = errorString("pixel shape mismatch")
	errNilPixelFunc  = errorString("nil PixelFunc")
)

// PointFunc processes a contiguous row of pixels.
// dst and src contain rowWidth pixels worth of bytes and may alias for in-place operation.
// The function should iterate through pixels: for i := 0; i < len(src); i += bytesPerPixel { ... }
type PointFunc func(dst, src []byte)

// PointFilter applies a per-pixel transformation using a callback function.
// It handles the iteration, buffering, and ROI logic common to all per-pixel filters.
// The callback is invoked once per row with contiguous pixel data.
//
// Rows are independent of one another so with Workers > 1 the rows are
// split into contiguous bands processed concurrently. Fn must then be safe
// to call from multiple goroutines.
type PointFilter struct {
	In      pix.Shape
	Out     pix.Shape
	Fn      PointFunc
	Ctrls   []pix.Control // User-defined controls for this filter.
	Workers int           // Row bands processed concurrently. Values below 2 process sequentially.
}

// ShapeIO implements [Filter].
func (f *PointFilter) ShapeIO() (output, input pix.Shape) {
	return f.Out, f.In
}

// Controls implements [Filter].
func (f *PointFilter) Controls() []pix.Control {
	return f.Ctrls
}

// Process implements [Filter].
func (f *PointFilter) Process(dst []byte, src pix.Image, roi *image.Rectangle) (pix.Dims, error) {
	if f.Fn == nil {
		return pix.Dims{}, errNilPixelFunc
	}

	outShape, inShape := f.ShapeIO()
	srcDims := src.Dims()
	if srcDims.Shape != inShape {
		return pix.Dims{}, errShapeMismatch
	}

	inBytesPerPixel := inShape.BytesPerPixel()
	outBytesPerPixel := outShape.BytesPerPixel()

	// Calculate output dimensions based on ROI or full image.
	var outWidth, outHeight int
	if roi != nil {
		outWidth, outHeight = roi.Dx(), roi.Dy()
	} else {
		outWidth, outHeight = srcDims.Width, srcDims.Height
	}
	outStride := outWidth * outBytesPerPixel
	if dst == nil {
		// In-place writes land on the source rows.
		outStride = srcDims.Stride
	}

	dstDims := pix.Dims{
		Width:  outWidth,
		Height: outHeight,
		Stride: outStride,
		Shape:  outShape,
	}

	dst, _, err := pix.ValidateProcessArgs(dst, dstDims, src, roi)
	if err != nil {
		return pix.Dims{}, err
	}

	// Determine source region to process.
	startX, startY := 0, 0
	endX, endY := srcDims.Width, srcDims.Height
	if roi != nil {
		startX, startY = roi.Min.X, roi.Min.Y
		endX, endY = roi.Max.X, roi.Max.Y
	}

	srcStart := startX * inBytesPerPixel
	srcEnd := endX * inBytesPerPixel
	dstRowBytes := outWidth * outBytesPerPixel

	processRows := func(y0, y1 int) error {
		// Scratch for images without an in-memory buffer, one per band.
		scratch := make([]byte, srcDims.SizeRow())
		for y := y0; y < y1; y++ {
			srcRow, err := pix.ImageRow(scratch, src, y)
			if err != nil {
				return err
			}
			dstRowStart := (y - startY) * outStride
			f.Fn(dst[dstRowStart:dstRowStart+dstRowBytes], srcRow[srcStart:srcEnd])
		}
		return nil
	}

	rows := endY - startY
	workers := min(f.Workers, rows)
	if workers < 2 {
		if err := processRows(startY, endY); err != nil {
			return pix.Dims{}, err
		}
		return dstDims, nil
	}

	var g errgroup.Group
	band := (rows + workers - 1) / workers
	for y0 := startY; y0 < endY; y0 += band {
		y1 := min(y0+band, endY)
		g.Go(func() error { return processRows(y0, y1) })
	}
	if err := g.Wait(); err != nil {
		return pix.Dims{}, err
	}
	return dstDims, nil
}

type errorString string

func (e errorString) Error() string { return string(e) }
