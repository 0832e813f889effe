package filters

import (
	"runtime"

	pix "github.com/pixinvert/pixinvert"
)

// InvertMode selects which channels an invert filter replaces with 255-v.
type InvertMode int

const (
	// InvertRGB inverts color channels and leaves alpha untouched.
	InvertRGB InvertMode = iota
	// InvertRGBA inverts all four channels, alpha included.
	InvertRGBA
)

func (m InvertMode) String() string {
	switch m {
	case InvertRGB:
		return "RGB"
	case InvertRGBA:
		return "RGBA"
	default:
		return "Unknown"
	}
}

// InvertRow writes the inversion of the straight-alpha RGBA row src into dst.
// dst and src may be the same slice.
func InvertRow(dst, src []byte, mode InvertMode) {
	if mode == InvertRGBA {
		for i := range src {
			dst[i] = 255 - src[i]
		}
		return
	}
	for i := 0; i+3 < len(src); i += 4 {
		dst[i] = 255 - src[i]
		dst[i+1] = 255 - src[i+1]
		dst[i+2] = 255 - src[i+2]
		dst[i+3] = src[i+3]
	}
}

// NewInvert creates a filter that inverts colors of [pix.ShapeNRGBA8888] images.
// The returned filter runs sequentially; see the "Workers" control.
func NewInvert(mode InvertMode) *PointFilter {
	filterMode := mode
	f := &PointFilter{
		In:  pix.ShapeNRGBA8888,
		Out: pix.ShapeNRGBA8888,
	}
	f.Fn = func(dst, src []byte) {
		InvertRow(dst, src, filterMode)
	}
	f.Ctrls = []pix.Control{
		&pix.ControlEnum[InvertMode]{
			Name:        "Channels",
			Description: "Channels replaced by their complement",
			Value:       filterMode,
			ValidValues: []InvertMode{InvertRGB, InvertRGBA},
			OnChange: func(m InvertMode) error {
				filterMode = m
				return nil
			},
		},
		&pix.ControlOrdered[int]{
			Name:        "Workers",
			Description: "Row bands processed concurrently",
			Value:       1,
			Min:         1,
			Max:         max(1, runtime.GOMAXPROCS(0)),
			Step:        1,
			OnChange: func(n int) error {
				f.Workers = n
				return nil
			},
		},
	}
	return f
}
