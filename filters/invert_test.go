package filters

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	pix "github.com/pixinvert/pixinvert"
)

// GenerateRandomSquaresNRGBA creates an image with random colored squares of
// random opacity on an opaque black background.
func GenerateRandomSquaresNRGBA(rng *rand.Rand, width, height, numSquares, minSize, maxSize int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	// Fill with black (alpha=255)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	for i := 0; i < numSquares; i++ {
		size := minSize + rng.Intn(maxSize-minSize+1)
		x := rng.Intn(width)
		y := rng.Intn(height)
		c := color.NRGBA{
			R: uint8(rng.Intn(256)),
			G: uint8(rng.Intn(256)),
			B: uint8(rng.Intn(256)),
			A: uint8(rng.Intn(256)),
		}
		fillRectNRGBA(img, x, y, size, size, c)
	}
	return img
}

func fillRectNRGBA(img *image.NRGBA, x, y, w, h int, c color.NRGBA) {
	bounds := img.Bounds()
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				img.SetNRGBA(px, py, c)
			}
		}
	}
}

func processCPU(t *testing.T, f pix.Filter, src *image.NRGBA) *image.NRGBA {
	t.Helper()
	dst := image.NewNRGBA(src.Bounds())
	dims, err := f.Process(dst.Pix, pix.NewNRGBA(src), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if dims.Width != src.Bounds().Dx() || dims.Height != src.Bounds().Dy() {
		t.Fatalf("dims %dx%d, want %dx%d", dims.Width, dims.Height, src.Bounds().Dx(), src.Bounds().Dy())
	}
	return dst
}

func checkInverted(t *testing.T, got, src *image.NRGBA, mode InvertMode) {
	t.Helper()
	if got.Bounds().Size() != src.Bounds().Size() {
		t.Fatalf("size changed: got %v, want %v", got.Bounds().Size(), src.Bounds().Size())
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*got.Stride + x*4
			srcIdx := y*src.Stride + x*4
			for c := 0; c < 3; c++ {
				expected := 255 - src.Pix[srcIdx+c]
				if got.Pix[idx+c] != expected {
					t.Fatalf("pixel (%d,%d) channel %d: got %d, want %d", x, y, c, got.Pix[idx+c], expected)
				}
			}
			wantA := src.Pix[srcIdx+3]
			if mode == InvertRGBA {
				wantA = 255 - wantA
			}
			if got.Pix[idx+3] != wantA {
				t.Fatalf("pixel (%d,%d) alpha: got %d, want %d", x, y, got.Pix[idx+3], wantA)
			}
		}
	}
}

func TestInvertExamples(t *testing.T) {
	tests := []struct {
		name string
		in   []color.NRGBA
		want []color.NRGBA
	}{
		{
			name: "opaque and transparent",
			in:   []color.NRGBA{{10, 20, 30, 255}, {0, 0, 0, 0}},
			want: []color.NRGBA{{245, 235, 225, 255}, {255, 255, 255, 0}},
		},
		{
			name: "white",
			in:   []color.NRGBA{{255, 255, 255, 255}},
			want: []color.NRGBA{{0, 0, 0, 255}},
		},
		{
			name: "translucent",
			in:   []color.NRGBA{{128, 1, 254, 77}},
			want: []color.NRGBA{{127, 254, 1, 77}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, len(tt.in), 1))
			for x, c := range tt.in {
				src.SetNRGBA(x, 0, c)
			}
			got := processCPU(t, NewInvert(InvertRGB), src)
			for x, want := range tt.want {
				if c := got.NRGBAAt(x, 0); c != want {
					t.Errorf("pixel %d: got %v, want %v", x, c, want)
				}
			}
		})
	}
}

func TestInvert(t *testing.T) {
	rng := rand.New(rand.NewSource(777))
	src := GenerateRandomSquaresNRGBA(rng, 128, 96, 15, 10, 30)
	for _, mode := range []InvertMode{InvertRGB, InvertRGBA} {
		t.Run(mode.String(), func(t *testing.T) {
			checkInverted(t, processCPU(t, NewInvert(mode), src), src, mode)
		})
	}
}

func TestInvertTwice(t *testing.T) {
	rng := rand.New(rand.NewSource(999))
	src := GenerateRandomSquaresNRGBA(rng, 64, 64, 10, 8, 20)
	f := NewInvert(InvertRGB)
	restored := processCPU(t, f, processCPU(t, f, src))
	if !bytes.Equal(restored.Pix, src.Pix) {
		t.Fatal("inverting twice did not restore the original")
	}
}

func TestInvertInPlace(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	src := GenerateRandomSquaresNRGBA(rng, 33, 17, 6, 2, 9)
	img := image.NewNRGBA(src.Bounds())
	copy(img.Pix, src.Pix)

	dims, err := NewInvert(InvertRGB).Process(nil, pix.NewNRGBA(img), nil)
	if err != nil {
		t.Fatalf("in-place Process: %v", err)
	}
	if dims.Stride != img.Stride {
		t.Errorf("stride: got %d, want %d", dims.Stride, img.Stride)
	}
	checkInverted(t, img, src, InvertRGB)
}

func TestInvertParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	src := GenerateRandomSquaresNRGBA(rng, 50, 101, 20, 4, 25)
	want := processCPU(t, NewInvert(InvertRGB), src)
	for _, workers := range []int{2, 3, 7, 101, 500} {
		f := NewInvert(InvertRGB)
		f.Workers = workers
		got := processCPU(t, f, src)
		if !bytes.Equal(got.Pix, want.Pix) {
			t.Errorf("workers=%d: output differs from sequential run", workers)
		}
	}
}

// readerOnly hides the buffer of an image so filters take the ReadAt path.
type readerOnly struct{ pix.Image }

func TestInvertReadAtFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	src := GenerateRandomSquaresNRGBA(rng, 20, 30, 5, 2, 10)
	for _, workers := range []int{1, 4} {
		f := NewInvert(InvertRGB)
		f.Workers = workers
		dst := image.NewNRGBA(src.Bounds())
		_, err := f.Process(dst.Pix, readerOnly{pix.NewNRGBA(src)}, nil)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		checkInverted(t, dst, src, InvertRGB)
	}
}

func TestInvertROI(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := GenerateRandomSquaresNRGBA(rng, 40, 30, 8, 4, 12)
	roi := image.Rect(5, 7, 25, 19)
	dst := image.NewNRGBA(image.Rect(0, 0, roi.Dx(), roi.Dy()))

	dims, err := NewInvert(InvertRGB).Process(dst.Pix, pix.NewNRGBA(src), &roi)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if dims.Width != roi.Dx() || dims.Height != roi.Dy() {
		t.Fatalf("dims %dx%d, want %dx%d", dims.Width, dims.Height, roi.Dx(), roi.Dy())
	}
	checkInverted(t, dst, src.SubImage(roi).(*image.NRGBA), InvertRGB)
}

func TestInvertControls(t *testing.T) {
	f := NewInvert(InvertRGB)
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})

	ctrl := pix.FindControl(f.Controls(), "Channels")
	if ctrl == nil {
		t.Fatal("missing Channels control")
	}
	if err := ctrl.ChangeValue(InvertRGBA); err != nil {
		t.Fatalf("ChangeValue: %v", err)
	}
	if got := ctrl.ActualValue(); got != InvertRGBA {
		t.Errorf("ActualValue: got %v, want %v", got, InvertRGBA)
	}
	if c := processCPU(t, f, src).NRGBAAt(0, 0); c != (color.NRGBA{254, 253, 252, 251}) {
		t.Errorf("RGBA mode: got %v", c)
	}
	if err := ctrl.ChangeValue(InvertMode(9)); err == nil {
		t.Error("expected error for invalid mode")
	}
	if err := ctrl.ChangeValue("RGB"); err == nil {
		t.Error("expected error for wrongly typed value")
	}

	workers := pix.FindControl(f.Controls(), "Workers")
	if workers == nil {
		t.Fatal("missing Workers control")
	}
	maxWorkers := workers.(*pix.ControlOrdered[int]).Max
	if err := workers.ChangeValue(maxWorkers); err != nil {
		t.Fatalf("ChangeValue(%d): %v", maxWorkers, err)
	}
	if f.Workers != maxWorkers {
		t.Errorf("Workers: got %d, want %d", f.Workers, maxWorkers)
	}
	if err := workers.ChangeValue(0); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestPointFilterErrors(t *testing.T) {
	img := pix.NewNRGBA(image.NewNRGBA(image.Rect(0, 0, 4, 4)))

	f := &PointFilter{In: pix.ShapeNRGBA8888, Out: pix.ShapeNRGBA8888}
	if _, err := f.Process(nil, img, nil); !errors.Is(err, errNilPixelFunc) {
		t.Errorf("nil Fn: got %v", err)
	}

	f = &PointFilter{In: pix.ShapeRGBA8888, Out: pix.ShapeRGBA8888, Fn: func(dst, src []byte) {}}
	if _, err := f.Process(nil, img, nil); !errors.Is(err, errShapeMismatch) {
		t.Errorf("shape mismatch: got %v", err)
	}

	inv := NewInvert(InvertRGB)
	if _, err := inv.Process(make([]byte, 8), img, nil); err == nil {
		t.Error("expected error for short destination buffer")
	}
	roi := image.Rect(0, 0, 2, 2)
	if _, err := inv.Process(nil, img, &roi); err == nil {
		t.Error("expected error for in-place ROI")
	}
}
