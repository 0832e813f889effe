// Package inverter loads an image, inverts its color channels keeping alpha
// intact and atomically stores the result as PNG.
package inverter

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/google/renameio/v2"
	pix "github.com/pixinvert/pixinvert"
	"github.com/pixinvert/pixinvert/filters"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DestSuffix is appended to the source base name to form the destination name.
const DestSuffix = "-white"

// DestPath returns the PNG sibling of src that holds its inverted variant,
// i.e: "logo/K.png" becomes "logo/K-white.png".
func DestPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + DestSuffix + ".png"
}

// Accelerator inverts whole straight-alpha images off the CPU.
// [filters.InvertFilterGPU] is one.
type Accelerator interface {
	ProcessImage(img *image.NRGBA) (*image.NRGBA, error)
}

var _ Accelerator = (*filters.InvertFilterGPU)(nil)

// Options configures a [Run].
type Options struct {
	// Workers is the number of row bands inverted concurrently on the CPU. Zero or one runs sequentially.
	Workers int
	// GPU, when set, inverts the image first. If it fails the CPU filter is used instead.
	GPU Accelerator
	// Out receives the confirmation line. Nil discards it.
	Out io.Writer
}

// Result describes a completed [Run].
type Result struct {
	Src    string
	Dst    string
	Width  int
	Height int
}

// Run decodes src, inverts its RGB channels and writes the result to dst as PNG.
// Failures are reported as [*DecodeError], [*InvertError] or [*EncodeError]. dst is either
// replaced completely or left untouched.
func Run(src, dst string, opts Options) (Result, error) {
	img, err := DecodeFile(src)
	if err != nil {
		return Result{}, err
	}
	inverted, err := Invert(img, opts)
	if err != nil {
		return Result{}, err
	}
	if err := EncodeFile(dst, inverted); err != nil {
		return Result{}, err
	}
	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Saved %s\n", dst)
	}
	return Result{
		Src:    src,
		Dst:    dst,
		Width:  inverted.Rect.Dx(),
		Height: inverted.Rect.Dy(),
	}, nil
}

// DecodeFile opens and decodes the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP are recognized.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// Invert returns a new straight-alpha image with every color channel of img
// replaced by 255-v. Alpha is copied unchanged. Sources without alpha are
// treated as fully opaque. opts.Out is ignored.
func Invert(img image.Image, opts Options) (*image.NRGBA, error) {
	src := pix.ToNRGBA(img)
	if src.Rect.Empty() {
		return image.NewNRGBA(src.Rect), nil
	}
	if opts.GPU != nil {
		if dst, err := opts.GPU.ProcessImage(src); err == nil {
			return dst, nil
		}
	}
	dst := image.NewNRGBA(src.Rect)
	f := filters.NewInvert(filters.InvertRGB)
	f.Workers = opts.Workers
	if _, err := f.Process(dst.Pix, pix.NewNRGBA(src), nil); err != nil {
		return nil, &InvertError{Err: err}
	}
	return dst, nil
}

// EncodeFile writes img to path as PNG through a temporary file in the same
// directory that is renamed over path only once fully written.
func EncodeFile(path string, img image.Image) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	defer pf.Cleanup()

	bw := bufio.NewWriter(pf)
	if err := png.Encode(bw, img); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}
