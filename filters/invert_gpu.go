package filters

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	pix "github.com/pixinvert/pixinvert"
)

const invertTransform = `
fn transform(c: vec4<f32>) -> vec4<f32> {
    if (u.param0 < 0.5) {
        return vec4<f32>(1.0 - c.r, 1.0 - c.g, 1.0 - c.b, c.a);
    }
    return vec4<f32>(1.0) - c;
}
`

// InvertFilterGPU computes the same inversion as [NewInvert] with a WebGPU compute shader.
type InvertFilterGPU struct {
	PointFilterGPU
	mode  InvertMode
	ctrls []pix.Control
}

// NewInvertGPU creates a GPU-accelerated color inversion filter.
func NewInvertGPU(device *wgpu.Device, queue *wgpu.Queue, mode InvertMode) (*InvertFilterGPU, error) {
	f := &InvertFilterGPU{}
	if err := f.Init(device, queue, invertTransform); err != nil {
		return nil, err
	}
	f.SetMode(mode)
	f.ctrls = []pix.Control{
		&pix.ControlEnum[InvertMode]{
			Name:        "Channels",
			Description: "Channels replaced by their complement",
			Value:       mode,
			ValidValues: []InvertMode{InvertRGB, InvertRGBA},
			OnChange: func(m InvertMode) error {
				f.SetMode(m)
				return nil
			},
		},
	}
	return f, nil
}

// SetMode sets which channels are inverted.
func (f *InvertFilterGPU) SetMode(mode InvertMode) {
	f.mode = mode
	f.SetParam(0, float32(mode))
}

// Mode returns the current invert mode.
func (f *InvertFilterGPU) Mode() InvertMode {
	return f.mode
}

// Controls returns the filter's adjustable parameters.
func (f *InvertFilterGPU) Controls() []pix.Control {
	return f.ctrls
}

// ProcessImage returns a new image holding the inversion of img.
// img must have tightly packed rows, see [PointFilterGPU.Process].
func (f *InvertFilterGPU) ProcessImage(img *image.NRGBA) (*image.NRGBA, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	if err := f.Process(dst, img); err != nil {
		return nil, err
	}
	return dst, nil
}
