package filters

import (
	_ "embed"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	pix "github.com/pixinvert/pixinvert"
)

//go:embed point-filter-gpu.wgsl
var pointShaderTemplate string

// transformMarker is replaced by the filter's WGSL transform function:
//
//	fn transform(c: vec4<f32>) -> vec4<f32>
const transformMarker = "// TRANSFORM_PLACEHOLDER"

const workgroupSide = 8 // Must match @workgroup_size in the shader.

var (
	errGPUNotInitialized = errorString("gpu filter not initialized")
	errGPUEmptyImage     = errorString("empty image")
	errGPUStride         = errorString("gpu filter requires tightly packed rows")
	errGPUSizeMismatch   = errorString("gpu filter destination size differs from source")
)

// PointFilterGPU runs a per-pixel WGSL transform over straight-alpha images.
// Concrete filters embed it and supply the transform to Init. Pixels reach
// the transform normalized to [0,1] and are packed back with rounding, so
// integral arithmetic such as 1-c is byte exact.
//
// The zero value is unusable until Init succeeds; Process then reports an error.
type PointFilterGPU struct {
	mu     sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	kernel *gpuKernel
	frame  *gpuFrame
	user   [2]float32 // Shader u.param0 and u.param1.
}

// gpuKernel holds the compiled transform. It does not depend on image size.
type gpuKernel struct {
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	uniforms *wgpu.Buffer
}

// gpuFrame holds the size dependent buffers, reused while the size holds.
type gpuFrame struct {
	width, height int
	in, out       *wgpu.Buffer
	staging       *wgpu.Buffer
}

func (fr *gpuFrame) size() uint64 { return uint64(fr.width) * uint64(fr.height) * 4 }

func (fr *gpuFrame) release() {
	for _, b := range []*wgpu.Buffer{fr.in, fr.out, fr.staging} {
		if b != nil {
			b.Release()
		}
	}
}

func (k *gpuKernel) release() {
	if k.uniforms != nil {
		k.uniforms.Release()
	}
	if k.layout != nil {
		k.layout.Release()
	}
	if k.pipeline != nil {
		k.pipeline.Release()
	}
	if k.module != nil {
		k.module.Release()
	}
}

// Init compiles transform into the compute pipeline used by Process.
// Calling Init again replaces the previous pipeline.
func (f *PointFilterGPU) Init(device *wgpu.Device, queue *wgpu.Queue, transform string) error {
	k, err := compileKernel(device, strings.Replace(pointShaderTemplate, transformMarker, transform, 1))
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseLocked()
	f.device, f.queue, f.kernel = device, queue, k
	return nil
}

func compileKernel(device *wgpu.Device, code string) (k *gpuKernel, err error) {
	k = &gpuKernel{}
	defer func() {
		if err != nil {
			k.release()
		}
	}()
	k.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling point shader: %w", err)
	}
	k.pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Compute: wgpu.ProgrammableStageDescriptor{Module: k.module, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating point pipeline: %w", err)
	}
	k.layout = k.pipeline.GetBindGroupLayout(0)
	k.uniforms, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  16, // width, height, param0, param1 as f32.
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating uniforms: %w", err)
	}
	return k, nil
}

// Process writes the transform of src into dst. Both images must have the
// same size and tightly packed rows (Stride == 4*width), as produced by
// [image.NewNRGBA]. dst may be src.
func (f *PointFilterGPU) Process(dst, src *image.NRGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kernel == nil {
		return errGPUNotInitialized
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	switch {
	case w == 0 || h == 0:
		return errGPUEmptyImage
	case dst.Rect.Dx() != w || dst.Rect.Dy() != h:
		return errGPUSizeMismatch
	case src.Stride != 4*w || dst.Stride != 4*w:
		return errGPUStride
	}
	fr, err := f.frameLocked(w, h)
	if err != nil {
		return err
	}
	n := int(fr.size())
	uniforms := [4]float32{float32(w), float32(h), f.user[0], f.user[1]}
	f.queue.WriteBuffer(f.kernel.uniforms, 0, wgpu.ToBytes(uniforms[:]))
	f.queue.WriteBuffer(fr.in, 0, src.Pix[:n])
	if err := f.submitLocked(fr); err != nil {
		return err
	}
	return f.downloadLocked(fr, dst.Pix[:n])
}

// frameLocked returns buffers for a w×h image, reallocating on size change.
func (f *PointFilterGPU) frameLocked(w, h int) (*gpuFrame, error) {
	if f.frame != nil && f.frame.width == w && f.frame.height == h {
		return f.frame, nil
	}
	if f.frame != nil {
		f.frame.release()
		f.frame = nil
	}
	fr := &gpuFrame{width: w, height: h}
	usages := []struct {
		dst   **wgpu.Buffer
		usage wgpu.BufferUsage
	}{
		{&fr.in, wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{&fr.out, wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc},
		{&fr.staging, wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst},
	}
	for _, u := range usages {
		b, err := f.device.CreateBuffer(&wgpu.BufferDescriptor{Size: fr.size(), Usage: u.usage})
		if err != nil {
			fr.release()
			return nil, fmt.Errorf("allocating %dx%d frame: %w", w, h, err)
		}
		*u.dst = b
	}
	f.frame = fr
	return fr, nil
}

// submitLocked records the compute pass and the copy into the staging
// buffer in a single command buffer.
func (f *PointFilterGPU) submitLocked(fr *gpuFrame) error {
	bind, err := f.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: f.kernel.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.kernel.uniforms, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: fr.in, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: fr.out, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("binding frame: %w", err)
	}
	defer bind.Release()

	enc, err := f.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("recording commands: %w", err)
	}
	defer enc.Release()

	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(f.kernel.pipeline)
	pass.SetBindGroup(0, bind, nil)
	pass.DispatchWorkgroups(groups(fr.width), groups(fr.height), 1)
	pass.End()
	pass.Release()
	enc.CopyBufferToBuffer(fr.out, 0, fr.staging, 0, fr.size())

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("recording commands: %w", err)
	}
	f.queue.Submit(cmd)
	return nil
}

// downloadLocked waits for the submitted work and copies the staging buffer into dst.
func (f *PointFilterGPU) downloadLocked(fr *gpuFrame, dst []byte) error {
	mapped := make(chan wgpu.BufferMapAsyncStatus, 1)
	fr.staging.MapAsync(wgpu.MapModeRead, 0, fr.size(), func(status wgpu.BufferMapAsyncStatus) {
		mapped <- status
	})
	f.device.Poll(true, nil)
	if status := <-mapped; status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("mapping result: %v", status)
	}
	copy(dst, fr.staging.GetMappedRange(0, uint(fr.size())))
	fr.staging.Unmap()
	return nil
}

func groups(n int) uint32 {
	return uint32((n + workgroupSide - 1) / workgroupSide)
}

// SetParam sets shader parameter u.param0 (index 0) or u.param1 (index 1).
func (f *PointFilterGPU) SetParam(index int, value float32) {
	if index < 0 || index >= len(f.user) {
		return
	}
	f.mu.Lock()
	f.user[index] = value
	f.mu.Unlock()
}

// Cleanup releases all GPU resources. The filter must be re-initialized before reuse.
func (f *PointFilterGPU) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseLocked()
}

func (f *PointFilterGPU) releaseLocked() {
	if f.frame != nil {
		f.frame.release()
		f.frame = nil
	}
	if f.kernel != nil {
		f.kernel.release()
		f.kernel = nil
	}
}

// Controls returns nil; concrete filters list their own.
func (f *PointFilterGPU) Controls() []pix.Control { return nil }
