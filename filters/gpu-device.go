package filters

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

var errNoWebGPU = errorString("webgpu not available")

// OpenDevice requests a low power adapter from the default WebGPU instance
// and opens a device on it. Callers release the device when done.
func OpenDevice() (*wgpu.Device, *wgpu.Queue, error) {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, nil, errNoWebGPU
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceLowPower,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("requesting adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("requesting device: %w", err)
	}
	return device, device.GetQueue(), nil
}
