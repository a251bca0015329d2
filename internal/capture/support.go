package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	supportOnce sync.Once
	supported   bool
)

// Supported probes once whether the environment can open an audio backend
// at all. The result is cached for the lifetime of the process.
func Supported() bool {
	supportOnce.Do(func() {
		devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			supported = false
			return
		}
		uninitializeContext(devCtx)
		supported = true
	})

	return supported
}

// Info describes an available capture device.
type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

// EnumerateDevices lists available capture devices.
func EnumerateDevices(ctx context.Context) ([]Info, error) {
	// An empty context is fine for just enumerating the available devices.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	infos := make([]Info, len(captureDevices))
	for i, mdi := range captureDevices {
		infos[i] = deviceInfo(mdi)
	}

	return infos, nil
}

func deviceInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, len(mdi.Formats))
	for i, mf := range mdi.Formats {
		formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
			malgo.SampleSizeInBytes(mf.Format),
			mf.Channels, mf.SampleRate)
	}

	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}
