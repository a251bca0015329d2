// Package capture owns the live microphone stream: opening the device,
// buffering raw PCM, emitting loudness telemetry, and encoding the final
// MP3 artifact when the stream is stopped.
package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/gen2brain/malgo"
)

// Recorder is a single live capture session over the default microphone.
// It is exclusively owned by its creator: Start opens the device, Stop
// finalizes and releases it. A Recorder must not be reused after Stop or
// Abort.
type Recorder struct {
	conf Config
	opts Options

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device

	mu        sync.Mutex
	pcm       []byte
	paused    bool
	faulted   bool
	startedAt time.Time
	window    *levelWindow
}

// NewRecorder creates a recorder for a single capture session.
func NewRecorder(conf Config, opts Options) *Recorder {
	return &Recorder{
		conf:   conf.WithDefaults(),
		opts:   opts,
		window: newLevelWindow(8),
	}
}

// Start opens the microphone and begins buffering samples. It returns once
// the device is running; sample delivery happens on the device's own thread.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	started := r.mgDevice != nil
	r.mu.Unlock()

	if started {
		return errors.New("recorder already started")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("malgo audio device log", "msg", msg)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devConf := malgo.DefaultDeviceConfig(malgo.Capture)
	devConf.Capture.Format = malgo.FormatS16
	devConf.Capture.Channels = uint32(r.conf.Channels)
	devConf.SampleRate = uint32(r.conf.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			r.ingest(samples)
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devConf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	if err := mgDevice.Start(); err != nil {
		mgDevice.Uninit()
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	r.mu.Lock()
	r.mgCtx = mgCtx
	r.mgDevice = mgDevice
	r.startedAt = time.Now()
	r.mu.Unlock()

	return nil
}

// ingest runs on the device data thread for every delivered packet.
func (r *Recorder) ingest(samples []byte) {
	r.mu.Lock()
	if r.paused || r.faulted {
		r.mu.Unlock()
		return
	}

	r.pcm = append(r.pcm, samples...)
	bytesBuffered := int64(len(r.pcm))
	elapsed := time.Since(r.startedAt)
	r.mu.Unlock()

	level := packetLevel(samples)
	r.window.Push(level)

	if r.opts.OnLevel != nil {
		r.opts.OnLevel(r.window.Average())
	}

	// Limit checks are terminal faults: the owner decides what to do next.
	if bytesBuffered >= r.conf.MaxBytes {
		r.fault(ErrMaxBytesReached)
		return
	}

	if elapsed >= r.conf.MaxDuration {
		r.fault(ErrMaxDurationReached)
	}
}

// fault flags the capture as dead and hands the error to the owner. Delivery
// happens on a fresh goroutine: fault is reached from inside the malgo data
// callback, and the owner's reaction is to stop the device, which miniaudio
// forbids from the callback thread.
func (r *Recorder) fault(err error) {
	r.mu.Lock()
	already := r.faulted
	r.faulted = true
	r.mu.Unlock()

	if already {
		return
	}

	slog.Info("capture fault", "error", err)
	if r.opts.OnError != nil {
		go r.opts.OnError(err)
	}
}

// IsRecording reports whether the device is open and actively sampling.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	dev := r.mgDevice
	paused := r.paused
	r.mu.Unlock()

	if dev == nil {
		return false
	}

	return dev.IsStarted() && !paused
}

// Pause suspends sample delivery without releasing the device.
func (r *Recorder) Pause(ctx context.Context) error {
	r.mu.Lock()
	dev := r.mgDevice
	if dev != nil {
		r.paused = true
	}
	r.mu.Unlock()

	if dev == nil {
		return errors.New("recorder not started")
	}

	if err := dev.Stop(); err != nil {
		return fmt.Errorf("failed to pause malgo device: %w", err)
	}

	return nil
}

// Resume restarts sample delivery after a Pause.
func (r *Recorder) Resume(ctx context.Context) error {
	r.mu.Lock()
	dev := r.mgDevice
	r.mu.Unlock()

	if dev == nil {
		return errors.New("recorder not started")
	}

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to resume malgo device: %w", err)
	}

	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()

	return nil
}

// Stop halts the device, releases its resources, and encodes the buffered
// PCM into the final MP3 artifact. The recorder is spent afterwards even
// when encoding fails.
func (r *Recorder) Stop(ctx context.Context) (*Artifact, error) {
	dev, devCtx := r.claimResources()
	if dev == nil {
		return nil, errors.New("recorder not started")
	}

	stopErr := dev.Stop()
	releaseDevice(dev, devCtx)

	if stopErr != nil {
		return nil, fmt.Errorf("failed to stop malgo device: %w", stopErr)
	}

	r.mu.Lock()
	pcm := r.pcm
	r.pcm = nil
	r.mu.Unlock()

	data, err := encodeMP3(pcm, r.conf.SampleRate, r.conf.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MP3: %w", err)
	}

	return &Artifact{
		Data:       data,
		MIME:       "audio/mpeg",
		Duration:   pcmDuration(len(pcm), r.conf.SampleRate, r.conf.Channels),
		SampleRate: r.conf.SampleRate,
		Channels:   r.conf.Channels,
	}, nil
}

// Abort tears the device down without producing an artifact. Safe to call
// on an already-released recorder and safe concurrently with Stop.
func (r *Recorder) Abort() {
	dev, devCtx := r.claimResources()

	r.mu.Lock()
	r.pcm = nil
	r.mu.Unlock()

	if dev == nil {
		return
	}

	if err := dev.Stop(); err != nil {
		slog.Warn("failed to stop malgo device on abort", "error", err)
	}

	releaseDevice(dev, devCtx)
}

// claimResources takes exclusive ownership of the device handles. Exactly one
// caller observes non-nil resources, so an Abort racing a slow Stop can never
// double-release the device or its context.
func (r *Recorder) claimResources() (*malgo.Device, *malgo.AllocatedContext) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, devCtx := r.mgDevice, r.mgCtx
	r.mgDevice = nil
	r.mgCtx = nil

	return dev, devCtx
}

func releaseDevice(dev *malgo.Device, devCtx *malgo.AllocatedContext) {
	dev.Uninit()
	uninitializeContext(devCtx)
}

// pcmDuration converts a buffered S16LE byte count into audio time. Paused
// stretches buffer nothing, so this reflects recorded audio only.
func pcmDuration(n, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}

	frames := n / (2 * channels)

	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// encodeMP3 converts buffered S16LE PCM into an MP3 payload.
func encodeMP3(pcm []byte, sampleRate, channels int) ([]byte, error) {
	numSamples := len(pcm) / 2
	samples := make([]int16, numSamples)

	reader := bytes.NewReader(pcm[:numSamples*2])
	if err := binary.Read(reader, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to read PCM samples: %w", err)
	}

	// shine-mp3 misbehaves on mono input, so duplicate mono into stereo.
	if channels == 1 {
		stereo := make([]int16, numSamples*2)
		for i, sample := range samples {
			stereo[i*2] = sample
			stereo[i*2+1] = sample
		}
		samples = stereo
		channels = 2
	}

	encoder := mp3encoder.NewEncoder(sampleRate, channels)

	var out bytes.Buffer
	if err := encoder.Write(&out, samples); err != nil {
		return nil, fmt.Errorf("failed to write MP3 frames: %w", err)
	}

	return out.Bytes(), nil
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
