package capture

import (
	"errors"
	"time"
)

const (
	defaultSampleRate = 16_000 // Whisper native sample rate is 16kHz
	defaultChannels   = 1      // Whisper native audio is mono

	defaultMaxDuration = 2 * time.Hour
	defaultMaxBytes    = 512 * 1024 * 1024
)

// Sentinel errors for capture limit detection. Both are terminal for the
// running capture and are delivered through Options.OnError.
var (
	ErrMaxDurationReached = errors.New("max duration reached")
	ErrMaxBytesReached    = errors.New("max bytes reached")
)

// Config describes how the microphone should be sampled and when a running
// capture must be force-ended.
type Config struct {
	SampleRate  int
	Channels    int
	MaxDuration time.Duration
	MaxBytes    int64
}

// WithDefaults fills zero fields with sane defaults.
func (c Config) WithDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = defaultChannels
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = defaultMaxDuration
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	return c
}

// Options carries the callbacks a recorder owner supplies at construction.
// OnLevel receives a normalized 0..1 loudness value at device-driven
// intervals. OnError receives any capture fault; all faults are terminal.
type Options struct {
	OnLevel func(level float64)
	OnError func(err error)
}
