package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quorumhq/minute/internal/capture"
)

const defaultFinalizeTimeout = 30 * time.Second

var (
	// ErrUnsupported means the environment has no usable audio backend.
	ErrUnsupported = errors.New("audio capture is not supported in this environment")
	// ErrPermissionDenied means the OS refused microphone access.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrBusy means a start was attempted while a handle is open or pending.
	ErrBusy = errors.New("a recording session is already in progress")
	// ErrFinalizeTimeout means the capture layer hung while producing the artifact.
	ErrFinalizeTimeout = errors.New("timed out finalizing recording")
	// ErrNotRecording means pause/resume was called with no matching session state.
	ErrNotRecording = errors.New("no recording in progress")
)

// Handle is the live capture resource the controller exclusively owns.
// At most one Handle is open at a time; it must be released on every exit
// path, including finalize failures.
type Handle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*capture.Artifact, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	IsRecording() bool
	Abort()
}

// Factory opens a fresh Handle configured with the given callbacks.
type Factory func(opts capture.Options) Handle

// Controller drives the recording lifecycle. It is the sole owner of the
// capture handle and the only component that moves phase between idle,
// recording, paused, and processing. All capture faults are absorbed here
// and translated into a store error plus a phase reset; nothing propagates
// into UI code.
type Controller struct {
	store           *Store
	newHandle       Factory
	probe           func() bool
	finalizeTimeout time.Duration
	relay           *levelRelay

	probeOnce sync.Once
	capable   bool

	mu      sync.Mutex
	handle  Handle
	pending bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSupportProbe overrides the capture capability check.
func WithSupportProbe(probe func() bool) Option {
	return func(c *Controller) {
		c.probe = probe
	}
}

// WithFinalizeTimeout bounds how long Stop waits for the capture layer to
// produce the artifact before force-releasing the handle.
func WithFinalizeTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.finalizeTimeout = timeout
	}
}

// NewController creates a controller writing into store and opening capture
// handles through factory. The level relay is initially bound to the store's
// level slot; BindLevelSink replaces the target at any time.
func NewController(store *Store, factory Factory, opts ...Option) *Controller {
	c := &Controller{
		store:           store,
		newHandle:       factory,
		probe:           capture.Supported,
		finalizeTimeout: defaultFinalizeTimeout,
	}
	c.relay = newLevelRelay(store.SetLevel)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BindLevelSink replaces the function level events are relayed into.
// Events emitted after this call target the new function, never a stale one
// captured earlier.
func (c *Controller) BindLevelSink(fn func(float64)) {
	c.relay.Rebind(fn)
}

// Supported reports the cached capability probe result.
func (c *Controller) Supported() bool {
	c.probeOnce.Do(func() {
		c.capable = c.probe()
	})
	return c.capable
}

// Recording reports whether a capture handle is currently open.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Start opens a fresh capture handle and moves phase to recording. Any
// previous error is cleared unconditionally so each attempt is independent.
// Returns ErrBusy if a handle is already open or a start is in flight.
func (c *Controller) Start(ctx context.Context) error {
	c.store.SetError(nil)

	if !c.Supported() {
		c.store.SetError(ErrUnsupported)
		return ErrUnsupported
	}

	c.mu.Lock()
	if c.handle != nil || c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.pending = true
	c.mu.Unlock()

	handle := c.newHandle(capture.Options{
		OnLevel: c.relay.Emit,
		OnError: c.onCaptureFault,
	})

	err := handle.Start(ctx)

	c.mu.Lock()
	c.pending = false
	if err == nil {
		c.handle = handle
	}
	c.mu.Unlock()

	if err != nil {
		err = classifyStartError(err)
		slog.Error("failed to start recording", "error", err)
		c.store.SetError(err)
		c.store.SetPhase(PhaseIdle)
		return err
	}

	c.store.SetPhase(PhaseRecording)
	slog.Info("recording started")

	return nil
}

// Stop finalizes the open handle and returns the produced artifact. Phase
// moves to processing before finalize begins; the handle reference is
// cleared on every outcome so a failed finalize can never leak the device.
// Calling Stop with no open handle is an idempotent no-op returning nil.
func (c *Controller) Stop(ctx context.Context) (*capture.Artifact, error) {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	if handle == nil {
		return nil, nil
	}

	c.store.SetPhase(PhaseProcessing)

	artifact, err := c.finalize(ctx, handle)

	c.mu.Lock()
	if c.handle == handle {
		c.handle = nil
	}
	c.mu.Unlock()

	if err != nil {
		slog.Error("failed to finalize recording", "error", err)
		c.store.SetError(err)
		c.store.SetPhase(PhaseIdle)
		return nil, err
	}

	slog.Info("recording finalized",
		"duration", artifact.Duration,
		"bytes", len(artifact.Data))

	return artifact, nil
}

// finalize asks the handle for the artifact, bounded by the configured
// timeout. A hung capture layer force-releases the handle in the background.
func (c *Controller) finalize(ctx context.Context, handle Handle) (*capture.Artifact, error) {
	type stopResult struct {
		artifact *capture.Artifact
		err      error
	}

	resultC := make(chan stopResult, 1)
	go func() {
		artifact, err := handle.Stop(ctx)
		resultC <- stopResult{artifact: artifact, err: err}
	}()

	timer := time.NewTimer(c.finalizeTimeout)
	defer timer.Stop()

	select {
	case res := <-resultC:
		return res.artifact, res.err
	case <-timer.C:
		go handle.Abort()
		return nil, ErrFinalizeTimeout
	case <-ctx.Done():
		go handle.Abort()
		return nil, ctx.Err()
	}
}

// Toggle stops when a handle is open, starts otherwise. Only the stop path
// ever produces an artifact.
func (c *Controller) Toggle(ctx context.Context) (*capture.Artifact, error) {
	c.mu.Lock()
	open := c.handle != nil
	c.mu.Unlock()

	if open {
		return c.Stop(ctx)
	}

	return nil, c.Start(ctx)
}

// Pause suspends the open capture without finalizing it.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	if handle == nil || !c.store.Phase().CanTransition(PhasePaused) {
		return ErrNotRecording
	}

	if err := handle.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause recording: %w", err)
	}

	c.store.SetPhase(PhasePaused)
	slog.Info("recording paused")

	return nil
}

// Resume restarts a paused capture.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	if handle == nil || c.store.Phase() != PhasePaused {
		return ErrNotRecording
	}

	if err := handle.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume recording: %w", err)
	}

	c.store.SetPhase(PhaseRecording)
	slog.Info("recording resumed")

	return nil
}

// onCaptureFault handles asynchronous capture-layer faults. Faults are
// terminal for the current session: the handle is released, the error is
// surfaced, and phase returns to idle. No automatic retry.
func (c *Controller) onCaptureFault(err error) {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle == nil {
		// Stale fault from a handle already torn down.
		return
	}

	handle.Abort()

	slog.Error("capture fault, session aborted", "error", err)
	c.store.SetError(err)
	c.store.SetPhase(PhaseIdle)
}

// classifyStartError maps a device acquisition failure to a user-facing
// error. Permission refusals get a friendlier message than raw device
// faults.
func classifyStartError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return ErrPermissionDenied
	}

	return fmt.Errorf("failed to start recording: %w", err)
}
