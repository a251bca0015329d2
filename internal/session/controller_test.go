package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/minute/internal/capture"
)

// fakeHandle is a scriptable capture handle. The flags are atomic because
// the controller aborts a timed-out handle on a background goroutine while
// its Stop is still in flight.
type fakeHandle struct {
	opts capture.Options

	startErr  error
	stopErr   error
	stopDelay time.Duration
	artifact  *capture.Artifact

	started atomic.Bool
	stopped atomic.Bool
	aborted atomic.Bool
	paused  atomic.Bool

	abortOverlappedStop atomic.Bool
}

func (h *fakeHandle) Start(_ context.Context) error {
	if h.startErr != nil {
		return h.startErr
	}
	h.started.Store(true)
	return nil
}

func (h *fakeHandle) Stop(_ context.Context) (*capture.Artifact, error) {
	if h.stopDelay > 0 {
		time.Sleep(h.stopDelay)
	}
	h.stopped.Store(true)
	if h.stopErr != nil {
		return nil, h.stopErr
	}
	return h.artifact, nil
}

func (h *fakeHandle) Pause(_ context.Context) error  { h.paused.Store(true); return nil }
func (h *fakeHandle) Resume(_ context.Context) error { h.paused.Store(false); return nil }

func (h *fakeHandle) IsRecording() bool {
	return h.started.Load() && !h.paused.Load() && !h.stopped.Load()
}

func (h *fakeHandle) Abort() {
	if !h.stopped.Load() {
		h.abortOverlappedStop.Store(true)
	}
	h.aborted.Store(true)
}

// fixture wires a controller to a store and a scripted handle sequence.
type fixture struct {
	store      *Store
	controller *Controller
	handles    []*fakeHandle
	opened     int
}

func newFixture(t *testing.T, prototype func() *fakeHandle, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{store: NewStore()}
	factory := func(captureOpts capture.Options) Handle {
		h := prototype()
		h.opts = captureOpts
		f.handles = append(f.handles, h)
		f.opened++
		return h
	}

	opts = append([]Option{WithSupportProbe(func() bool { return true })}, opts...)
	f.controller = NewController(f.store, factory, opts...)

	return f
}

func okHandle() *fakeHandle {
	return &fakeHandle{artifact: &capture.Artifact{Data: []byte("mp3"), MIME: "audio/mpeg"}}
}

func TestController_StartStopHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))
	assert.Equal(t, PhaseRecording, f.store.Phase())
	assert.True(t, f.controller.Recording())

	// Level events flow through the relay into the store.
	f.handles[0].opts.OnLevel(0.6)
	assert.InDelta(t, 0.6, f.store.Level(), 1e-9)

	// Observe the transient processing window via subscription.
	var phasesSeen []Phase
	f.store.Subscribe(func(snap Snapshot) {
		phasesSeen = append(phasesSeen, snap.Phase)
	})

	artifact, err := f.controller.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []byte("mp3"), artifact.Data)

	assert.Contains(t, phasesSeen, PhaseProcessing)
	assert.False(t, f.controller.Recording(), "handle must be cleared after stop")
}

func TestController_StopWithoutSessionIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)

	f.store.SetError(errors.New("previous error"))
	before := f.store.Snapshot()

	artifact, err := f.controller.Stop(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, artifact)

	after := f.store.Snapshot()
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.Err, after.Err)
	assert.Zero(t, f.opened)
}

func TestController_RepeatedCyclesHoldNoHandle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.controller.Start(ctx))
		artifact, err := f.controller.Stop(ctx)
		require.NoError(t, err)
		require.NotNil(t, artifact)
		assert.False(t, f.controller.Recording())
	}

	assert.Equal(t, 3, f.opened, "each cycle opens a fresh handle")
}

func TestController_UnsupportedEnvironment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle, WithSupportProbe(func() bool { return false }))

	err := f.controller.Start(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.Zero(t, f.opened, "no handle may be opened when unsupported")
}

func TestController_PermissionDeniedGetsFriendlyError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func() *fakeHandle {
		return &fakeHandle{startErr: errors.New("Permission denied by system")}
	})

	err := f.controller.Start(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "microphone access denied", err.Error())
	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.False(t, f.controller.Recording())
}

func TestController_GenericStartFailureSurfacesRawMessage(t *testing.T) {
	t.Parallel()

	deviceErr := errors.New("device initialization failed")
	f := newFixture(t, func() *fakeHandle {
		return &fakeHandle{startErr: deviceErr}
	})

	err := f.controller.Start(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, deviceErr)
	assert.Equal(t, PhaseIdle, f.store.Phase())
}

func TestController_FailedStartAllowsRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	f := newFixture(t, func() *fakeHandle {
		attempts++
		if attempts == 1 {
			return &fakeHandle{startErr: errors.New("device busy")}
		}
		return okHandle()
	})
	ctx := context.Background()

	require.Error(t, f.controller.Start(ctx))
	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.Error(t, f.store.Err())

	// A fresh attempt clears the prior error and succeeds.
	require.NoError(t, f.controller.Start(ctx))
	assert.Equal(t, PhaseRecording, f.store.Phase())
	assert.NoError(t, f.store.Err())
}

func TestController_FailedFinalizeClearsHandle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func() *fakeHandle {
		h := okHandle()
		h.stopErr = errors.New("encoder exploded")
		return h
	})
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))

	artifact, err := f.controller.Stop(ctx)
	require.Error(t, err)
	assert.Nil(t, artifact)
	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.Error(t, f.store.Err())
	assert.False(t, f.controller.Recording(), "handle must be cleared even on finalize failure")

	// Next start succeeds without "device busy" symptoms.
	f.handles = nil
	require.NoError(t, f.controller.Start(ctx))
	assert.Equal(t, PhaseRecording, f.store.Phase())
}

func TestController_FinalizeTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func() *fakeHandle {
		h := okHandle()
		h.stopDelay = 500 * time.Millisecond
		return h
	}, WithFinalizeTimeout(20*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))

	artifact, err := f.controller.Stop(ctx)
	require.ErrorIs(t, err, ErrFinalizeTimeout)
	assert.Nil(t, artifact)
	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.False(t, f.controller.Recording())

	// The hung handle is force-released in the background, while its Stop
	// is still in flight. The handle must tolerate that overlap.
	require.Eventually(t, func() bool {
		return f.handles[0].aborted.Load()
	}, time.Second, 10*time.Millisecond, "timed-out handle must be aborted")
	assert.True(t, f.handles[0].abortOverlappedStop.Load(),
		"abort should land while the slow stop is still running")
}

func TestController_StartWhileRecordingIsBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))

	err := f.controller.Start(ctx)
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, f.opened, "busy start must not open a second device")
}

func TestController_CaptureFaultResetsToIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))

	f.handles[0].opts.OnError(capture.ErrMaxDurationReached)

	assert.Equal(t, PhaseIdle, f.store.Phase())
	assert.ErrorIs(t, f.store.Err(), capture.ErrMaxDurationReached)
	assert.True(t, f.handles[0].aborted.Load(), "faulted handle must be released")
	assert.False(t, f.controller.Recording())

	// Recovery: the operator can start a fresh session.
	require.NoError(t, f.controller.Start(ctx))
	assert.Equal(t, PhaseRecording, f.store.Phase())
}

func TestController_ToggleRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	// Idle toggle starts; no artifact on the start path.
	artifact, err := f.controller.Toggle(ctx)
	require.NoError(t, err)
	assert.Nil(t, artifact)
	assert.Equal(t, PhaseRecording, f.store.Phase())

	// Second toggle behaves as stop and yields the artifact.
	artifact, err = f.controller.Toggle(ctx)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []byte("mp3"), artifact.Data)
	assert.False(t, f.controller.Recording())
}

func TestController_PauseResume(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	require.ErrorIs(t, f.controller.Pause(ctx), ErrNotRecording)

	require.NoError(t, f.controller.Start(ctx))
	require.NoError(t, f.controller.Pause(ctx))
	assert.Equal(t, PhasePaused, f.store.Phase())
	assert.True(t, f.controller.Recording(), "pause keeps the handle open")

	require.NoError(t, f.controller.Resume(ctx))
	assert.Equal(t, PhaseRecording, f.store.Phase())

	artifact, err := f.controller.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, artifact)
}

func TestController_LevelRelayTargetsLatestSink(t *testing.T) {
	t.Parallel()

	f := newFixture(t, okHandle)
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))

	var oldSink, newSink []float64
	f.controller.BindLevelSink(func(level float64) { oldSink = append(oldSink, level) })

	f.handles[0].opts.OnLevel(0.3)
	require.Equal(t, []float64{0.3}, oldSink)

	// Replace the sink: events emitted afterwards must reach the new
	// function, never the one captured earlier.
	f.controller.BindLevelSink(func(level float64) { newSink = append(newSink, level) })

	f.handles[0].opts.OnLevel(0.9)
	assert.Equal(t, []float64{0.3}, oldSink, "stale sink must not observe new events")
	assert.Equal(t, []float64{0.9}, newSink)
}

func TestController_SupportProbeCachedAcrossStarts(t *testing.T) {
	t.Parallel()

	probes := 0
	f := newFixture(t, okHandle, WithSupportProbe(func() bool {
		probes++
		return true
	}))
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))
	_, err := f.controller.Stop(ctx)
	require.NoError(t, err)
	require.NoError(t, f.controller.Start(ctx))

	assert.Equal(t, 1, probes, "capability must be probed once and cached")
}
