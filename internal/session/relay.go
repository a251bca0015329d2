package session

import "sync/atomic"

// levelRelay bridges the capture device's push-based level notifications to
// whatever sink is current at call time. The sink may be replaced over the
// controller's lifetime, so it is resolved through a single mutable slot on
// every emit rather than being closed over at construction.
type levelRelay struct {
	sink atomic.Pointer[func(float64)]
}

func newLevelRelay(fn func(float64)) *levelRelay {
	r := &levelRelay{}
	r.Rebind(fn)
	return r
}

// Rebind replaces the relay target. Subsequent emits go to fn.
func (r *levelRelay) Rebind(fn func(float64)) {
	if fn == nil {
		r.sink.Store(nil)
		return
	}
	r.sink.Store(&fn)
}

// Emit forwards a level reading to the current sink, if any.
func (r *levelRelay) Emit(level float64) {
	if fn := r.sink.Load(); fn != nil {
		(*fn)(level)
	}
}
