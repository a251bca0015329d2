package capture

import (
	"encoding/binary"
	"math"
	"sync"
)

// packetLevel computes the normalized RMS loudness of a packet of S16LE
// samples. The result is clamped to [0, 1].
func packetLevel(packet []byte) float64 {
	numSamples := len(packet) / 2
	if numSamples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(packet[i*2:]))
		f := float64(s)
		sum += f * f
	}

	rms := math.Sqrt(sum/float64(numSamples)) / math.MaxInt16
	if rms > 1 {
		rms = 1
	}

	return rms
}

// levelWindow is a small ring of recent level readings used to smooth the
// values relayed to the UI. Device packets arrive on the audio thread while
// readers may poll from elsewhere, hence the lock.
type levelWindow struct {
	levels []float64
	head   int
	count  int
	mu     sync.RWMutex
}

func newLevelWindow(capacity int) *levelWindow {
	if capacity <= 0 {
		capacity = 8
	}
	return &levelWindow{levels: make([]float64, capacity)}
}

// Push appends a reading, overwriting the oldest once full.
func (w *levelWindow) Push(level float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.levels[w.head] = level
	w.head = (w.head + 1) % len(w.levels)
	if w.count < len(w.levels) {
		w.count++
	}
}

// Average returns the mean of the retained readings, 0 when empty.
func (w *levelWindow) Average() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.count == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < w.count; i++ {
		sum += w.levels[i]
	}

	return sum / float64(w.count)
}
