// Package session implements the recording lifecycle: an explicit phase
// machine, a single-writer observable state store, and the controller that
// owns the capture handle and drives every transition.
package session

// Phase is the current discrete stage of a recording session. Exactly one
// value is current at any time; it is the single source of truth for what
// UI may show and which operations are legal.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRecording    Phase = "recording"
	PhasePaused       Phase = "paused"
	PhaseProcessing   Phase = "processing"
	PhaseTranscribing Phase = "transcribing"
	PhaseEnriching    Phase = "enriching"
)

// transitions is the closed set of legal phase moves. Every transition is
// performed by the controller or the pipeline runner; nothing else mutates
// phase.
var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseRecording},
	PhaseRecording:    {PhasePaused, PhaseProcessing, PhaseIdle},
	PhasePaused:       {PhaseRecording, PhaseProcessing, PhaseIdle},
	PhaseProcessing:   {PhaseTranscribing, PhaseIdle},
	PhaseTranscribing: {PhaseEnriching, PhaseIdle},
	PhaseEnriching:    {PhaseIdle},
}

// Valid reports whether p is a member of the closed phase enumeration.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// Active reports whether a session conceptually exists in this phase.
func (p Phase) Active() bool {
	return p.Valid() && p != PhaseIdle
}

// CanTransition reports whether moving from p to next is a legal step.
func (p Phase) CanTransition(next Phase) bool {
	for _, candidate := range transitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (p Phase) String() string {
	return string(p)
}
