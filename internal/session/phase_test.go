package session

import "testing"

func TestPhase_Valid(t *testing.T) {
	t.Parallel()

	valid := []Phase{
		PhaseIdle, PhaseRecording, PhasePaused,
		PhaseProcessing, PhaseTranscribing, PhaseEnriching,
	}
	for _, p := range valid {
		if !p.Valid() {
			t.Errorf("expected %q to be valid", p)
		}
	}

	invalid := []Phase{"", "stopped", "Recording"}
	for _, p := range invalid {
		if p.Valid() {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestPhase_Active(t *testing.T) {
	t.Parallel()

	if PhaseIdle.Active() {
		t.Error("idle must not be active")
	}
	if Phase("bogus").Active() {
		t.Error("invalid phase must not be active")
	}

	for _, p := range []Phase{PhaseRecording, PhasePaused, PhaseProcessing, PhaseTranscribing, PhaseEnriching} {
		if !p.Active() {
			t.Errorf("expected %q to be active", p)
		}
	}
}

func TestPhase_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseRecording, true},
		{PhaseIdle, PhaseProcessing, false},
		{PhaseRecording, PhasePaused, true},
		{PhaseRecording, PhaseProcessing, true},
		{PhaseRecording, PhaseIdle, true},
		{PhasePaused, PhaseRecording, true},
		{PhasePaused, PhaseProcessing, true},
		{PhaseProcessing, PhaseTranscribing, true},
		{PhaseProcessing, PhaseRecording, false},
		{PhaseTranscribing, PhaseEnriching, true},
		{PhaseEnriching, PhaseIdle, true},
		{PhaseEnriching, PhaseRecording, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}
