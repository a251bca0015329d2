package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/quorumhq/minute/internal/capture"
	"github.com/quorumhq/minute/internal/notes"
	"github.com/quorumhq/minute/internal/session"
)

// Result is everything the pipeline produced for one meeting.
type Result struct {
	Transcript string
	Notes      *notes.Notes
	Saved      *notes.Saved
}

// Runner drives the downstream stages for a finalized artifact. It follows
// the same single-writer discipline on the session store as the controller:
// phase moves transcribing -> enriching -> idle here, and any failure resets
// to idle with the error surfaced.
type Runner struct {
	store       *session.Store
	transcriber Transcriber
	enricher    Enricher
	saver       *notes.Store
}

func NewRunner(store *session.Store, transcriber Transcriber, enricher Enricher, saver *notes.Store) *Runner {
	return &Runner{
		store:       store,
		transcriber: transcriber,
		enricher:    enricher,
		saver:       saver,
	}
}

// Process consumes the artifact. The caller hands it off with the store
// already in the processing phase.
func (r *Runner) Process(ctx context.Context, artifact *capture.Artifact, meetingName string) (*Result, error) {
	r.store.SetPhase(session.PhaseTranscribing)
	slog.Info("transcribing artifact", "bytes", len(artifact.Data), "duration", artifact.Duration)

	transcript, err := r.transcriber.Transcribe(ctx, bytes.NewReader(artifact.Data))
	if err != nil {
		return nil, r.fail(fmt.Errorf("transcription failed: %w", err))
	}

	r.store.SetPhase(session.PhaseEnriching)
	slog.Info("enriching transcript", "chars", len(transcript))

	enriched, err := r.enricher.Enrich(ctx, transcript)
	if err != nil {
		return nil, r.fail(fmt.Errorf("enrichment failed: %w", err))
	}

	name := meetingName
	if name == "" {
		name = enriched.Title
	}

	saved, err := r.saver.Save(name, artifact.Data, transcript, enriched)
	if err != nil {
		return nil, r.fail(fmt.Errorf("failed to persist meeting: %w", err))
	}

	r.store.SetPhase(session.PhaseIdle)
	slog.Info("pipeline complete", "dir", saved.Dir)

	return &Result{
		Transcript: transcript,
		Notes:      enriched,
		Saved:      saved,
	}, nil
}

func (r *Runner) fail(err error) error {
	slog.Error("pipeline failed", "error", err)
	r.store.SetError(err)
	r.store.SetPhase(session.PhaseIdle)
	return err
}
