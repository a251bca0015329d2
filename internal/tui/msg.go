package tui

import (
	"github.com/quorumhq/minute/internal/pipeline"
	"github.com/quorumhq/minute/internal/session"
)

// SnapshotMsg carries a session store update into the TUI. The main wiring
// subscribes to the store and forwards every snapshot through the program.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// PipelineDoneMsg signals the downstream pipeline finished successfully.
type PipelineDoneMsg struct {
	Result *pipeline.Result
}

// PipelineErrorMsg signals the downstream pipeline failed.
type PipelineErrorMsg struct {
	Err error
}
