// Package tui implements the terminal workflow around a recording session:
// one model whose view follows the session phase. The TUI never mutates
// session state directly; every action goes through the controls supplied
// by the wiring in cmd/minute.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quorumhq/minute/internal/pipeline"
	"github.com/quorumhq/minute/internal/session"
	"github.com/quorumhq/minute/internal/tui/components/labeledspinner"
	"github.com/quorumhq/minute/internal/tui/style"
	"github.com/quorumhq/minute/pkg/uictl"
)

// Controls is the TUI's only way to act on the recording session.
type Controls struct {
	// Level reads the current audio level at render time.
	Level uictl.Dial[float64]
	// Toggle starts the session when idle, otherwise pauses/resumes.
	Toggle func() tea.Cmd
	// Finish stops the session and runs the downstream pipeline. It must
	// eventually yield a PipelineDoneMsg or PipelineErrorMsg.
	Finish func() tea.Cmd
}

// Config carries TUI construction parameters.
type Config struct {
	Cancel      context.CancelFunc
	MeetingName string
}

type model struct {
	config   Config
	keys     KeyMap
	controls Controls

	snapshot session.Snapshot
	result   *pipeline.Result
	runErr   error

	spinner   spinner.Model
	stopwatch stopwatch.Model
	meter     progress.Model
	waiting   labeledspinner.Model
	finishing bool
}

// New creates the root TUI model.
func New(config Config, controls Controls) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Points

	meter := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &model{
		config:    config,
		keys:      DefaultKeyMap(),
		controls:  controls,
		snapshot:  session.Snapshot{Phase: session.PhaseIdle},
		spinner:   s,
		stopwatch: stopwatch.New(),
		meter:     meter,
		waiting:   labeledspinner.New(spinner.Dot, "", "", ""),
	}
}

func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

//nolint:funlen // Single dispatch point for all workflow messages
func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch typedMsg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(typedMsg, m.keys.Quit):
			if m.config.Cancel != nil {
				m.config.Cancel()
			}

			return m, tea.Quit

		case key.Matches(typedMsg, m.keys.Toggle):
			phase := m.snapshot.Phase
			if m.finishing ||
				(phase != session.PhaseIdle && phase != session.PhaseRecording && phase != session.PhasePaused) {
				return m, nil
			}
			if m.controls.Toggle != nil {
				cmds = append(cmds, m.controls.Toggle())
			}

			return m, tea.Batch(cmds...)

		case key.Matches(typedMsg, m.keys.Finish):
			if m.finishing || m.controls.Finish == nil {
				return m, nil
			}
			if m.snapshot.Phase != session.PhaseRecording && m.snapshot.Phase != session.PhasePaused {
				return m, nil
			}
			m.finishing = true

			return m, tea.Batch(m.waiting.Init(), m.controls.Finish())
		}

	case SnapshotMsg:
		previous := m.snapshot.Phase
		m.snapshot = typedMsg.Snapshot

		switch {
		case m.snapshot.Phase == session.PhaseRecording && previous != session.PhaseRecording:
			cmds = append(cmds, m.stopwatch.Start())
		case m.snapshot.Phase == session.PhasePaused:
			cmds = append(cmds, m.stopwatch.Stop())
		case m.snapshot.Phase == session.PhaseIdle && previous.Active():
			cmds = append(cmds, m.stopwatch.Reset())
		}

		return m, tea.Batch(cmds...)

	case PipelineDoneMsg:
		m.finishing = false
		m.result = typedMsg.Result
		m.runErr = nil

		return m, nil

	case PipelineErrorMsg:
		m.finishing = false
		m.runErr = typedMsg.Err

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typedMsg)
		cmds = append(cmds, cmd)

		m.waiting, cmd = m.waiting.Update(typedMsg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		meterModel, cmd := m.meter.Update(typedMsg)
		m.meter = meterModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract
		cmds = append(cmds, cmd)
	}

	var stopwatchCmd tea.Cmd
	m.stopwatch, stopwatchCmd = m.stopwatch.Update(teaMsg)
	if stopwatchCmd != nil {
		cmds = append(cmds, stopwatchCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	switch m.snapshot.Phase {
	case session.PhaseRecording:
		return m.viewRecording()
	case session.PhasePaused:
		return m.viewPaused()
	case session.PhaseProcessing:
		return m.viewWaiting("Finalizing recording", "Encoding captured audio")
	case session.PhaseTranscribing:
		return m.viewWaiting("Transcribing audio", "Sending to Whisper API")
	case session.PhaseEnriching:
		return m.viewWaiting("Generating notes", "Extracting summary, decisions, and tasks")
	default:
		return m.viewIdle()
	}
}

func (m *model) viewIdle() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("minute"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render("meeting recorder"))
	sb.WriteString("\n\n")

	if m.runErr != nil {
		sb.WriteString(style.Error.Render(m.runErr.Error()))
		sb.WriteString("\n\n")
	} else if m.snapshot.Err != nil {
		sb.WriteString(style.Error.Render(m.snapshot.Err.Error()))
		sb.WriteString("\n\n")
	}

	if m.result != nil {
		sb.WriteString(m.viewResult())
		sb.WriteString("\n")
	}

	sb.WriteString(renderKeyHelp(m.keys.Toggle, "\n"))
	sb.WriteString(renderKeyHelp(m.keys.Quit, ""))

	return sb.String()
}

func (m *model) viewRecording() string {
	var sb strings.Builder

	sb.WriteString(m.spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render("Recording"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(m.stopwatch.View()))
	sb.WriteString("\n\n")

	level := m.snapshot.Level
	if m.controls.Level != nil {
		level = m.controls.Level.Read()
	}

	sb.WriteString(m.meter.ViewAs(level))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(fmt.Sprintf("level %3.0f%%", level*100)))
	sb.WriteString("\n\n")

	sb.WriteString(renderKeyHelp(m.keys.Toggle, "\n"))
	sb.WriteString(renderKeyHelp(m.keys.Finish, "\n"))
	sb.WriteString(renderKeyHelp(m.keys.Quit, ""))

	return sb.String()
}

func (m *model) viewPaused() string {
	var sb strings.Builder

	sb.WriteString(style.Warning.Render("Paused"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(m.stopwatch.View()))
	sb.WriteString("\n\n")

	sb.WriteString(renderKeyHelp(m.keys.Toggle, "\n"))
	sb.WriteString(renderKeyHelp(m.keys.Finish, "\n"))
	sb.WriteString(renderKeyHelp(m.keys.Quit, ""))

	return sb.String()
}

func (m *model) viewWaiting(title, subtitle string) string {
	m.waiting.Title = title
	m.waiting.Subtitle = subtitle
	m.waiting.Help = "this may take a moment"

	return m.waiting.View()
}

func (m *model) viewResult() string {
	var sb strings.Builder

	n := m.result.Notes

	sb.WriteString(style.Label.Render("Title: "))
	sb.WriteString(n.Title)
	sb.WriteString("\n\n")
	sb.WriteString(n.Summary)
	sb.WriteString("\n")

	if len(n.Decisions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(style.Label.Render("Decisions"))
		sb.WriteString("\n")
		for _, decision := range n.Decisions {
			sb.WriteString(style.Bullet.Render("- "))
			sb.WriteString(decision)
			sb.WriteString("\n")
		}
	}

	if len(n.Tasks) > 0 {
		sb.WriteString("\n")
		sb.WriteString(style.Label.Render("Tasks"))
		sb.WriteString("\n")
		for _, task := range n.Tasks {
			sb.WriteString(style.Bullet.Render("- "))
			sb.WriteString(task.Description)
			if task.Owner != "" {
				sb.WriteString(style.Muted.Render(" (" + task.Owner + ")"))
			}
			sb.WriteString("\n")
		}
	}

	if m.result.Saved != nil {
		sb.WriteString("\n")
		sb.WriteString(style.Success.Render("Saved: "))
		sb.WriteString(style.Muted.Render(m.result.Saved.Dir))
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderKeyHelp renders a key binding hint followed by a separator.
func renderKeyHelp(binding key.Binding, sep string) string {
	help := binding.Help()

	return style.Key.Render(help.Key) + " " + style.Help.Render(help.Desc) + sep
}
