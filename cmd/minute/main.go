package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quorumhq/minute/internal/capture"
	"github.com/quorumhq/minute/internal/config"
	"github.com/quorumhq/minute/internal/keyring"
	"github.com/quorumhq/minute/internal/logger"
	"github.com/quorumhq/minute/internal/notes"
	"github.com/quorumhq/minute/internal/pipeline"
	"github.com/quorumhq/minute/internal/server"
	"github.com/quorumhq/minute/internal/session"
	"github.com/quorumhq/minute/internal/tui"
	"github.com/quorumhq/minute/pkg/channels"
)

// CLI defines the minute command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch terminal UI for recording a meeting"`

	// Subcommands
	Serve   ServeCmd   `cmd:"" help:"Serve session state and stored meetings over HTTP"`
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

// TUICmd is the default command that runs the recording TUI.
type TUICmd struct {
	Name            string        `arg:"" optional:"" help:"Meeting name (defaults to the generated title)"`
	MaxDuration     time.Duration `flag:"" default:"2h" help:"Max recording duration"`
	MaxBytes        int64         `flag:"" default:"536870912" help:"Max buffered audio size (512MB)"`
	NotesDir        string        `flag:"" optional:"" help:"Meetings directory (default: ~/Documents/Quorum/Minute)"`
	OpenAIAPIKey    string        `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for transcription"`
	AnthropicAPIKey string        `flag:"" env:"ANTHROPIC_API_KEY" help:"Anthropic API key for note generation"`
}

// Run executes the TUI command.
//
//nolint:funlen // CLI command with multiple setup steps
func (c *TUICmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The TUI owns the terminal from here on.
	logger.Discard()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Resolve API keys: environment variables take priority, fallback to keychain
	if c.OpenAIAPIKey == "" {
		if secret, err := keyring.Get(keyring.OpenAI); err == nil {
			c.OpenAIAPIKey = secret
		}
	}

	if c.AnthropicAPIKey == "" {
		if secret, err := keyring.Get(keyring.Anthropic); err == nil {
			c.AnthropicAPIKey = secret
		}
	}

	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "openai")
	}

	if c.AnthropicAPIKey == "" {
		missing = append(missing, "anthropic")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing API keys: %s. Set via environment variables or run 'minute config set-key'",
			strings.Join(missing, ", "))
	}

	root, err := meetingsRoot(c.NotesDir, cfg)
	if err != nil {
		return err
	}

	store := session.NewStore()

	captureConf := capture.Config{
		MaxDuration: c.MaxDuration,
		MaxBytes:    c.MaxBytes,
	}
	controller := session.NewController(store, func(opts capture.Options) session.Handle {
		return capture.NewRecorder(captureConf, opts)
	})

	if !controller.Supported() {
		return session.ErrUnsupported
	}

	runner := pipeline.NewRunner(
		store,
		pipeline.NewWhisperTranscriber(c.OpenAIAPIKey),
		pipeline.NewClaudeEnricher(c.AnthropicAPIKey),
		notes.NewStore(root),
	)

	tuiConfig := tui.Config{
		Cancel:      cancel,
		MeetingName: c.Name,
	}

	p := tea.NewProgram(tui.New(tuiConfig, makeSessionControls(ctx, store, controller, runner, c.Name)))

	// Snapshot fan-out: the store notifies synchronously on the capture
	// thread, so updates go through a non-blocking broadcast rather than
	// straight into the TUI program.
	broadcaster := channels.NewBroadcaster[session.Snapshot]()
	snapC := make(chan session.Snapshot, 256)
	broadcaster.Subscribe(snapC)

	inputC, err := broadcaster.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to start snapshot broadcast: %w", err)
	}

	store.Subscribe(func(snap session.Snapshot) {
		// Dropped level updates are fine; the view reads the level dial
		// at render time anyway.
		_ = channels.SendNonBlock(inputC, snap)
	})

	wg := sync.WaitGroup{}

	wg.Go(func() {
		for snap := range snapC {
			p.Send(tui.SnapshotMsg{Snapshot: snap})
		}
	})

	wg.Go(func() {
		broadcaster.Wait()
		close(snapC)
	})

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	cancel()
	wg.Wait()

	fmt.Println("\nfinished. bye!")

	return nil
}

// makeSessionControls binds the TUI's controls to the session controller and
// pipeline. The toggle key maps onto start/pause/resume depending on the
// current phase; finish stops the capture and hands the artifact to the
// pipeline.
func makeSessionControls(
	ctx context.Context,
	store *session.Store,
	controller *session.Controller,
	runner *pipeline.Runner,
	meetingName string,
) tui.Controls {
	return tui.Controls{
		Level: store.LevelDial(),
		Toggle: func() tea.Cmd {
			return func() tea.Msg {
				switch store.Phase() {
				case session.PhaseRecording:
					if err := controller.Pause(ctx); err != nil {
						slog.Debug("pause rejected", "error", err)
					}
				case session.PhasePaused:
					if err := controller.Resume(ctx); err != nil {
						slog.Debug("resume rejected", "error", err)
					}
				default:
					// Start failures land in the store and surface
					// through the next snapshot.
					_ = controller.Start(ctx)
				}

				return nil
			}
		},
		Finish: func() tea.Cmd {
			return func() tea.Msg {
				artifact, err := controller.Stop(ctx)
				if err != nil {
					return tui.PipelineErrorMsg{Err: err}
				}

				if artifact == nil {
					return nil
				}

				result, err := runner.Process(ctx, artifact, meetingName)
				if err != nil {
					return tui.PipelineErrorMsg{Err: err}
				}

				return tui.PipelineDoneMsg{Result: result}
			}
		},
	}
}

// ServeCmd runs the read-only HTTP server over stored meetings.
type ServeCmd struct {
	NotesDir string `flag:"" optional:"" help:"Meetings directory (default: ~/Documents/Quorum/Minute)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.Setup(cfg)

	root, err := meetingsRoot(c.NotesDir, cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg, log, session.NewStore(), notes.NewStore(root))

	return srv.Run()
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	devices, err := capture.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'minute config set-key <service> <key>' to configure.")
	}

	return nil
}

// meetingsRoot resolves the meetings directory.
// Priority: explicit flag > MINUTE_NOTES_DIR > home-directory default.
func meetingsRoot(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if cfg.NotesDir != "" {
		return cfg.NotesDir, nil
	}

	return notes.DefaultRoot()
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
