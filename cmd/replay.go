package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/backend"
	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/ui"
	"github.com/bnema/wayseat/internal/wire"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Drive a seat from an event script",
	Long: `Replay builds a seat with the configured capabilities, connects the
clients declared by the script, and applies its steps in order. Every
message sent to a client is printed as it happens, followed by the final
seat state and the focused output.

With --step the script is applied one step at a time in an interactive
view. With --record every message is also written to a file as
length-prefixed protobuf records, readable with the trace command.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Bool("no-trace", false, "Do not print wire messages")
	replayCmd.Flags().Bool("quiet", false, "Only print errors")
	replayCmd.Flags().Bool("step", false, "Step through the script interactively")
	replayCmd.Flags().String("record", "", "Write the wire trace to `file` as protobuf records")
}

// runtimeOptions maps the configuration onto runner options
func runtimeOptions(cfg *config.Config) (backend.Options, error) {
	caps, err := config.ParseCapabilities(cfg.Seat.Capabilities)
	if err != nil {
		return backend.Options{}, err
	}
	return backend.Options{
		MaxSeats:     cfg.Seat.MaxSeats,
		Capabilities: caps,
		Priorities: backend.Priorities{
			Move:       cfg.Grabs.MovePriority,
			Resize:     cfg.Grabs.ResizePriority,
			TouchMove:  cfg.Grabs.TouchMovePriority,
			TaskSwitch: cfg.Grabs.TaskSwitchPriority,
		},
		EmergencyKeys: cfg.Emergency.Keys,
	}, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	script, err := backend.Load(args[0])
	if err != nil {
		return err
	}

	opts, err := runtimeOptions(cfg)
	if err != nil {
		return err
	}

	rec := wire.NewRecorder()
	noTrace, _ := cmd.Flags().GetBool("no-trace")
	quiet, _ := cmd.Flags().GetBool("quiet")
	step, _ := cmd.Flags().GetBool("step")
	recordPath, _ := cmd.Flags().GetString("record")

	var printer wire.Sink
	if cfg.Logging.TraceEvents && !noTrace && !quiet && !step {
		printer = ui.NewTraceSink(nil, func(line string) {
			fmt.Fprintln(out, line)
		})
	}

	var recorder *wire.TraceWriter
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer f.Close()
		recorder = wire.NewTraceWriter(f)
	}
	opts.Sink = wire.Tee(rec, printer, traceSink(recorder))

	runner, err := backend.NewRunner(script, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emergency := runner.Emergency()
	emergency.SetTriggerFile(cfg.Emergency.TriggerFile)
	emergency.Start(ctx)

	logger.Debugf("Replaying %d steps from %s", len(script.Steps), args[0])
	var runErr error
	if step {
		runErr = runStepper(ctx, runner, rec, args[0], cmd)
	} else {
		runErr = runner.Run(ctx)
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil && runErr == nil {
			runErr = err
		}
	}

	if quiet {
		return runErr
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatHeader("Final state"))
	fmt.Fprintln(out, ui.FormatSeat(runner.Seat()))
	if o := runner.Outputs().Current(); o != nil {
		fmt.Fprintln(out, ui.FormatField("output", fmt.Sprintf("%s (%dx%d at %d,%d)", o.Name, o.Width, o.Height, o.X, o.Y)))
	} else {
		fmt.Fprintln(out, ui.FormatField("output", "none"))
	}

	if runErr != nil {
		fmt.Fprintln(out, ui.FormatResult(false, fmt.Sprintf("stopped after %d of %d steps", runner.Applied(), len(script.Steps))))
		return runErr
	}
	fmt.Fprintln(out, ui.FormatResult(true, fmt.Sprintf("%d steps applied, %d messages sent", runner.Applied(), rec.Len())))
	if recorder != nil {
		fmt.Fprintln(out, ui.FormatField("recorded", fmt.Sprintf("%d messages to %s", recorder.Count(), recordPath)))
	}
	return nil
}

// traceSink avoids handing Tee a typed nil
func traceSink(w *wire.TraceWriter) wire.Sink {
	if w == nil {
		return nil
	}
	return w
}

func runStepper(ctx context.Context, runner *backend.Runner, rec *wire.Recorder, title string, cmd *cobra.Command) error {
	model, err := ui.RunStepper(ctx, ui.StepperConfig{
		Title: title,
		Total: runner.Total(),
		Seat:  runner.Seat(),
		Trace: rec,
		Step: func() (string, error) {
			st, err := runner.Next()
			if err != nil {
				return "", err
			}
			return describeStep(st), nil
		},
	}, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	return model.Err()
}

// describeStep renders a step as a short label for the stepper
func describeStep(st backend.Step) string {
	label := st.Op
	if st.Client != 0 {
		label += fmt.Sprintf(" client=%d", st.Client)
	}
	if st.Surface != "" {
		label += " surface=" + st.Surface
	}
	if st.State != "" {
		label += " " + st.State
	}
	return label
}
