package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ember/internal/driver"
	"ember/internal/object"
	"ember/internal/prof"
	"ember/internal/trace"
	"ember/internal/vm"
)

// cliState is built once per invocation from flags and ember.toml.
type cliState struct {
	config  projectConfig
	color   bool
	quiet   bool
	timings bool
	maxDiag int
	tracer  trace.Tracer
	drv     *driver.Driver
	profile *prof.Session
}

var state = &cliState{tracer: trace.Nop}

func setupCLI(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(colorFlag) {
	case "on":
		state.color = true
	case "off":
		state.color = false
	case "auto", "":
		state.color = isTerminal(os.Stderr)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	color.NoColor = !state.color

	if state.quiet, err = flags.GetBool("quiet"); err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if state.timings, err = flags.GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if state.maxDiag, err = flags.GetInt("max-diagnostics"); err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	configPath, err := flags.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if state.config, err = resolveConfig(configPath, "."); err != nil {
		return err
	}

	if err := setupTracing(cmd); err != nil {
		return err
	}
	if err := setupProfiling(cmd); err != nil {
		return err
	}

	state.drv = driver.New(driver.Options{
		MaxDiagnostics: state.maxDiag,
		VM: vm.Options{
			StackMax:  state.config.VM.StackMax,
			FramesMax: state.config.VM.FramesMax,
			GCStress:  state.config.GC.Stress,
		},
		GC: object.Config{
			InitialThreshold: state.config.GC.InitialThreshold,
			GrowFactor:       state.config.GC.GrowFactor,
		},
		Tracer: state.tracer,
		Color:  state.color,
	})
	return nil
}

// setupTracing builds the tracer from --trace/--trace-out, falling back to [trace].
func setupTracing(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	levelStr, err := flags.GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	output, err := flags.GetString("trace-out")
	if err != nil {
		return fmt.Errorf("failed to get trace-out flag: %w", err)
	}
	if !flags.Changed("trace") {
		levelStr = state.config.Trace.Level
	}
	if !flags.Changed("trace-out") {
		output = state.config.Trace.Output
	}
	if levelStr == "" {
		levelStr = "off"
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		return nil
	}
	tracer, err := trace.New(trace.Config{Level: level, OutputPath: output})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	state.tracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return nil
}

func setupProfiling(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	if opts.Mem, err = flags.GetString("memprofile"); err != nil {
		return fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	if opts.Exec, err = flags.GetString("exectrace"); err != nil {
		return fmt.Errorf("failed to get exectrace flag: %w", err)
	}
	if opts == (prof.Options{}) {
		return nil
	}
	state.profile, err = prof.Start(opts)
	return err
}

// close flushes the tracer and prints timings. It runs even when the command
// failed; the error ring is dumped only then.
func (s *cliState) close(stderr io.Writer, failed bool) {
	if err := s.profile.Stop(); err != nil {
		fmt.Fprintf(stderr, "profile: %v\n", err)
	}
	if s.timings && s.drv != nil && len(s.drv.Timer().Phases()) > 0 {
		if err := s.drv.Timer().WriteSummary(stderr); err != nil {
			fmt.Fprintf(stderr, "timings: %v\n", err)
		}
	}
	// при ошибке уровня error дампим кольцевой буфер
	if ring := trace.RingOf(s.tracer); failed && ring != nil && ring.Level() == trace.LevelError {
		if err := ring.Dump(stderr, trace.FormatText); err != nil {
			fmt.Fprintf(stderr, "trace: dump error: %v\n", err)
		}
	}
	if err := s.tracer.Flush(); err != nil {
		fmt.Fprintf(stderr, "trace: flush error: %v\n", err)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(stderr, "trace: close error: %v\n", err)
	}
}
