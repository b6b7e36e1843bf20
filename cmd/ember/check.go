package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ember/internal/driver"
	"ember/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] path...",
	Short: "Compile scripts without running them",
	Long:  `Check compiles every file (directories are searched for *.em) in parallel and reports diagnostics`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "number of parallel workers (0 = GOMAXPROCS)")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout) && !state.quiet
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	files, err := driver.ExpandPaths(args)
	if err != nil {
		return err
	}

	var sum *driver.CheckSummary
	if shouldUseTUI(mode) {
		sum, err = runCheckWithUI(cmd, files, jobs)
	} else {
		sum, err = state.drv.Check(cmd.Context(), files, jobs, nil)
	}
	if err != nil {
		return err
	}
	code := state.drv.ReportCheck(sum)
	if code == driver.ExitOK && !state.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d files, no errors\n", len(files))
	}
	return codeErr(code)
}

type checkOutcome struct {
	sum *driver.CheckSummary
	err error
}

func runCheckWithUI(cmd *cobra.Command, files []string, jobs int) (*driver.CheckSummary, error) {
	events := make(chan driver.CheckEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		sum, err := state.drv.Check(cmd.Context(), files, jobs, func(ev driver.CheckEvent) { events <- ev })
		outcomeCh <- checkOutcome{sum: sum, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(fmt.Sprintf("checking %d files", len(files)), files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// освобождаем отправителей, если модель вышла раньше времени
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.sum, uiErr
	}
	return outcome.sum, outcome.err
}
