package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file.em|file.emc]",
	Short: "Run a script or compiled image",
	Long: `Run compiles and executes a script, or executes an image produced by build.
Without an argument it runs [run].main from ember.toml, or starts the REPL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return codeErr(state.drv.RunFile(args[0]))
		}
		if main, ok := state.config.mainScript(); ok {
			return codeErr(state.drv.RunFile(main))
		}
		return startREPL()
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startREPL()
	},
}

func startREPL() error {
	if isTerminal(os.Stdin) {
		if !state.quiet {
			fmt.Fprintln(os.Stdout, "ember REPL; an empty line exits")
		}
		state.drv.SetPrompt("> ")
	}
	return codeErr(state.drv.REPL(os.Stdin, os.Stdout))
}
