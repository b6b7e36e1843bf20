package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file.em",
	Short: "Compile a script into a .emc image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cmd.Flags().GetString("output")
		if err != nil {
			return fmt.Errorf("failed to get output flag: %w", err)
		}
		if out == "" {
			out = driver.ImagePath(args[0])
		}
		if code := state.drv.Build(args[0], out); code != driver.ExitOK {
			return codeErr(code)
		}
		if !state.quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		}
		return nil
	},
}

var disasmCmd = &cobra.Command{
	Use:   "disasm file.em|file.emc",
	Short: "Print the bytecode listing of a script or image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return codeErr(state.drv.Disasm(args[0], os.Stdout))
	},
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "image path (default: the script name with .emc)")
}
