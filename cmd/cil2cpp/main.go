// Command cil2cpp drives the ahead-of-time CIL-to-C++ pipeline
// (internal/pipeline) from the command line. Grounded on
// saferwall-pe/cmd/pedumper.go's root-command-plus-subcommands shape
// (persistent flags on the root, one cobra.Command per verb), generalized
// from a single dump verb to compile/stubs/budget.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cil2cpp/aotc/internal/logging"
)

var (
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cil2cpp",
		Short: "Ahead-of-time CIL-to-C++ compiler",
		Long:  "cil2cpp translates a closed ECMA-335 assembly set into portable C++ source.",
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "", "log verbosity: quiet, normal, or verbose (default: normal, or $CIL2CPP_LOG)")

	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newStubsCmd())
	rootCmd.AddCommand(newBudgetCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveLogger() (level logging.Level) {
	switch logLevel {
	case "quiet":
		return logging.LevelQuiet
	case "verbose":
		return logging.LevelVerbose
	case "normal":
		return logging.LevelNormal
	default:
		return logging.LevelFromEnv(logging.LevelNormal)
	}
}
