// Command neongrid runs simulated operations from the terminal.
//
//	neongrid run follow --input users.txt --max 10
//	neongrid run comment --text "$(cat posts.txt)" --template "nice shot"
//	neongrid kinds
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nomis52/neongrid/buildinfo"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var rootCmd = &cobra.Command{
	Use:           "neongrid",
	Short:         "Run simulated NeonGrid operations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		props := buildinfo.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "neongrid %s\n", props.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", props.BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", props.GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// useColor reports whether f is a terminal that should get ANSI colors.
func useColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
