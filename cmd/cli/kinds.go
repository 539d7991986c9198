package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
)

var kindsConfigPath string

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List operation kinds with their settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if kindsConfigPath != "" {
			var err error
			if cfg, err = config.LoadConfig(kindsConfigPath); err != nil {
				return err
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tPROBABILITY\tINTERVAL\tMAX\tDELAY")
		for _, kind := range engine.Kinds() {
			c := cfg.JobConfig(kind)
			limit := "all"
			if c.MaxItems > 0 {
				limit = fmt.Sprint(c.MaxItems)
			}
			delay := "-"
			if c.ItemDelay > 0 {
				delay = c.ItemDelay.String()
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", kind, c.SuccessProbability, c.StepInterval, limit, delay)
		}
		return tw.Flush()
	},
}

func init() {
	kindsCmd.Flags().StringVarP(&kindsConfigPath, "config", "c", "", "config file with operation overrides")
	rootCmd.AddCommand(kindsCmd)
}
