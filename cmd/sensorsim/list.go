package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCENARIO\tSENSORS\tDURATION\tDESCRIPTION")
		for _, name := range catalog.Names() {
			sc, _ := catalog.Get(name)
			fmt.Fprintf(w, "%s\t%d\t%v\t%s\n", name, len(sc.Sensors), sc.DefaultDuration(), sc.Description)
		}
		return w.Flush()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [scenario...]",
	Short: "Build scenarios without running them.",
	Long:  "Validate builds every sensor of the given scenarios, or of all scenarios when none are named.",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		dt, _ := cmd.Flags().GetFloat64("dt")

		names := args
		if len(names) == 0 {
			names = catalog.Names()
		}
		for _, name := range names {
			sc, err := catalog.Get(name)
			if err != nil {
				return err
			}
			sensors, err := sc.Build(dt)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d sensors ok\n", name, len(sensors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Float64("dt", 1.0, "sampling interval in seconds")
}
