package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okdokhae/okdok/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Tag a passage's sentences with roles and pick its key nodes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		passage, err := readPassage(cmd, args)
		if err != nil {
			return err
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		analysis := a.Engine.AnalyzePassage(passage)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}
		if len(analysis.Nodes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sentences to analyze.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Analysis(analysis, render.DefaultWidth))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the analysis as JSON")
}
