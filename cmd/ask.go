package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/question"
	"github.com/okdokhae/okdok/internal/render"
)

var askCmd = &cobra.Command{
	Use:   "ask [file]",
	Short: "Generate questions about a passage's key nodes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node")
		count, _ := cmd.Flags().GetInt("count")

		passage, err := readPassage(cmd, args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed, _ = cmd.Flags().GetUint64("seed")
		}
		a, err := openAppWith(cmd, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		analysis := a.Engine.AnalyzePassage(passage)
		nodes := analysis.KeyNodes
		if nodeID != "" {
			n, ok := discourse.FindNode(analysis.Nodes, nodeID)
			if !ok {
				return fmt.Errorf("node %q not found in passage", nodeID)
			}
			nodes = []discourse.Node{n}
		}
		if len(nodes) == 0 {
			return fmt.Errorf("passage has no key nodes")
		}

		var history question.History
		for _, n := range nodes {
			for i := 0; i < max(count, 1); i++ {
				q := a.Engine.GenerateQuestion(n, &history)
				fmt.Fprintln(cmd.OutOrStdout(), render.Node(n, q))
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Uint64("seed", 1, "Seed for template choice (overrides OKDOK_SEED)")
	askCmd.Flags().String("node", "", "Ask only about this node id")
	askCmd.Flags().Int("count", 1, "Questions per node")
}
