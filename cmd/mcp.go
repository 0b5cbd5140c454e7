package cmd

import (
	"github.com/spf13/cobra"

	"github.com/okdokhae/okdok/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tutor as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ephemeral, _ := cmd.Flags().GetBool("memory")

		a, err := openApp(cmd, ephemeral)
		if err != nil {
			return err
		}
		defer a.Close()

		a.Logger.Info("serving MCP over stdio")
		return mcpserver.Serve(mcpserver.New(a.Engine, version))
	},
}

func init() {
	mcpCmd.Flags().Bool("memory", false, "Keep sessions in memory instead of the database")
}
