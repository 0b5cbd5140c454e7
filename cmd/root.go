package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okdokhae/okdok/internal/app"
	"github.com/okdokhae/okdok/internal/config"
	"github.com/okdokhae/okdok/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "okdok",
	Short: "Socratic reading-comprehension tutor",
	Long: "okdok analyzes a passage, asks probing questions about its key sentences, " +
		"scores free-text answers and walks the reader through staged lessons.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides OKDOK_DB_PATH)")
	rootCmd.PersistentFlags().String("locale", "", "Question and feedback language: en or ko (overrides OKDOK_LOCALE)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then OKDOK_DB_PATH, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if p := os.Getenv("OKDOK_DB_PATH"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if l, _ := cmd.Flags().GetString("locale"); l != "" {
		cfg.Locale = l
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openApp builds the tutor. Ephemeral apps keep sessions in memory.
func openApp(cmd *cobra.Command, ephemeral bool) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openAppWith(cmd, cfg, ephemeral)
}

func openAppWith(cmd *cobra.Command, cfg *config.Config, ephemeral bool) (*app.App, error) {
	return app.Open(cmd.Context(), cfg, app.Options{Ephemeral: ephemeral})
}

// readPassage reads the passage from the file argument, or stdin when
// there is none or it is "-".
func readPassage(cmd *cobra.Command, args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read passage: %w", err)
	}
	return string(data), nil
}
