package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ielts",
		Short:         "IELTS exam scoring and answer validation service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	f := root.PersistentFlags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(serveCmd(), scoreCmd(), bandCmd(), eventsCmd())
	return root
}

// setupLogging installs the logger selected by the persistent flags as the
// slog default and returns it.
func setupLogging(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	logger, err := utils.NewLogger(level, format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
