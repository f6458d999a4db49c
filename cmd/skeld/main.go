// Command skeld runs headless social-deduction games between scripted
// and LLM-backed agents, one at a time or as a rated tournament.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skeld/internal/config"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "skeld",
	Short: "Deterministic hidden-role game engine and tournament runner",
	Long: `skeld simulates hidden-role games aboard the Skeld between scripted
bots and Gemini-backed players, headless and reproducible from a seed.

A single game writes a full replayable log. A tournament schedules
lobbies from a team roster, rates teams with Elo, and can expose a
live monitor with standings, Prometheus metrics, and a websocket feed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Values already exported in the environment win over .env files.
		if err := godotenv.Load(); err != nil {
			_ = godotenv.Load("../.env")
		}
		return initLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func initLogger() error {
	cfg := config.LogFromEnv()
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(tournamentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
