package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skeld/internal/api"
	"skeld/internal/config"
	"skeld/internal/game"
	"skeld/internal/tournament"
)

var (
	tourTeams     string
	tourGames     int
	tourConfig    string
	tourOutputDir string
	tourParallel  int
	tourMonitor   string
	tourSeed      int64
	tourEvents    string
)

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Run a rated tournament between teams",
	Long: `Schedule lobbies from a team roster, play every game, and rate the
teams with Elo. Per-game logs and the final standings are written to
the output directory; --monitor additionally serves live standings,
Prometheus metrics, and a websocket feed while the tournament runs.`,
	RunE: runTournament,
}

func init() {
	tournamentCmd.Flags().StringVar(&tourTeams, "teams", "teams.json", "JSON file mapping team name to agent spec")
	tournamentCmd.Flags().IntVar(&tourGames, "games", 20, "games per team")
	tournamentCmd.Flags().StringVar(&tourConfig, "config", "", "JSON rules file layered over the defaults")
	tournamentCmd.Flags().StringVar(&tourOutputDir, "output-dir", "game_logs", "directory for per-game logs and standings")
	tournamentCmd.Flags().IntVar(&tourParallel, "parallel", 1, "games in flight at once")
	tournamentCmd.Flags().StringVar(&tourMonitor, "monitor", "", "serve the live monitor on this address (e.g. :8080)")
	tournamentCmd.Flags().Int64Var(&tourSeed, "seed", 0, "tournament seed (0 draws one from the clock)")
	tournamentCmd.Flags().StringVar(&tourEvents, "events", "", "append engine events as JSONL to this file")
}

func runTournament(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	teams, err := config.LoadTeams(tourTeams)
	if err != nil {
		logger.Error("invalid teams", zap.Error(err))
		return err
	}
	cfg, err := config.LoadRules(tourConfig)
	if err != nil {
		logger.Error("invalid rules", zap.Error(err))
		return err
	}

	var eventLog *game.EventLog
	if tourEvents != "" {
		eventLog = game.NewEventLog()
		if err := eventLog.Start(tourEvents); err != nil {
			return err
		}
		defer eventLog.Stop()
	}

	appCfg := config.FromEnv()
	opts := tournament.Options{
		Teams:        teams,
		Config:       cfg,
		GamesPerTeam: tourGames,
		Parallel:     tourParallel,
		Seed:         tourSeed,
		OutputDir:    tourOutputDir,
		APIKey:       appCfg.Gemini.APIKey,
		Logger:       logger,
		EventLog:     eventLog,
	}

	var monitor *api.Server
	if tourMonitor != "" {
		monitor = api.NewServer(api.ServerConfig{
			Addr:        tourMonitor,
			Logger:      logger,
			RecentGames: appCfg.Monitor.RecentGames,
		})
		go func() {
			if err := monitor.Start(); err != nil {
				logger.Error("monitor stopped", zap.Error(err))
			}
		}()
		opts.Observer = monitor
		opts.Recorder = api.MetricsRecorder{}
	}

	runner, err := tournament.NewRunner(opts)
	if err != nil {
		if monitor != nil {
			shutdownMonitor(monitor)
		}
		logger.Error("invalid tournament", zap.Error(err))
		return err
	}
	standings, runErr := runner.Run(ctx)
	if monitor != nil {
		shutdownMonitor(monitor)
	}
	if runErr != nil {
		logger.Error("tournament aborted", zap.Error(runErr))
		return runErr
	}

	printStandings(standings)
	fmt.Printf("Artifacts written to %s\n", tourOutputDir)
	return nil
}

func shutdownMonitor(monitor *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Shutdown(ctx); err != nil {
		logger.Warn("monitor shutdown", zap.Error(err))
	}
}

func printStandings(standings []tournament.Standing) {
	fmt.Printf("%-4s %-24s %8s %8s %6s %5s %5s\n", "RANK", "TEAM", "ELO", "WINRATE", "GAMES", "IMP", "CREW")
	for _, s := range standings {
		fmt.Printf("%-4d %-24s %8.1f %8.3f %6d %5d %5d\n", s.Rank, s.Team, s.Elo, s.WinRate, s.Games, s.AsImpostor, s.AsCrewmate)
	}
}
