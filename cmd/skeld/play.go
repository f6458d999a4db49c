package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skeld/internal/agent"
	"skeld/internal/config"
	"skeld/internal/game"
	"skeld/internal/tournament"
)

var (
	playAgents string
	playConfig string
	playOutput string
	playEvents string
	playSeed   int64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a single game and write its log",
	Long: `Run one game between the listed agents and write the full result
log as JSON. With no --agents the lobby is 2 random + 5 rulebased.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playAgents, "agents", "", "comma-separated agent specs (random, rulebased, gemini[:model])")
	playCmd.Flags().StringVar(&playConfig, "config", "", "JSON rules file layered over the defaults")
	playCmd.Flags().StringVar(&playOutput, "output", "game_log.json", "result log path")
	playCmd.Flags().StringVar(&playEvents, "events", "", "append engine events as JSONL to this file")
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "game seed (0 draws one from the clock)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadRules(playConfig)
	if err != nil {
		logger.Error("invalid rules", zap.Error(err))
		return err
	}
	specs := defaultLobby()
	if playAgents != "" {
		specs = splitSpecs(playAgents)
	}
	for _, spec := range specs {
		if !agent.Known(spec) {
			err := &game.ConfigError{Field: "agents", Msg: fmt.Sprintf("unknown agent spec %q", spec)}
			logger.Error("invalid lobby", zap.Error(err))
			return err
		}
	}
	// The lobby size wins over the rules file: the game is played by
	// exactly the agents asked for.
	if len(specs) != cfg.NumPlayers {
		cfg.NumPlayers = len(specs)
		if cfg.Validate() != nil {
			cfg.NumImpostors = max(1, len(specs)/2-1)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid rules", zap.Error(err))
		return err
	}

	seed := playSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logger.Info("starting game",
		zap.Int64("seed", seed),
		zap.Strings("agents", specs),
		zap.Int("players", cfg.NumPlayers),
		zap.Int("impostors", cfg.NumImpostors))

	var eventLog *game.EventLog
	if playEvents != "" {
		eventLog = game.NewEventLog()
		if err := eventLog.Start(playEvents); err != nil {
			return err
		}
		defer eventLog.Stop()
	}

	appCfg := config.FromEnv()
	seats := make([]game.Seat, len(specs))
	for i, spec := range specs {
		a, err := agent.New(ctx, spec, agent.Options{
			Seed:   rng.Int63(),
			Seat:   i,
			APIKey: appCfg.Gemini.APIKey,
			Logger: logger,
		})
		if err != nil {
			logger.Error("agent construction failed", zap.String("spec", spec), zap.Error(err))
			return err
		}
		seats[i] = game.Seat{PlayerID: fmt.Sprintf("player_%d", i), Agent: a}
	}

	engine, err := game.NewEngine(cfg, seats, game.Options{
		Seed:     rng.Int63(),
		Logger:   logger,
		EventLog: eventLog,
	})
	if err != nil {
		logger.Error("engine construction failed", zap.Error(err))
		return err
	}
	result, err := engine.Run(ctx)
	if err != nil {
		logger.Error("game aborted", zap.Error(err))
		return err
	}

	fmt.Printf("Winner: %s (%s) after %d rounds\n", result.Winner, result.Cause, result.FinalRound)
	fmt.Printf("Impostors were: %s\n", strings.Join(result.ImpostorIDs(), ", "))
	if err := tournament.WriteJSON(playOutput, result); err != nil {
		logger.Error("writing result failed", zap.Error(err))
		return err
	}
	fmt.Printf("Log written to %s\n", playOutput)
	return nil
}

func defaultLobby() []string {
	specs := make([]string, 0, 7)
	for i := 0; i < 2; i++ {
		specs = append(specs, agent.SpecRandom)
	}
	for i := 0; i < 5; i++ {
		specs = append(specs, agent.SpecRuleBased)
	}
	return specs
}

func splitSpecs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
