package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tycoonplay/tycoon-server-go/internal/config"
	"github.com/tycoonplay/tycoon-server-go/internal/game"
	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	turns      = flag.Int("turns", 5, "number of game turns to simulate")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting tycoon simulation",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.Int64("seed", cfg.Simulation.Seed),
	)

	registry := skill.NewRegistry(logger)
	registry.SetCacheLimit(cfg.Skills.CacheLimit)
	registry.SetCacheTTL(cfg.Skills.CacheTTLTicks)
	if cfg.Skills.DefinitionFile != "" {
		if loaded, loadErr := registry.LoadFile(cfg.Skills.DefinitionFile); loadErr != nil {
			logger.Warn("skill definitions unavailable, continuing without",
				zap.String("file", cfg.Skills.DefinitionFile),
				zap.Error(loadErr),
			)
		} else {
			logger.Info("skill registry ready", zap.Int("definitions", loaded))
		}
	}

	world := game.NewWorld(cfg.Simulation.Seed, registry, logger)
	world.SetActionLimits(cfg.Simulation.ActionQueueLimit, cfg.Simulation.ActionTimeoutTicks)

	// Log every notification the core emits.
	world.Bus().Subscribe(func(evt events.Event) {
		logger.Info("event",
			zap.String("type", string(evt.Type)),
			zap.String("role", evt.RoleID),
			zap.Int("amount", evt.Amount),
			zap.String("data", evt.Data),
		)
	})

	alice, err := world.NewPlayer(game.RoleConfig{
		Name:      "Alice",
		StartTile: 0,
		Attributes: map[attrs.Kind]int{
			attrs.KindMoney: 15000,
			attrs.KindLuck:  50,
			attrs.KindHP:    100,
		},
	})
	if err != nil {
		logger.Fatal("failed to create player", zap.Error(err))
	}
	bob, err := world.NewPlayer(game.RoleConfig{
		Name:      "Bob",
		StartTile: 0,
		Attributes: map[attrs.Kind]int{
			attrs.KindMoney: 15000,
			attrs.KindLuck:  30,
			attrs.KindHP:    100,
		},
	})
	if err != nil {
		logger.Fatal("failed to create player", zap.Error(err))
	}

	bomb, err := world.NewNPC(game.NPCBomb, game.NPCOverrides{}, game.RoleConfig{
		Name:      "Bomb",
		StartTile: 7,
	})
	if err != nil {
		logger.Fatal("failed to create npc", zap.Error(err))
	}

	// A short scripted session: buy, move, walk into the bomb, settle up.
	alice.BuyProperty(game.Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000, TileID: 3})
	alice.MoveTo(game.MoveParams{TargetTile: 3})
	bob.MoveTo(game.MoveParams{TargetTile: 7})
	if result := bomb.TriggerEffect(bob, game.TriggerOnEnter); result.Success {
		logger.Info("bomb detonated",
			zap.String("target", bob.ID()),
			zap.Int("money_delta", result.MoneyDelta),
		)
	}
	bob.PayMoney(2000, "rent")

	for i := 0; i < *turns; i++ {
		world.AdvanceTurn()
		world.AdvanceTicks(10)
	}

	for _, p := range []*game.Player{alice, bob} {
		snapshot := game.ExportPlayer(p)
		logger.Info("final standing",
			zap.String("player", p.DisplayName()),
			zap.Int("cash", p.Cash()),
			zap.Int("total_assets", p.TotalAssets()),
			zap.String("state", string(p.State())),
			zap.String("checksum", snapshot.Checksum()),
		)
	}

	logger.Info("simulation finished", zap.Int("turns", world.TurnNumber()))
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
