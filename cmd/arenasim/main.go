// Command arenasim runs the strategic decision arena: agents spawned onto
// a noise-generated field fight rounds of matches, each side choosing its
// strategy through the payoff/Nash, decision-tree, and utility engines.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/strategos/internal/agents"
	"github.com/talgya/strategos/internal/api"
	"github.com/talgya/strategos/internal/arena"
	"github.com/talgya/strategos/internal/config"
	"github.com/talgya/strategos/internal/decision"
	"github.com/talgya/strategos/internal/entropy"
	"github.com/talgya/strategos/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Strategos — strategic decision arena",
		"seed", cfg.Seed, "agents", cfg.AgentCount, "field", cfg.FieldSize)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Arena setup ───────────────────────────────────────────────────
	field := arena.NewField(cfg.FieldSize, cfg.Seed)
	spawner := agents.NewSpawner(cfg.Seed)
	population := spawner.SpawnPopulation(cfg.AgentCount, 0)
	for _, a := range population {
		slog.Info("combatant spawned", "name", a.Name, "role", a.Role.String(),
			"health", fmt.Sprintf("%.0f", a.Stats.Health),
			"damage", fmt.Sprintf("%.0f", a.Stats.Damage))
	}

	arbiter := decision.NewArbiter()
	sim := arena.NewSimulation(field, population, arbiter, entropy.ForSeed(cfg.Seed))

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("ARENA_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:      sim,
		Arbiter:  arbiter,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Round loop ────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.RoundInterval) * time.Second)
	defer ticker.Stop()

	fmt.Printf("\nArena live: %d combatants on a %dx%d field.\n",
		len(population), cfg.FieldSize, cfg.FieldSize)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Running rounds... (Ctrl+C to stop)")

loop:
	for {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			break loop
		case <-ticker.C:
			matches, decisions := sim.RunRound()
			slog.Info("round complete", "round", sim.LastRound,
				"matches", len(matches), "alive", sim.Stats.AliveAgents)

			if err := db.SaveArenaState(sim, matches, decisions); err != nil {
				slog.Error("round save failed", "error", err)
			}

			if sim.Stats.AliveAgents < 2 {
				slog.Info("arena resolved", "rounds", sim.LastRound)
				break loop
			}
		}
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveArenaState(sim, nil, nil); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Arena stopped. State saved.")
}
