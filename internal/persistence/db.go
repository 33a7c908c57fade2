// Package persistence provides SQLite-based arena state storage.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/strategos/internal/agents"
	"github.com/talgya/strategos/internal/arena"
)

// DB wraps a SQLite connection for arena state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role INTEGER NOT NULL,
		health REAL NOT NULL,
		energy REAL NOT NULL,
		damage REAL NOT NULL,
		speed REAL NOT NULL,
		position REAL NOT NULL,
		wins INTEGER NOT NULL,
		losses INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		born_round INTEGER NOT NULL,
		encounters_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		agent_a TEXT NOT NULL,
		agent_b TEXT NOT NULL,
		strategy_a TEXT NOT NULL,
		strategy_b TEXT NOT NULL,
		confidence_a REAL NOT NULL,
		confidence_b REAL NOT NULL,
		payoff_a REAL NOT NULL,
		payoff_b REAL NOT NULL,
		winner_id TEXT
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		opponent_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		confidence REAL NOT NULL,
		method TEXT NOT NULL,
		reasoning TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS arena_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_round ON matches(round);
	CREATE INDEX IF NOT EXISTS idx_decisions_round ON decisions(round);
	CREATE INDEX IF NOT EXISTS idx_decisions_agent ON decisions(agent_id);
	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round);
	CREATE INDEX IF NOT EXISTS idx_agents_alive ON agents(alive);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(agentList []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, role, health, energy, damage, speed, position,
		 wins, losses, alive, born_round, encounters_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range agentList {
		encJSON, _ := json.Marshal(a.Encounters)

		alive := 0
		if a.Alive {
			alive = 1
		}

		_, err := stmt.Exec(
			a.ID, a.Name, a.Role,
			a.Stats.Health, a.Stats.Energy, a.Stats.Damage,
			a.Stats.Speed, a.Stats.Position,
			a.Wins, a.Losses, alive, a.BornRound, string(encJSON),
		)
		if err != nil {
			return fmt.Errorf("insert agent %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// SaveMatches appends match records.
func (db *DB) SaveMatches(matches []arena.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range matches {
		_, err := tx.Exec(`INSERT INTO matches
			(id, round, agent_a, agent_b, strategy_a, strategy_b,
			 confidence_a, confidence_b, payoff_a, payoff_b, winner_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), m.Round, m.AgentA, m.AgentB,
			m.StratA, m.StratB, m.ConfA, m.ConfB,
			m.PayoffA, m.PayoffB, m.WinnerID,
		)
		if err != nil {
			return fmt.Errorf("insert match round %d: %w", m.Round, err)
		}
	}

	return tx.Commit()
}

// SaveDecisions appends decision records.
func (db *DB) SaveDecisions(decisions []arena.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range decisions {
		_, err := tx.Exec(`INSERT INTO decisions
			(id, round, agent_id, opponent_id, strategy, confidence, method, reasoning)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), d.Round, d.AgentID, d.OpponentID,
			d.Strategy, d.Confidence, d.Method, d.Reasoning,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []arena.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (round, description, category) VALUES (?, ?, ?)",
			e.Round, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in arena metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO arena_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM arena_meta WHERE key = ?", key)
	return value, err
}

// SaveArenaState performs a full save of one round's worth of state.
func (db *DB) SaveArenaState(sim *arena.Simulation, matches []arena.Match, decisions []arena.Decision) error {
	slog.Info("saving arena state", "agents", len(sim.Agents), "matches", len(matches))

	if err := db.SaveAgents(sim.Agents); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveMatches(matches); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	if err := db.SaveDecisions(decisions); err != nil {
		return fmt.Errorf("save decisions: %w", err)
	}
	if err := db.SaveEvents(sim.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_round", fmt.Sprintf("%d", sim.LastRound)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	return nil
}

// matchRow mirrors the matches table for sqlx scanning.
type matchRow struct {
	Round    uint64  `db:"round"`
	AgentA   string  `db:"agent_a"`
	AgentB   string  `db:"agent_b"`
	StratA   string  `db:"strategy_a"`
	StratB   string  `db:"strategy_b"`
	ConfA    float64 `db:"confidence_a"`
	ConfB    float64 `db:"confidence_b"`
	PayoffA  float64 `db:"payoff_a"`
	PayoffB  float64 `db:"payoff_b"`
	WinnerID string  `db:"winner_id"`
}

// RecentMatches returns the most recent N matches, newest first.
func (db *DB) RecentMatches(limit int) ([]arena.Match, error) {
	var rows []matchRow
	err := db.conn.Select(&rows, `SELECT round, agent_a, agent_b,
		strategy_a, strategy_b, confidence_a, confidence_b,
		payoff_a, payoff_b, winner_id
		FROM matches ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]arena.Match, len(rows))
	for i, r := range rows {
		out[i] = arena.Match{
			Round: r.Round, AgentA: r.AgentA, AgentB: r.AgentB,
			StratA: r.StratA, StratB: r.StratB,
			ConfA: r.ConfA, ConfB: r.ConfB,
			PayoffA: r.PayoffA, PayoffB: r.PayoffB,
			WinnerID: r.WinnerID,
		}
	}
	return out, nil
}

// RecentDecisions returns the most recent N decision records, newest first.
func (db *DB) RecentDecisions(limit int) ([]arena.Decision, error) {
	var rows []struct {
		Round      uint64  `db:"round"`
		AgentID    string  `db:"agent_id"`
		OpponentID string  `db:"opponent_id"`
		Strategy   string  `db:"strategy"`
		Confidence float64 `db:"confidence"`
		Method     string  `db:"method"`
		Reasoning  string  `db:"reasoning"`
	}
	err := db.conn.Select(&rows, `SELECT round, agent_id, opponent_id,
		strategy, confidence, method, reasoning
		FROM decisions ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]arena.Decision, len(rows))
	for i, r := range rows {
		out[i] = arena.Decision{
			Round: r.Round, AgentID: r.AgentID, OpponentID: r.OpponentID,
			Strategy: r.Strategy, Confidence: r.Confidence,
			Method: r.Method, Reasoning: r.Reasoning,
		}
	}
	return out, nil
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]arena.Event, error) {
	var events []arena.Event
	err := db.conn.Select(&events,
		"SELECT round, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
