// Package agents provides the arena combatant data model and spawner.
package agents

import (
	"github.com/talgya/strategos/internal/decision"
)

// Stats is an agent's numeric combat state. All values are raw (not
// normalized); the decision engine normalizes them itself.
type Stats struct {
	Health   float64 `json:"health"`   // 0–100
	Energy   float64 `json:"energy"`   // 0–100
	Damage   float64 `json:"damage"`   // 0–50
	Speed    float64 `json:"speed"`    // 0–30
	Position float64 `json:"position"` // 0–10, positional advantage
}

// Agent is one combatant in the arena.
type Agent struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Role decision.Role `json:"role"`

	Stats Stats `json:"stats"`

	// Record
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	// Encounters counts past matches keyed by opponent id, feeding the
	// familiarity bonus in payoff construction.
	Encounters map[string]int `json:"encounters,omitempty"`

	BornRound uint64 `json:"born_round"`
	Alive     bool   `json:"alive"`
}

// FactorMap flattens the agent's stats into the factor names the decision
// engine understands.
func (a *Agent) FactorMap() map[string]float64 {
	return map[string]float64{
		"health":   a.Stats.Health,
		"energy":   a.Stats.Energy,
		"damage":   a.Stats.Damage,
		"speed":    a.Stats.Speed,
		"position": a.Stats.Position,
	}
}

// View builds the read-only descriptor the decision engine consumes.
func (a *Agent) View() decision.AgentView {
	return decision.AgentView{
		ID:    a.ID,
		Role:  a.Role,
		Stats: a.FactorMap(),
	}
}

// Snapshot returns a copy that is safe to read and serialize while the
// original keeps mutating.
func (a *Agent) Snapshot() Agent {
	out := *a
	if a.Encounters != nil {
		out.Encounters = make(map[string]int, len(a.Encounters))
		for id, n := range a.Encounters {
			out.Encounters[id] = n
		}
	}
	return out
}

// RecordEncounter bumps the familiarity counter for an opponent.
func (a *Agent) RecordEncounter(opponentID string) {
	if a.Encounters == nil {
		a.Encounters = make(map[string]int)
	}
	a.Encounters[opponentID]++
}

// RecordResult updates the win/loss tally.
func (a *Agent) RecordResult(won bool) {
	if won {
		a.Wins++
	} else {
		a.Losses++
	}
}

// WinRate returns wins over total matches, or 0 with no history.
func (a *Agent) WinRate() float64 {
	total := a.Wins + a.Losses
	if total == 0 {
		return 0
	}
	return float64(a.Wins) / float64(total)
}
