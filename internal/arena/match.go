// Match pairing and resolution — runs rounds of one-on-one engagements
// driven by the decision engine.
package arena

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/strategos/internal/agents"
	"github.com/talgya/strategos/internal/decision"
	"github.com/talgya/strategos/internal/entropy"
)

// Match is the resolved outcome of one engagement.
type Match struct {
	Round    uint64 `json:"round"`
	X, Y     int    `json:"-"`
	AgentA   string `json:"agent_a"`
	AgentB   string `json:"agent_b"`
	StratA   string `json:"strategy_a"`
	StratB   string `json:"strategy_b"`
	ConfA    float64 `json:"confidence_a"`
	ConfB    float64 `json:"confidence_b"`
	PayoffA  float64 `json:"payoff_a"`
	PayoffB  float64 `json:"payoff_b"`
	WinnerID string  `json:"winner_id,omitempty"` // empty on a draw
}

// Decision captures one agent's recommendation for the round, kept for
// persistence and the API.
type Decision struct {
	Round      uint64  `json:"round"`
	AgentID    string  `json:"agent_id"`
	OpponentID string  `json:"opponent_id"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Reasoning  string  `json:"reasoning"`
}

// Event is a notable occurrence in the arena.
type Event struct {
	Round       uint64 `json:"round"`
	Description string `json:"description"`
	Category    string `json:"category"` // "match", "elimination", "spawn"
}

// SimStats tracks aggregate arena statistics.
type SimStats struct {
	AliveAgents    int     `json:"alive_agents"`
	TotalMatches   int     `json:"total_matches"`
	TotalDraws     int     `json:"total_draws"`
	Eliminations   int     `json:"eliminations"`
	AvgConfidence  float64 `json:"avg_confidence"`
	decisionsTaken int
	confidenceSum  float64
}

// Simulation holds the arena state and wires the engine to it.
// RunRound mutates agents, events, and stats under mu; the HTTP layer must
// read through the snapshot accessors, never the live fields.
type Simulation struct {
	mu sync.RWMutex

	Field      *Field
	Agents     []*agents.Agent
	AgentIndex map[string]*agents.Agent
	Arbiter    *decision.Arbiter
	Rand       entropy.Source

	Events    []Event
	LastRound uint64
	Stats     SimStats

	payoff *decision.PayoffEngine
}

// NewSimulation assembles an arena from its parts.
func NewSimulation(field *Field, ag []*agents.Agent, arb *decision.Arbiter, src entropy.Source) *Simulation {
	index := make(map[string]*agents.Agent, len(ag))
	for _, a := range ag {
		index[a.ID] = a
	}
	sim := &Simulation{
		Field:      field,
		Agents:     ag,
		AgentIndex: index,
		Arbiter:    arb,
		Rand:       src,
		payoff:     decision.NewPayoffEngine(),
	}
	sim.updateStats()
	return sim
}

// RunRound pairs up the living agents, resolves every match, and returns
// the round's matches and per-agent decisions.
func (s *Simulation) RunRound() ([]Match, []Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastRound++
	round := s.LastRound

	alive := s.aliveAgents()
	s.shuffle(alive)

	var matches []Match
	var decisions []Decision
	for i := 0; i+1 < len(alive); i += 2 {
		m, da, db := s.resolveMatch(round, alive[i], alive[i+1])
		matches = append(matches, m)
		decisions = append(decisions, da, db)
	}

	s.updateStats()
	return matches, decisions
}

// resolveMatch runs both agents through the arbiter at a shared field cell
// and settles the outcome from the chosen strategy pair's payoff cell.
func (s *Simulation) resolveMatch(round uint64, a, b *agents.Agent) (Match, Decision, Decision) {
	x := s.Rand.Intn(s.Field.Size)
	y := s.Rand.Intn(s.Field.Size)
	cell := s.Field.At(x, y)

	ctxA := s.matchContext(cell, a, b)
	ctxB := s.matchContext(cell, b, a)

	viewA, viewB := a.View(), b.View()
	recA, errA := s.Arbiter.Decide(viewA, &viewB, ctxA)
	recB, errB := s.Arbiter.Decide(viewB, &viewA, ctxB)
	if errA != nil || errB != nil {
		slog.Error("match decision failed", "round", round, "a", a.ID, "b", b.ID,
			"err_a", errA, "err_b", errB)
		return Match{Round: round, AgentA: a.ID, AgentB: b.ID}, Decision{}, Decision{}
	}

	payA, payB := s.strategyPayoffs(viewA, viewB, ctxA, recA.Strategy, recB.Strategy)

	m := Match{
		Round: round, X: x, Y: y,
		AgentA: a.ID, AgentB: b.ID,
		StratA: recA.Strategy, StratB: recB.Strategy,
		ConfA: recA.Confidence, ConfB: recB.Confidence,
		PayoffA: payA, PayoffB: payB,
	}

	switch {
	case payA > payB:
		m.WinnerID = a.ID
	case payB > payA:
		m.WinnerID = b.ID
	}
	s.applyOutcome(round, a, b, &m)

	a.RecordEncounter(b.ID)
	b.RecordEncounter(a.ID)

	s.Stats.TotalMatches++
	if m.WinnerID == "" {
		s.Stats.TotalDraws++
	}
	s.recordConfidence(recA.Confidence)
	s.recordConfidence(recB.Confidence)

	da := Decision{Round: round, AgentID: a.ID, OpponentID: b.ID,
		Strategy: recA.Strategy, Confidence: recA.Confidence,
		Method: recA.Analysis.Method, Reasoning: recA.Reasoning}
	db := Decision{Round: round, AgentID: b.ID, OpponentID: a.ID,
		Strategy: recB.Strategy, Confidence: recB.Confidence,
		Method: recB.Analysis.Method, Reasoning: recB.Reasoning}
	return m, da, db
}

// matchContext builds the decision context one agent sees: the cell's
// environment plus its own stats and the visible opponent readings.
func (s *Simulation) matchContext(cell Cell, self, opp *agents.Agent) *decision.Context {
	factors := self.FactorMap()
	factors["enemyHealth"] = opp.Stats.Health
	factors["enemyEnergy"] = opp.Stats.Energy
	factors["threat"] = cell.Threat
	if opp.Role == decision.RoleAttack {
		factors["underAttack"] = 1
	}

	horizon := 1
	complex := false
	if cell.Threat > 0.6 || cell.Environment == decision.EnvExploration {
		// Dangerous or open ground rewards planning ahead.
		horizon = 3
		complex = true
	}

	return &decision.Context{
		Environment:       cell.Environment,
		ThreatLevel:       cell.Threat,
		ResourceScarcity:  cell.Scarcity,
		SocialFactor:      cell.Social,
		TimeHorizon:       horizon,
		Complex:           complex,
		PriorInteractions: self.Encounters,
		Factors:           factors,
	}
}

// strategyPayoffs looks the chosen strategy pair up in the payoff matrix.
// A fallback matrix covers any role the engine rejected.
func (s *Simulation) strategyPayoffs(a, b decision.AgentView, ctx *decision.Context, stratA, stratB string) (float64, float64) {
	m, err := s.payoff.Build(a, b, ctx)
	if err != nil {
		m = decision.FallbackMatrix(a.ID, b.ID)
	}

	ia := indexOf(m.Strategies(0), stratA)
	ib := indexOf(m.Strategies(1), stratB)
	if ia < 0 || ib < 0 {
		// Strategy came from a different engine path than the matrix;
		// score both at the matrix midpoint.
		return 10, 10
	}
	return m.Payoff(0, ia, ib), m.Payoff(1, ib, ia)
}

// applyOutcome settles stat changes: the loser takes damage scaled by the
// payoff margin, both sides spend energy, and agents at zero health are
// eliminated.
func (s *Simulation) applyOutcome(round uint64, a, b *agents.Agent, m *Match) {
	const energyCost = 5.0

	a.Stats.Energy = max0(a.Stats.Energy - energyCost)
	b.Stats.Energy = max0(b.Stats.Energy - energyCost)

	if m.WinnerID == "" {
		return
	}

	winner, loser := a, b
	margin := m.PayoffA - m.PayoffB
	if m.WinnerID == b.ID {
		winner, loser = b, a
		margin = -margin
	}

	dmg := winner.Stats.Damage * (0.5 + margin/20)
	loser.Stats.Health = max0(loser.Stats.Health - dmg)

	winner.RecordResult(true)
	loser.RecordResult(false)

	s.Events = append(s.Events, Event{
		Round:       round,
		Description: fmt.Sprintf("%s defeated %s (%.1f dmg)", winner.Name, loser.Name, dmg),
		Category:    "match",
	})

	if loser.Stats.Health <= 0 {
		loser.Alive = false
		s.Stats.Eliminations++
		s.Events = append(s.Events, Event{
			Round:       round,
			Description: fmt.Sprintf("%s was eliminated", loser.Name),
			Category:    "elimination",
		})
	}
}

func (s *Simulation) aliveAgents() []*agents.Agent {
	var out []*agents.Agent
	for _, a := range s.Agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// shuffle is a Fisher-Yates pass over the pairing pool using the arena's
// entropy source, so seeded runs pair identically.
func (s *Simulation) shuffle(ag []*agents.Agent) {
	for i := len(ag) - 1; i > 0; i-- {
		j := s.Rand.Intn(i + 1)
		ag[i], ag[j] = ag[j], ag[i]
	}
}

func (s *Simulation) recordConfidence(c float64) {
	s.Stats.decisionsTaken++
	s.Stats.confidenceSum += c
}

func (s *Simulation) updateStats() {
	alive := 0
	for _, a := range s.Agents {
		if a.Alive {
			alive++
		}
	}
	s.Stats.AliveAgents = alive
	if s.Stats.decisionsTaken > 0 {
		s.Stats.AvgConfidence = s.Stats.confidenceSum / float64(s.Stats.decisionsTaken)
	}
}

// RoundAndStats returns the round counter and a stats copy.
func (s *Simulation) RoundAndStats() (uint64, SimStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastRound, s.Stats
}

// AgentSnapshots returns detached copies of every agent.
func (s *Simulation) AgentSnapshots() []agents.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agents.Agent, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = a.Snapshot()
	}
	return out
}

// AgentSnapshot returns a detached copy of one agent by id.
func (s *Simulation) AgentSnapshot(id string) (agents.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.AgentIndex[id]
	if !ok {
		return agents.Agent{}, false
	}
	return a.Snapshot(), true
}

// EventsTail copies out the most recent events, newest last.
func (s *Simulation) EventsTail(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	out := make([]Event, len(s.Events)-start)
	copy(out, s.Events[start:])
	return out
}

// DrainEvents hands the accumulated events to the caller and clears the
// buffer.
func (s *Simulation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.Events
	s.Events = nil
	return out
}

func indexOf(set []string, label string) int {
	for i, s := range set {
		if s == label {
			return i
		}
	}
	return -1
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
