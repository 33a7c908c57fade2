package decision

import (
	"fmt"
	"math"
)

// Payoff bounds. Every cell is clamped into this range after context
// modifiers so stacked bonuses cannot run away.
const (
	payoffFloor = 1.0
	payoffCeil  = 20.0
	payoffBase  = 10.0
)

// roleAdvantage is the static role-vs-role advantage table. Rows are the
// acting player's role, columns the opponent's. Asymmetric on purpose:
// attack punches through core but folds against defense, control shuts
// down defense but loses the footrace against movement, and so on.
var roleAdvantage = [numRoles][numRoles]float64{
	RoleAttack:   {0, -4, 3, 2, 6},
	RoleDefense:  {4, 0, -2, 1, 3},
	RoleControl:  {-2, 5, 0, -3, 4},
	RoleMovement: {1, -1, 6, 0, -2},
	RoleCore:     {-5, 2, -4, 3, 0},
}

// roleSynergy multiplies the *opponent's* payoff: synergy[a][b] scales what
// role b earns when facing role a. Values near 1.0; asymmetric.
var roleSynergy = [numRoles][numRoles]float64{
	RoleAttack:   {1.0, 1.15, 0.9, 1.0, 0.85},
	RoleDefense:  {0.9, 1.0, 1.1, 1.05, 1.0},
	RoleControl:  {1.1, 0.85, 1.0, 1.2, 0.95},
	RoleMovement: {1.0, 1.05, 0.8, 1.0, 1.15},
	RoleCore:     {1.2, 0.95, 1.05, 0.9, 1.0},
}

// envStrategyBonus gives per-environment additive bonuses to specific
// strategy labels.
var envStrategyBonus = map[Environment]map[string]float64{
	EnvBattle: {
		StratAggressive: 2.0, StratCounter: 1.5, StratOvercharge: 1.5,
		StratSuppress: 1.0, StratFlank: 1.0,
	},
	EnvCooperation: {
		StratBalance: 2.0, StratRedirect: 1.5, StratStall: 1.0,
		StratProtective: 1.0, StratReposition: 1.0,
	},
	EnvExploration: {
		StratReposition: 2.0, StratFlank: 1.5, StratOpportunistic: 1.5,
		StratEvasive: 1.0,
	},
	EnvEvolution: {
		StratBalance: 1.5, StratFortify: 1.5, StratOpportunistic: 1.0,
	},
}

// Player identifies one side of a payoff matrix.
type Player struct {
	ID         string
	Role       Role
	Strategies []string
}

// PayoffMatrix is a two-player normal-form game. payoffs[p][own][opp] is
// player p's payoff when p plays its own strategy index `own` and the
// other player plays index `opp`. Fully populated and read-only after
// construction.
type PayoffMatrix struct {
	Players  [2]Player
	payoffs  [2][][]float64
	Fallback bool // true when this is the hard-coded fallback matrix
}

// NewMatrix builds a matrix from explicit payoff tables. Used by the
// fallback path and by tests; PayoffEngine.Build is the normal entry point.
func NewMatrix(p0, p1 Player, pay0, pay1 [][]float64) *PayoffMatrix {
	return &PayoffMatrix{
		Players: [2]Player{p0, p1},
		payoffs: [2][][]float64{pay0, pay1},
	}
}

// Payoff returns player p's payoff for (own, opp) strategy indices.
func (m *PayoffMatrix) Payoff(p, own, opp int) float64 {
	return m.payoffs[p][own][opp]
}

// Strategies returns player p's strategy labels.
func (m *PayoffMatrix) Strategies(p int) []string {
	return m.Players[p].Strategies
}

// PayoffEngine builds payoff matrices from agent descriptors and contexts.
// Pure aside from its memoization cache.
type PayoffEngine struct {
	cache *Cache[*PayoffMatrix]
}

// NewPayoffEngine creates an engine with a bounded matrix cache.
func NewPayoffEngine() *PayoffEngine {
	return &PayoffEngine{cache: NewCache[*PayoffMatrix](256)}
}

// Build constructs the payoff matrix for two agents under an optional
// context. Returns ErrUnknownRole if either role is outside the enum; the
// caller is expected to fall back to FallbackMatrix in that case.
func (e *PayoffEngine) Build(a, b AgentView, ctx *Context) (*PayoffMatrix, error) {
	if !a.Role.Valid() || !b.Role.Valid() {
		return nil, fmt.Errorf("%w: %s vs %s", ErrUnknownRole, a.Role, b.Role)
	}

	key := fmt.Sprintf("%s|%s|%d|%d|%016x", a.ID, b.ID, a.Role, b.Role, ctx.Hash())
	if m, ok := e.cache.Get(key); ok {
		return m, nil
	}

	setA := strategySets[a.Role]
	setB := strategySets[b.Role]

	pay0 := newTable(3, 3)
	pay1 := newTable(3, 3)

	for i, s1 := range setA {
		for j, s2 := range setB {
			p0 := cellPayoff(a.Role, b.Role, s1, s2, ctx)
			p1 := cellPayoff(b.Role, a.Role, s2, s1, ctx)

			if ctx != nil {
				// Synergy scales the other player's payoff.
				p0 *= roleSynergy[b.Role][a.Role]
				p1 *= roleSynergy[a.Role][b.Role]

				// Mutual restraint pays when the social fabric is strong.
				if ctx.SocialFactor > 0.5 &&
					strategyProfiles[s1].cooperative && strategyProfiles[s2].cooperative {
					p0 += 2.0
					p1 += 2.0
				}

				// Familiarity with the opponent, flat across the pair.
				p0 += familiarityBonus(ctx, b.ID)
				p1 += familiarityBonus(ctx, a.ID)
			}

			pay0[i][j] = clampPayoff(p0)
			pay1[j][i] = clampPayoff(p1)
		}
	}

	m := NewMatrix(
		Player{ID: a.ID, Role: a.Role, Strategies: []string{setA[0], setA[1], setA[2]}},
		Player{ID: b.ID, Role: b.Role, Strategies: []string{setB[0], setB[1], setB[2]}},
		pay0, pay1,
	)
	e.cache.Put(key, m)
	return m, nil
}

// cellPayoff computes one player's raw payoff for a strategy pair, before
// synergy, the cooperative and familiarity bonuses, and clamping.
func cellPayoff(own, opp Role, ownStrat, oppStrat string, ctx *Context) float64 {
	prof := strategyProfiles[ownStrat]

	p := payoffBase + 0.5*roleAdvantage[own][opp] + prof.aggressiveness

	// Counter-style labels specifically punish aggression.
	if prof.aggressive {
		p -= strategyProfiles[oppStrat].counterWeight
	}

	if ctx == nil {
		return p
	}

	if bonus, ok := envStrategyBonus[ctx.Environment][ownStrat]; ok {
		p += bonus
	}
	if ctx.ThreatLevel > 0.5 && prof.defensive {
		p += (ctx.ThreatLevel - 0.5) * 4.0
	}
	if ctx.ResourceScarcity > 0.5 && prof.opportunistic {
		p += (ctx.ResourceScarcity - 0.5) * 4.0
	}
	return p
}

func familiarityBonus(ctx *Context, opponentID string) float64 {
	prior := ctx.priorInteractions(opponentID)
	if prior == 0 {
		return 0
	}
	return math.Min(2.0, math.Log2(float64(prior)+1))
}

// FallbackMatrix returns the hard-coded 2x2 balanced/aggressive matrix used
// when a role is unrecognized, so downstream engines never see an empty
// game.
func FallbackMatrix(idA, idB string) *PayoffMatrix {
	strategies := []string{"balanced", "aggressive"}
	pay := func() [][]float64 {
		return [][]float64{
			{5, 3},
			{7, 2},
		}
	}
	m := NewMatrix(
		Player{ID: idA, Role: numRoles, Strategies: strategies},
		Player{ID: idB, Role: numRoles, Strategies: strategies},
		pay(), pay(),
	)
	m.Fallback = true
	return m
}

// InvalidateCache drops all memoized matrices.
func (e *PayoffEngine) InvalidateCache() {
	e.cache.Purge()
}

func newTable(rows, cols int) [][]float64 {
	t := make([][]float64, rows)
	for i := range t {
		t[i] = make([]float64, cols)
	}
	return t
}

func clampPayoff(v float64) float64 {
	if v < payoffFloor {
		return payoffFloor
	}
	if v > payoffCeil {
		return payoffCeil
	}
	return v
}
