package decision

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"sort"
)

// Environment classifies the situation a decision is made in. It biases
// both payoff construction and the arbiter's engine weights.
type Environment uint8

const (
	EnvNone Environment = iota
	EnvBattle
	EnvCooperation
	EnvExploration
	EnvEvolution
)

var envNames = []string{"none", "battle", "cooperation", "exploration", "evolution"}

func (e Environment) String() string {
	if int(e) < len(envNames) {
		return envNames[e]
	}
	return "none"
}

// Context carries the optional situational modifiers for one decision.
// All fields are optional; the zero value is a valid "no context" context.
// Contexts are never mutated by the engine.
type Context struct {
	Environment      Environment
	ThreatLevel      float64 // [0,1]
	ResourceScarcity float64 // [0,1]
	SocialFactor     float64 // [0,1]
	TimeHorizon      int     // planning steps; >1 marks a multi-step scenario
	Complex          bool    // explicit multi-step flag

	// PriorInteractions counts past encounters keyed by opponent id.
	PriorInteractions map[string]int

	// Factors feeds the utility evaluator and tree state adjustments:
	// health, energy, damage, speed, position, enemyHealth, underAttack, …
	Factors map[string]float64

	// EngineWeights multiplies the arbiter's default engine weights.
	// Recognized keys: "nash", "utility", "tree". Keys prefixed "factor:"
	// instead override the utility evaluator's per-factor weights.
	EngineWeights map[string]float64
}

// MultiStep reports whether the context calls for decision tree search.
func (c *Context) MultiStep() bool {
	if c == nil {
		return false
	}
	return c.Complex || c.TimeHorizon > 1
}

// Factor returns a named factor value and whether it is present.
func (c *Context) Factor(name string) (float64, bool) {
	if c == nil || c.Factors == nil {
		return 0, false
	}
	v, ok := c.Factors[name]
	return v, ok
}

// Hash returns a structural hash of the context, used as part of cache
// keys. A nil context hashes to zero. Map entries are folded in sorted key
// order so the hash is deterministic.
func (c *Context) Hash() uint64 {
	if c == nil {
		return 0
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "e%d|t%.6f|s%.6f|o%.6f|h%d|c%t",
		c.Environment, c.ThreatLevel, c.ResourceScarcity, c.SocialFactor,
		c.TimeHorizon, c.Complex)

	hashFloatMap(h, "f", c.Factors)
	hashFloatMap(h, "w", c.EngineWeights)

	if len(c.PriorInteractions) > 0 {
		keys := make([]string, 0, len(c.PriorInteractions))
		for k := range c.PriorInteractions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "|p:%s=%d", k, c.PriorInteractions[k])
		}
	}
	return h.Sum64()
}

func hashFloatMap(h io.Writer, tag string, m map[string]float64) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s:%s=%x", tag, k, math.Float64bits(m[k]))
	}
}

// priorInteractions returns the encounter count with the given opponent.
func (c *Context) priorInteractions(opponentID string) int {
	if c == nil || c.PriorInteractions == nil {
		return 0
	}
	return c.PriorInteractions[opponentID]
}
