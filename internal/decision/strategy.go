// Package decision implements the strategic decision engine: payoff matrix
// construction, pure-strategy Nash equilibrium enumeration, bounded decision
// tree search, multi-factor utility scoring, and the arbiter that fuses them
// into a single recommendation. Everything here is pure computation over
// in-memory values — no I/O, no globals, no randomness.
package decision

import "fmt"

// Role is the closed set of combat roles an agent can have.
type Role uint8

const (
	RoleAttack Role = iota
	RoleDefense
	RoleControl
	RoleMovement
	RoleCore

	numRoles = 5
)

var roleNames = [numRoles]string{"attack", "defense", "control", "movement", "core"}

// String returns the lowercase role name, or "unknown" for invalid roles.
func (r Role) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return roleNames[r]
}

// Valid reports whether r is one of the five defined roles.
func (r Role) Valid() bool {
	return r < numRoles
}

// ParseRole converts a role name to its enum value.
func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Strategy labels. Each role owns exactly three; the sets are fixed and
// never mutated at runtime.
const (
	StratAggressive    = "aggressive"
	StratFeint         = "feint"
	StratOpportunistic = "opportunistic"
	StratProtective    = "protective"
	StratCounter       = "counter"
	StratEvasive       = "evasive"
	StratSuppress      = "suppress"
	StratRedirect      = "redirect"
	StratStall         = "stall"
	StratFlank         = "flank"
	StratReposition    = "reposition"
	StratRetreat       = "retreat"
	StratOvercharge    = "overcharge"
	StratFortify       = "fortify"
	StratBalance       = "balance"
)

var strategySets = [numRoles][3]string{
	RoleAttack:   {StratAggressive, StratFeint, StratOpportunistic},
	RoleDefense:  {StratProtective, StratCounter, StratEvasive},
	RoleControl:  {StratSuppress, StratRedirect, StratStall},
	RoleMovement: {StratFlank, StratReposition, StratRetreat},
	RoleCore:     {StratOvercharge, StratFortify, StratBalance},
}

// StrategySet returns the fixed ordered strategy labels for a role.
func StrategySet(role Role) ([]string, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %d", ErrUnknownRole, role)
	}
	set := strategySets[role]
	return []string{set[0], set[1], set[2]}, nil
}

// strategyProfile holds the static per-label constants consulted by the
// payoff and tree engines.
type strategyProfile struct {
	aggressiveness float64 // additive payoff modifier, roughly [-2, +3]
	basePayoff     float64 // base payoff for tree nodes carrying this label
	aggressive     bool    // triggers counter punishment from the opponent
	defensive      bool    // receives the high-threat bonus
	opportunistic  bool    // receives the high-scarcity bonus
	cooperative    bool    // non-aggressive; eligible for the social bonus
	counterWeight  float64 // how hard this label punishes aggressive opponents
}

var strategyProfiles = map[string]strategyProfile{
	StratAggressive:    {aggressiveness: 3.0, basePayoff: 8.0, aggressive: true},
	StratFeint:         {aggressiveness: 1.0, basePayoff: 6.0, opportunistic: true},
	StratOpportunistic: {aggressiveness: 0.5, basePayoff: 6.5, opportunistic: true, cooperative: true},
	StratProtective:    {aggressiveness: -1.5, basePayoff: 7.0, defensive: true, cooperative: true, counterWeight: 3.0},
	StratCounter:       {aggressiveness: 0.5, basePayoff: 6.5, defensive: true, counterWeight: 4.0},
	StratEvasive:       {aggressiveness: -2.0, basePayoff: 5.0, defensive: true, cooperative: true},
	StratSuppress:      {aggressiveness: 2.0, basePayoff: 7.0, aggressive: true},
	StratRedirect:      {aggressiveness: 0.0, basePayoff: 6.0, opportunistic: true, cooperative: true},
	StratStall:         {aggressiveness: -1.0, basePayoff: 5.5, defensive: true, cooperative: true},
	StratFlank:         {aggressiveness: 1.5, basePayoff: 7.0, aggressive: true, opportunistic: true},
	StratReposition:    {aggressiveness: 0.0, basePayoff: 6.0, cooperative: true},
	StratRetreat:       {aggressiveness: -2.0, basePayoff: 4.5, defensive: true, cooperative: true},
	StratOvercharge:    {aggressiveness: 2.5, basePayoff: 8.0, aggressive: true},
	StratFortify:       {aggressiveness: -1.5, basePayoff: 6.5, defensive: true, cooperative: true, counterWeight: 2.0},
	StratBalance:       {aggressiveness: 0.0, basePayoff: 6.0, cooperative: true},
}

// alignedStrategies lists the two labels most natural to each role. A
// utility candidate matching one of these earns a small confidence bonus.
var alignedStrategies = [numRoles][2]string{
	RoleAttack:   {StratAggressive, StratOpportunistic},
	RoleDefense:  {StratProtective, StratCounter},
	RoleControl:  {StratSuppress, StratRedirect},
	RoleMovement: {StratFlank, StratReposition},
	RoleCore:     {StratFortify, StratBalance},
}

func isAligned(role Role, label string) bool {
	if !role.Valid() {
		return false
	}
	return alignedStrategies[role][0] == label || alignedStrategies[role][1] == label
}

// AgentView is the engine's read-only view of an agent: identity, role, and
// a numeric stat snapshot. Callers build one per decision; it is never
// mutated by the engine.
type AgentView struct {
	ID    string
	Role  Role
	Stats map[string]float64
}
