package decision

import (
	"math"
	"testing"
)

func testAgents(r0, r1 Role) (AgentView, AgentView) {
	return AgentView{ID: "a1", Role: r0}, AgentView{ID: "a2", Role: r1}
}

func TestBuildMatrixDimensions(t *testing.T) {
	e := NewPayoffEngine()

	for r0 := Role(0); r0 < numRoles; r0++ {
		for r1 := Role(0); r1 < numRoles; r1++ {
			a, b := testAgents(r0, r1)
			m, err := e.Build(a, b, nil)
			if err != nil {
				t.Fatalf("Build(%s, %s): %v", r0, r1, err)
			}
			if got := len(m.Strategies(0)); got != 3 {
				t.Errorf("%s vs %s: player 0 has %d strategies, want 3", r0, r1, got)
			}
			if got := len(m.Strategies(1)); got != 3 {
				t.Errorf("%s vs %s: player 1 has %d strategies, want 3", r0, r1, got)
			}
		}
	}
}

func TestPayoffBounds(t *testing.T) {
	contexts := []*Context{
		nil,
		{Environment: EnvBattle, ThreatLevel: 1, ResourceScarcity: 1, SocialFactor: 1},
		{Environment: EnvCooperation, SocialFactor: 0.9,
			PriorInteractions: map[string]int{"a1": 50, "a2": 50}},
	}

	for ci, ctx := range contexts {
		e := NewPayoffEngine()
		for r0 := Role(0); r0 < numRoles; r0++ {
			for r1 := Role(0); r1 < numRoles; r1++ {
				a, b := testAgents(r0, r1)
				m, err := e.Build(a, b, ctx)
				if err != nil {
					t.Fatalf("Build: %v", err)
				}
				for p := 0; p < 2; p++ {
					for i := 0; i < 3; i++ {
						for j := 0; j < 3; j++ {
							v := m.Payoff(p, i, j)
							if v < payoffFloor || v > payoffCeil {
								t.Errorf("ctx %d, %s vs %s: payoff[%d][%d][%d] = %.2f out of [%.0f, %.0f]",
									ci, r0, r1, p, i, j, v, payoffFloor, payoffCeil)
							}
						}
					}
				}
			}
		}
	}
}

// A counter-stance opponent should make aggression pay worse than it does
// against a passive stance.
func TestCounterPunishesAggression(t *testing.T) {
	e := NewPayoffEngine()
	a, b := testAgents(RoleAttack, RoleDefense)
	m, err := e.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	agg := indexOfStrategy(t, m.Strategies(0), StratAggressive)
	counter := indexOfStrategy(t, m.Strategies(1), StratCounter)
	evasive := indexOfStrategy(t, m.Strategies(1), StratEvasive)

	vsCounter := m.Payoff(0, agg, counter)
	vsEvasive := m.Payoff(0, agg, evasive)
	if vsCounter >= vsEvasive {
		t.Errorf("aggressive vs counter = %.2f, vs evasive = %.2f; want counter strictly worse for the attacker",
			vsCounter, vsEvasive)
	}
}

func TestBuildDeterministic(t *testing.T) {
	ctx := &Context{
		Environment: EnvBattle, ThreatLevel: 0.7, ResourceScarcity: 0.4,
		Factors:           map[string]float64{"health": 55, "energy": 80},
		PriorInteractions: map[string]int{"a2": 3},
	}

	a, b := testAgents(RoleAttack, RoleControl)
	m1, err := NewPayoffEngine().Build(a, b, ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m2, err := NewPayoffEngine().Build(a, b, ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for p := 0; p < 2; p++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if m1.Payoff(p, i, j) != m2.Payoff(p, i, j) {
					t.Fatalf("payoff[%d][%d][%d] differs across identical builds: %v vs %v",
						p, i, j, m1.Payoff(p, i, j), m2.Payoff(p, i, j))
				}
			}
		}
	}
}

func TestBuildCacheHit(t *testing.T) {
	e := NewPayoffEngine()
	a, b := testAgents(RoleDefense, RoleMovement)

	m1, err := e.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m2, err := e.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m1 != m2 {
		t.Error("second identical Build did not hit the cache")
	}

	e.InvalidateCache()
	m3, err := e.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m1 == m3 {
		t.Error("Build after InvalidateCache returned the cached matrix")
	}
}

func TestBuildUnknownRole(t *testing.T) {
	e := NewPayoffEngine()
	a := AgentView{ID: "a1", Role: Role(99)}
	b := AgentView{ID: "a2", Role: RoleAttack}

	if _, err := e.Build(a, b, nil); err == nil {
		t.Fatal("Build with unknown role succeeded, want error")
	}
}

func TestFallbackMatrix(t *testing.T) {
	m := FallbackMatrix("x", "y")

	if !m.Fallback {
		t.Error("Fallback flag not set")
	}
	if got := len(m.Strategies(0)); got != 2 {
		t.Fatalf("fallback matrix has %d strategies, want 2", got)
	}
	if m.Payoff(0, 0, 0) != 5 || m.Payoff(0, 1, 0) != 7 {
		t.Errorf("unexpected fallback payoffs: %v, %v", m.Payoff(0, 0, 0), m.Payoff(0, 1, 0))
	}
}

func TestFamiliarityBonus(t *testing.T) {
	a, b := testAgents(RoleAttack, RoleDefense)

	base, err := NewPayoffEngine().Build(a, b, &Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	familiar, err := NewPayoffEngine().Build(a, b, &Context{
		PriorInteractions: map[string]int{"a2": 7},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if familiar.Payoff(0, 0, 0) <= base.Payoff(0, 0, 0) {
		t.Errorf("familiarity did not raise payoff: %.2f vs %.2f",
			familiar.Payoff(0, 0, 0), base.Payoff(0, 0, 0))
	}
}

// Synergy and the other context modifiers only apply when a context is
// present; without one a cell is the bare role/strategy arithmetic.
func TestSynergyRequiresContext(t *testing.T) {
	a, b := testAgents(RoleAttack, RoleDefense)

	bare, err := NewPayoffEngine().Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	withCtx, err := NewPayoffEngine().Build(a, b, &Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	agg := indexOfStrategy(t, bare.Strategies(0), StratAggressive)
	counter := indexOfStrategy(t, bare.Strategies(1), StratCounter)

	// base 10 + 0.5·(-4) advantage + 3 aggressiveness - 4 counter = 7.
	if got := bare.Payoff(0, agg, counter); got != 7.0 {
		t.Errorf("nil-context payoff = %v, want unscaled 7", got)
	}
	// Same cell with a context picks up the 0.9 synergy multiplier.
	if got := withCtx.Payoff(0, agg, counter); math.Abs(got-6.3) > 1e-9 {
		t.Errorf("empty-context payoff = %v, want synergy-scaled 6.3", got)
	}
}

// The familiarity bonus lands after the synergy multiply, so it arrives at
// full strength whatever the role pairing.
func TestFamiliarityBonusUnscaledBySynergy(t *testing.T) {
	a, b := testAgents(RoleAttack, RoleDefense) // synergy 0.9 for player 0

	base, err := NewPayoffEngine().Build(a, b, &Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	familiar, err := NewPayoffEngine().Build(a, b, &Context{
		PriorInteractions: map[string]int{"a2": 7}, // min(2, log2(8)) = 2
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	agg := indexOfStrategy(t, base.Strategies(0), StratAggressive)
	counter := indexOfStrategy(t, base.Strategies(1), StratCounter)

	delta := familiar.Payoff(0, agg, counter) - base.Payoff(0, agg, counter)
	if math.Abs(delta-2.0) > 1e-9 {
		t.Errorf("familiarity delta = %v, want flat 2.0", delta)
	}
}

func TestCooperativeBonus(t *testing.T) {
	a, b := testAgents(RoleDefense, RoleCore)

	low, err := NewPayoffEngine().Build(a, b, &Context{SocialFactor: 0.1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	high, err := NewPayoffEngine().Build(a, b, &Context{SocialFactor: 0.9})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// protective (cooperative) vs balance (cooperative)
	prot := indexOfStrategy(t, low.Strategies(0), StratProtective)
	bal := indexOfStrategy(t, low.Strategies(1), StratBalance)
	if high.Payoff(0, prot, bal) <= low.Payoff(0, prot, bal) {
		t.Errorf("social bonus missing: %.2f vs %.2f",
			high.Payoff(0, prot, bal), low.Payoff(0, prot, bal))
	}
}

func indexOfStrategy(t *testing.T, set []string, label string) int {
	t.Helper()
	for i, s := range set {
		if s == label {
			return i
		}
	}
	t.Fatalf("strategy %q not in set %v", label, set)
	return -1
}
