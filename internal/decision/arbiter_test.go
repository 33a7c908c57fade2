package decision

import (
	"math"
	"testing"
)

func fullStats() map[string]float64 {
	return map[string]float64{
		"health": 70, "energy": 60, "damage": 30, "speed": 15, "position": 5,
	}
}

func TestDecideBasic(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "a1", Role: RoleAttack, Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleDefense, Stats: fullStats()}

	rec, err := ab.Decide(agent, &opp, &Context{Environment: EnvBattle, ThreatLevel: 0.7})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	set, _ := StrategySet(RoleAttack)
	if !contains(set, rec.Strategy) {
		t.Errorf("strategy %q not in attack set %v", rec.Strategy, set)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		t.Errorf("confidence %.3f out of [0,1]", rec.Confidence)
	}
	if len(rec.Alternatives) > 3 {
		t.Errorf("%d alternatives, want at most 3", len(rec.Alternatives))
	}
	if rec.Reasoning == "" {
		t.Error("empty reasoning")
	}
	if rec.Analysis.Nash == nil {
		t.Error("nash engine did not run with an opponent present")
	}
	if rec.Analysis.Utility == nil {
		t.Error("utility engine did not run")
	}
}

func TestDecideWeightsNormalized(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "a1", Role: RoleControl, Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleMovement, Stats: fullStats()}

	contexts := []*Context{
		{Environment: EnvBattle},
		{Environment: EnvCooperation, Complex: true},
		{Environment: EnvExploration, TimeHorizon: 5},
		nil,
	}
	for i, ctx := range contexts {
		rec, err := ab.Decide(agent, &opp, ctx)
		if err != nil {
			t.Fatalf("Decide(ctx %d): %v", i, err)
		}
		sum := 0.0
		for _, w := range rec.Analysis.Weights {
			if w < 0 {
				t.Errorf("ctx %d: negative weight %v", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("ctx %d: weights sum to %.4f, want 1.0 (%v)", i, sum, rec.Analysis.Weights)
		}
	}
}

// Without an opponent or a multi-step context, only the utility engine can
// run, so it must carry the entire decision.
func TestDecideUtilityOnly(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "solo", Role: RoleDefense, Stats: fullStats()}

	rec, err := ab.Decide(agent, nil, &Context{Environment: EnvCooperation})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if rec.Analysis.Nash != nil {
		t.Error("nash ran without an opponent")
	}
	if rec.Analysis.Tree != nil {
		t.Error("tree ran without a multi-step context")
	}
	if w := rec.Analysis.Weights[SourceUtility]; math.Abs(w-1.0) > 1e-9 {
		t.Errorf("utility weight = %v, want 1.0", w)
	}
	if len(rec.Analysis.Utility) == 0 {
		t.Fatal("no utility ranking in analysis")
	}
	if rec.Strategy != rec.Analysis.Utility[0].Strategy {
		t.Errorf("strategy %q != top utility %q", rec.Strategy, rec.Analysis.Utility[0].Strategy)
	}
}

func TestDecideMultiStepRunsTree(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "a1", Role: RoleMovement, Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleAttack, Stats: fullStats()}

	rec, err := ab.Decide(agent, &opp, &Context{TimeHorizon: 3, Complex: true})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Analysis.Tree == nil {
		t.Fatal("tree engine did not run on a multi-step context")
	}
	if rec.Analysis.Tree.FirstStep == "" {
		t.Error("tree produced no first step")
	}
	if len(rec.Analysis.Tree.Best.Labels) == 0 {
		t.Error("tree best path has no labels")
	}
}

func TestDecideDeterministic(t *testing.T) {
	agent := AgentView{ID: "a1", Role: RoleCore, Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleControl, Stats: fullStats()}
	ctx := &Context{
		Environment: EnvEvolution, ThreatLevel: 0.5, TimeHorizon: 3,
		Factors: map[string]float64{"energy": 80},
	}

	r1, err := NewArbiter().Decide(agent, &opp, ctx)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	r2, err := NewArbiter().Decide(agent, &opp, ctx)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if r1.Strategy != r2.Strategy {
		t.Errorf("strategies differ: %q vs %q", r1.Strategy, r2.Strategy)
	}
	if r1.Confidence != r2.Confidence {
		t.Errorf("confidences differ: %v vs %v", r1.Confidence, r2.Confidence)
	}
	if r1.Reasoning != r2.Reasoning {
		t.Errorf("reasoning differs:\n%s\n%s", r1.Reasoning, r2.Reasoning)
	}
}

// An unrecognized role still yields a usable recommendation through the
// fallback matrix rather than an error.
func TestDecideUnknownRoleFallsBack(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "mystery", Role: Role(99), Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleAttack, Stats: fullStats()}

	rec, err := ab.Decide(agent, &opp, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Strategy == "" {
		t.Fatal("no strategy recommended")
	}
	if rec.Confidence <= 0 {
		t.Errorf("confidence %.3f, want positive", rec.Confidence)
	}
	if rec.Analysis.Nash == nil || !rec.Analysis.Nash.Fallback && len(rec.Analysis.Nash.Equilibria) == 0 {
		t.Error("fallback matrix analysis missing")
	}
}

// With nothing at all to go on, the terminal fallback answers at fixed low
// confidence.
func TestDecideTerminalFallback(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "void", Role: Role(99)}

	rec, err := ab.Decide(agent, nil, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Confidence != 0.3 {
		t.Errorf("fallback confidence = %v, want 0.3", rec.Confidence)
	}
	if rec.Strategy == "" {
		t.Error("fallback produced no strategy")
	}
	if rec.Analysis.Method != "fallback" {
		t.Errorf("method = %q, want fallback", rec.Analysis.Method)
	}
}

func TestEngineWeightOverride(t *testing.T) {
	ab := NewArbiter()
	agent := AgentView{ID: "a1", Role: RoleAttack, Stats: fullStats()}
	opp := AgentView{ID: "a2", Role: RoleDefense, Stats: fullStats()}

	rec, err := ab.Decide(agent, &opp, &Context{
		EngineWeights: map[string]float64{SourceNash: 0.01, SourceUtility: 10},
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Analysis.Weights[SourceUtility] <= rec.Analysis.Weights[SourceNash] {
		t.Errorf("override ignored: utility %.3f <= nash %.3f",
			rec.Analysis.Weights[SourceUtility], rec.Analysis.Weights[SourceNash])
	}
}

func TestPositionalDecay(t *testing.T) {
	if positionalDecay(0) != 1 {
		t.Errorf("decay(0) = %v, want 1", positionalDecay(0))
	}
	if d1, d2 := positionalDecay(1), positionalDecay(2); d1 <= d2 {
		t.Errorf("decay not monotonic: %v, %v", d1, d2)
	}
	want := math.Exp(-0.5)
	if got := positionalDecay(1); math.Abs(got-want) > 1e-12 {
		t.Errorf("decay(1) = %v, want e^-0.5", got)
	}
}

func TestReconfigurePurgesCaches(t *testing.T) {
	ab := NewArbiter()
	a := AgentView{ID: "a1", Role: RoleAttack, Stats: fullStats()}
	b := AgentView{ID: "a2", Role: RoleDefense, Stats: fullStats()}

	m1, err := ab.payoff.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ab.Reconfigure()
	m2, err := ab.payoff.Build(a, b, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m1 == m2 {
		t.Error("Reconfigure did not purge the payoff cache")
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
