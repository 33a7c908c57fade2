package decision

import (
	"errors"
	"math"
	"testing"
)

func TestRoleWeightsSumToOne(t *testing.T) {
	for role := Role(0); role < numRoles; role++ {
		sum := 0.0
		for _, w := range roleWeights[role] {
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("%s weights sum to %.4f, want 1.0", role, sum)
		}
	}
}

func TestDefaultUtilityUnknownRole(t *testing.T) {
	if _, err := DefaultUtility(Role(17)); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err = %v, want ErrUnknownRole", err)
	}
}

func TestNormalizerApply(t *testing.T) {
	linear := Normalizer{Kind: NormLinear, Min: 0, Max: 100}
	cases := []struct {
		in, want float64
	}{
		{-10, 0}, {0, 0}, {50, 0.5}, {100, 1}, {250, 1},
	}
	for _, tc := range cases {
		if got := linear.Apply(tc.in); got != tc.want {
			t.Errorf("linear.Apply(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}

	sigmoid := Normalizer{Kind: NormSigmoid, Mid: 0.5, Steep: 6}
	if got := sigmoid.Apply(0.5); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("sigmoid midpoint = %v, want 0.5", got)
	}
	if lo, hi := sigmoid.Apply(-100), sigmoid.Apply(100); lo < 0 || hi > 1 {
		t.Errorf("sigmoid out of [0,1]: %v, %v", lo, hi)
	}

	// Degenerate linear range must not divide by zero.
	broken := Normalizer{Kind: NormLinear, Min: 5, Max: 5}
	if got := broken.Apply(5); got != 0 {
		t.Errorf("degenerate range Apply = %v, want 0", got)
	}
}

func TestEvaluateSkipsMissingFactors(t *testing.T) {
	fn, err := DefaultUtility(RoleAttack)
	if err != nil {
		t.Fatalf("DefaultUtility: %v", err)
	}

	full := fn.Evaluate(map[string]float64{
		"damage": 40, "health": 80, "energy": 60, "speed": 20,
	})
	partial := fn.Evaluate(map[string]float64{"damage": 40})
	if partial >= full {
		t.Errorf("partial %.3f >= full %.3f", partial, full)
	}
	if partial != 0.40*(40.0/50.0) {
		t.Errorf("partial = %.4f, want damage term only", partial)
	}
}

func TestComposeRenormalizes(t *testing.T) {
	f1 := UtilityFunction{Weights: map[string]float64{"health": 1.0}}
	f2 := UtilityFunction{Weights: map[string]float64{"energy": 1.0}}

	merged := Compose([]UtilityFunction{f1, f2}, []float64{3, 1})
	if got := merged.Weights["health"]; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("health weight = %v, want 0.75", got)
	}
	if got := merged.Weights["energy"]; math.Abs(got-0.25) > 1e-9 {
		t.Errorf("energy weight = %v, want 0.25", got)
	}

	// Mismatched weight slice falls back to equal shares.
	equal := Compose([]UtilityFunction{f1, f2}, nil)
	if got := equal.Weights["health"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("equal-share health weight = %v, want 0.5", got)
	}
}

// A wounded defender under fire should prefer the protective stance.
func TestWoundedDefenderPrefersProtective(t *testing.T) {
	var ev UtilityEvaluator
	candidates, err := StrategySet(RoleDefense)
	if err != nil {
		t.Fatalf("StrategySet: %v", err)
	}

	ranked, err := ev.EvaluateStrategies(RoleDefense, candidates,
		map[string]float64{"health": 40, "underAttack": 1}, nil)
	if err != nil {
		t.Fatalf("EvaluateStrategies: %v", err)
	}

	if ranked[0].Strategy != StratProtective {
		t.Errorf("top strategy = %q, want %q (got ranking %+v)",
			ranked[0].Strategy, StratProtective, ranked)
	}
}

func TestEvaluateStrategiesEmpty(t *testing.T) {
	var ev UtilityEvaluator
	if _, err := ev.EvaluateStrategies(RoleAttack, nil, nil, nil); !errors.Is(err, ErrEmptyStrategySet) {
		t.Fatalf("err = %v, want ErrEmptyStrategySet", err)
	}
}

func TestEvaluateStrategiesCustomWeights(t *testing.T) {
	var ev UtilityEvaluator
	candidates, _ := StrategySet(RoleAttack)
	factors := map[string]float64{"speed": 20, "damage": 5}

	// All weight on speed: feint's speed perturbation (1.2x) should win.
	ranked, err := ev.EvaluateStrategies(RoleAttack, candidates, factors,
		map[string]float64{"speed": 1.0})
	if err != nil {
		t.Fatalf("EvaluateStrategies: %v", err)
	}
	if ranked[0].Strategy != StratFeint {
		t.Errorf("top strategy = %q, want %q", ranked[0].Strategy, StratFeint)
	}
}

func TestEvaluateStrategiesUnknownLabel(t *testing.T) {
	var ev UtilityEvaluator
	ranked, err := ev.EvaluateStrategies(RoleAttack,
		[]string{StratAggressive, "improvised"},
		map[string]float64{"damage": 30}, nil)
	if err != nil {
		t.Fatalf("EvaluateStrategies: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	// Unknown labels score without perturbation, not as an error.
	for _, r := range ranked {
		if math.IsNaN(r.Utility) {
			t.Errorf("%q scored NaN", r.Strategy)
		}
	}
}

func TestConfidencesInRange(t *testing.T) {
	var ev UtilityEvaluator
	for role := Role(0); role < numRoles; role++ {
		candidates, _ := StrategySet(role)
		ranked, err := ev.EvaluateStrategies(role, candidates,
			map[string]float64{"health": 70, "energy": 50, "damage": 25, "speed": 15, "position": 5}, nil)
		if err != nil {
			t.Fatalf("EvaluateStrategies(%s): %v", role, err)
		}
		for _, r := range ranked {
			if r.Confidence < 0 || r.Confidence > 1 {
				t.Errorf("%s/%s confidence %.3f out of [0,1]", role, r.Strategy, r.Confidence)
			}
		}
	}
}

func TestDeterministicRanking(t *testing.T) {
	var ev UtilityEvaluator
	candidates, _ := StrategySet(RoleControl)
	factors := map[string]float64{"energy": 55, "position": 6}

	r1, err := ev.EvaluateStrategies(RoleControl, candidates, factors, nil)
	if err != nil {
		t.Fatalf("EvaluateStrategies: %v", err)
	}
	r2, err := ev.EvaluateStrategies(RoleControl, candidates, factors, nil)
	if err != nil {
		t.Fatalf("EvaluateStrategies: %v", err)
	}

	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("ranking differs at %d: %+v vs %+v", i, r1[i], r2[i])
		}
	}
}
