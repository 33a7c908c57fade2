package decision

import (
	"fmt"
	"math"
	"sort"
)

// NormKind selects how a raw factor value maps into [0,1].
type NormKind uint8

const (
	NormLinear NormKind = iota
	NormSigmoid
)

// Normalizer maps a raw factor value into [0,1]. Linear normalizers clamp
// into [Min,Max]; sigmoid normalizers center on Mid with slope Steep.
type Normalizer struct {
	Kind  NormKind
	Min   float64
	Max   float64
	Mid   float64
	Steep float64
}

// Apply normalizes v. The result is always finite and in [0,1].
func (n Normalizer) Apply(v float64) float64 {
	switch n.Kind {
	case NormSigmoid:
		steep := n.Steep
		if steep == 0 {
			steep = 1
		}
		return 1 / (1 + math.Exp(-steep*(v-n.Mid)))
	default:
		if n.Max <= n.Min {
			return 0
		}
		u := (v - n.Min) / (n.Max - n.Min)
		return clamp01(u)
	}
}

// UtilityFunction scores a factor map as a weighted sum of normalized
// values. Factors without a weight are ignored; weighted factors missing a
// normalizer pass through defaultNormalizer.
type UtilityFunction struct {
	Weights map[string]float64
	Norms   map[string]Normalizer
}

// defaultFactorRanges are the linear normalization ranges assumed for the
// standard combat stats.
var defaultFactorRanges = map[string]Normalizer{
	"health":   {Kind: NormLinear, Min: 0, Max: 100},
	"energy":   {Kind: NormLinear, Min: 0, Max: 100},
	"damage":   {Kind: NormLinear, Min: 0, Max: 50},
	"speed":    {Kind: NormLinear, Min: 0, Max: 30},
	"position": {Kind: NormLinear, Min: 0, Max: 10},
	"threat":   {Kind: NormSigmoid, Mid: 0.5, Steep: 6},
}

var defaultNormalizer = Normalizer{Kind: NormLinear, Min: 0, Max: 100}

// roleWeights are the fixed default 4-factor weight maps, each summing to
// 1.0.
var roleWeights = [numRoles]map[string]float64{
	RoleAttack:   {"damage": 0.40, "health": 0.20, "energy": 0.20, "speed": 0.20},
	RoleDefense:  {"health": 0.40, "energy": 0.25, "position": 0.20, "damage": 0.15},
	RoleControl:  {"energy": 0.35, "position": 0.30, "health": 0.20, "damage": 0.15},
	RoleMovement: {"speed": 0.45, "energy": 0.25, "position": 0.20, "health": 0.10},
	RoleCore:     {"health": 0.30, "energy": 0.30, "damage": 0.20, "position": 0.20},
}

// DefaultUtility returns the role's built-in utility function.
func DefaultUtility(role Role) (UtilityFunction, error) {
	if !role.Valid() {
		return UtilityFunction{}, fmt.Errorf("%w: role %d", ErrUnknownRole, role)
	}
	weights := make(map[string]float64, len(roleWeights[role]))
	for k, v := range roleWeights[role] {
		weights[k] = v
	}
	return UtilityFunction{Weights: weights, Norms: defaultFactorRanges}, nil
}

// Evaluate computes the weighted normalized sum over factors present in
// both the weight map and the factor map. The result is always finite.
func (u UtilityFunction) Evaluate(factors map[string]float64) float64 {
	total := 0.0
	for name, w := range u.Weights {
		v, ok := factors[name]
		if !ok {
			continue
		}
		norm, ok := u.Norms[name]
		if !ok {
			norm = defaultNormalizer
		}
		total += w * norm.Apply(v)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total
}

// Compose merges utility functions by weighted combination of their weight
// maps. The combination weights are renormalized to sum to 1 first;
// normalizers are merged with later functions winning conflicts.
func Compose(fns []UtilityFunction, weights []float64) UtilityFunction {
	if len(fns) == 0 {
		return UtilityFunction{Weights: map[string]float64{}, Norms: map[string]Normalizer{}}
	}
	if len(weights) != len(fns) {
		weights = make([]float64, len(fns))
		for i := range weights {
			weights[i] = 1
		}
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		sum = 1
	}

	merged := UtilityFunction{
		Weights: make(map[string]float64),
		Norms:   make(map[string]Normalizer),
	}
	for i, fn := range fns {
		share := weights[i] / sum
		for name, w := range fn.Weights {
			merged.Weights[name] += share * w
		}
		for name, n := range fn.Norms {
			merged.Norms[name] = n
		}
	}
	return merged
}

// strategyPerturbation is the per-label multiplicative factor adjustment
// applied before utility evaluation, so identical base factors still rank
// candidate strategies differently. Unknown labels get no perturbation.
var strategyPerturbation = map[string]map[string]float64{
	StratAggressive:    {"damage": 1.3, "energy": 0.8, "health": 0.9},
	StratFeint:         {"speed": 1.2, "damage": 1.1, "energy": 0.9},
	StratOpportunistic: {"damage": 1.15, "position": 1.2},
	StratProtective:    {"health": 1.25, "damage": 0.85},
	StratCounter:       {"damage": 1.15, "health": 1.05, "speed": 0.9},
	StratEvasive:       {"speed": 1.3, "health": 1.1, "damage": 0.7},
	StratSuppress:      {"energy": 1.2, "damage": 1.05},
	StratRedirect:      {"position": 1.25, "energy": 1.05},
	StratStall:         {"energy": 1.15, "health": 1.1, "speed": 0.8},
	StratFlank:         {"speed": 1.25, "position": 1.15},
	StratReposition:    {"position": 1.3, "speed": 1.1},
	StratRetreat:       {"health": 1.2, "speed": 1.15, "damage": 0.6},
	StratOvercharge:    {"damage": 1.35, "energy": 0.7},
	StratFortify:       {"health": 1.3, "speed": 0.8},
}

// StrategyUtility is one ranked candidate from EvaluateStrategies.
type StrategyUtility struct {
	Strategy   string  `json:"strategy"`
	Utility    float64 `json:"utility"`
	Confidence float64 `json:"confidence"`
}

// UtilityEvaluator scores candidate strategies against a factor map,
// independent of any opponent.
type UtilityEvaluator struct{}

// EvaluateStrategies scores each candidate against the factors after
// applying its label perturbation and situational bonuses, then ranks
// descending by utility with per-candidate confidences derived from the
// score distribution. customWeights, when non-nil, replaces the role's
// default weight map outright.
func (UtilityEvaluator) EvaluateStrategies(role Role, candidates []string, factors map[string]float64, customWeights map[string]float64) ([]StrategyUtility, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyStrategySet
	}

	fn, err := DefaultUtility(role)
	if err != nil {
		return nil, err
	}
	if customWeights != nil {
		fn.Weights = customWeights
	}

	out := make([]StrategyUtility, 0, len(candidates))
	for _, label := range candidates {
		perturbed := perturbFactors(factors, label)
		u := fn.Evaluate(perturbed) + situationalBonus(label, factors)
		out = append(out, StrategyUtility{Strategy: label, Utility: u})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Utility != out[j].Utility {
			return out[i].Utility > out[j].Utility
		}
		return out[i].Strategy < out[j].Strategy
	})

	fillConfidences(role, out)
	return out, nil
}

// perturbFactors applies the label's multiplier table to a copy of factors.
func perturbFactors(factors map[string]float64, label string) map[string]float64 {
	muls, ok := strategyPerturbation[label]
	if !ok || len(factors) == 0 {
		return factors
	}
	out := make(map[string]float64, len(factors))
	for k, v := range factors {
		if m, ok := muls[k]; ok {
			out[k] = v * m
		} else {
			out[k] = v
		}
	}
	return out
}

// situationalBonus grants label-specific additive bonuses tied to concrete
// factor readings. Protective stances gain from lost health while under
// attack; nothing else currently qualifies.
func situationalBonus(label string, factors map[string]float64) float64 {
	if label != StratProtective {
		return 0
	}
	if ua, ok := factors["underAttack"]; !ok || ua < 1 {
		return 0
	}
	hp, ok := factors["health"]
	if !ok {
		return 0
	}
	return math.Max(0, 100-hp) / 400
}

// fillConfidences derives per-candidate confidence from the utility
// distribution: z-score distance from the mean, relative position in the
// score range, the raw utility level, a dispersion penalty, and a bonus
// for role-aligned labels. The arithmetic is a fixed heuristic contract,
// not a probability model.
func fillConfidences(role Role, ranked []StrategyUtility) {
	n := len(ranked)
	if n == 0 {
		return
	}
	if n == 1 {
		ranked[0].Confidence = clamp01(0.5 + 0.3*ranked[0].Utility)
		return
	}

	mean, std := 0.0, 0.0
	lo, hi := ranked[0].Utility, ranked[0].Utility
	for _, r := range ranked {
		mean += r.Utility
		if r.Utility < lo {
			lo = r.Utility
		}
		if r.Utility > hi {
			hi = r.Utility
		}
	}
	mean /= float64(n)
	for _, r := range ranked {
		d := r.Utility - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(n))

	cv := 0.0
	if mean != 0 {
		cv = math.Abs(std / mean)
	}

	for i := range ranked {
		z := 0.0
		if std > 0 {
			z = (ranked[i].Utility - mean) / std
		}
		rangePos := 0.0
		if hi > lo {
			rangePos = (ranked[i].Utility - lo) / (hi - lo)
		}

		conf := 0.3 + 0.15*z + 0.2*rangePos + 0.2*ranked[i].Utility - 0.2*cv
		if isAligned(role, ranked[i].Strategy) {
			conf += 0.1
		}
		ranked[i].Confidence = clamp01(conf)
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
