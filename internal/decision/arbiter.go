package decision

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// Engine source names used in weight maps, score tags, and analysis output.
const (
	SourceNash    = "nash"
	SourceUtility = "utility"
	SourceTree    = "tree"
)

// Default fusion weights before context adjustment.
var defaultEngineWeights = map[string]float64{
	SourceNash:    0.4,
	SourceUtility: 0.4,
	SourceTree:    0.2,
}

// NashDecision is the game-theoretic sub-result: the chosen strategy, its
// confidence, and the equilibria backing it. Fallback marks the
// max-average-payoff path taken when no equilibrium exists.
type NashDecision struct {
	Strategy       string        `json:"strategy"`
	Confidence     float64       `json:"confidence"`
	ExpectedPayoff float64       `json:"expected_payoff"`
	Equilibria     []Equilibrium `json:"equilibria,omitempty"`
	Fallback       bool          `json:"fallback,omitempty"`
	Alternatives   []string      `json:"alternatives,omitempty"`
}

// TreeDecision is the multi-step sub-result; FirstStep is the immediate
// recommendation.
type TreeDecision struct {
	FirstStep    string         `json:"first_step"`
	Confidence   float64        `json:"confidence"`
	Best         DecisionPath   `json:"best"`
	Alternatives []DecisionPath `json:"alternatives,omitempty"`
}

// Analysis exposes the raw sub-results and fusion parameters of one
// decision for inspection and testing.
type Analysis struct {
	Nash    *NashDecision      `json:"nash,omitempty"`
	Utility []StrategyUtility  `json:"utility,omitempty"`
	Tree    *TreeDecision      `json:"tree,omitempty"`
	Method  string             `json:"method"`
	Weights map[string]float64 `json:"weights"`
}

// Recommendation is the arbiter's final output: one strategy, a calibrated
// confidence, human-readable reasoning, and up to three alternatives.
type Recommendation struct {
	Strategy     string   `json:"strategy"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	Alternatives []string `json:"alternatives"`
	Analysis     Analysis `json:"analysis"`
}

// strategyScore accumulates one candidate's weighted contributions during
// fusion.
type strategyScore struct {
	score       float64
	sources     []string
	confidences []float64
	rawSignals  []float64
}

// Arbiter fuses the payoff/Nash, tree, and utility engines into a single
// recommendation. Construct once and share; all methods are safe for
// concurrent use.
type Arbiter struct {
	payoff  *PayoffEngine
	solver  NashSolver
	tree    *TreeEngine
	utility UtilityEvaluator
}

// NewArbiter creates an arbiter with fresh engine caches.
func NewArbiter() *Arbiter {
	return &Arbiter{
		payoff: NewPayoffEngine(),
		tree:   NewTreeEngine(),
	}
}

// Reconfigure atomically invalidates every engine cache. Call after any
// change to the static role tables.
func (ab *Arbiter) Reconfigure() {
	ab.payoff.InvalidateCache()
	ab.tree.InvalidateCache()
}

// Decide produces a recommendation for the agent. opponent may be nil (no
// game-theoretic engine runs) and ctx may be nil (utility falls back to an
// empty factor map). Sub-engine failures are excluded from fusion rather
// than propagated; only a broken strategy table surfaces as an error.
func (ab *Arbiter) Decide(agent AgentView, opponent *AgentView, ctx *Context) (Recommendation, error) {
	candidates, err := StrategySet(agent.Role)
	if err == nil && len(candidates) == 0 {
		return Recommendation{}, ErrEmptyStrategySet
	}

	analysis := Analysis{}

	if opponent != nil {
		if nd, nerr := ab.runNash(agent, *opponent, ctx); nerr == nil {
			analysis.Nash = nd
		} else {
			slog.Debug("nash engine excluded", "agent", agent.ID, "error", nerr)
		}
	}

	factors := mergedFactors(agent, ctx)
	if ranked, uerr := ab.runUtility(agent.Role, factors, ctx); uerr == nil {
		analysis.Utility = ranked
	} else {
		slog.Debug("utility engine excluded", "agent", agent.ID, "error", uerr)
	}

	if ctx.MultiStep() {
		if td, terr := ab.runTree(agent.Role, ctx); terr == nil {
			analysis.Tree = td
		} else {
			slog.Debug("tree engine excluded", "agent", agent.ID, "error", terr)
		}
	}

	weights := ab.fusionWeights(&analysis, ctx)
	analysis.Weights = weights

	scores := ab.accumulate(&analysis, weights)
	if len(scores) == 0 {
		return ab.terminalFallback(agent, opponent, analysis), nil
	}

	ranked := rankScores(scores)
	top := ranked[0]

	analysis.Method = fusionMethod(&analysis, top.label)

	rec := Recommendation{
		Strategy:     top.label,
		Confidence:   finalConfidence(ranked),
		Alternatives: alternatives(ranked, 3),
		Analysis:     analysis,
	}
	rec.Reasoning = reasoning(&analysis, rec)
	return rec, nil
}

// runNash builds the payoff matrix (or its fallback) and derives the
// game-theoretic recommendation for the agent as player 0.
func (ab *Arbiter) runNash(agent, opponent AgentView, ctx *Context) (*NashDecision, error) {
	m, err := ab.payoff.Build(agent, opponent, ctx)
	if err != nil {
		// Unknown roles degrade to the fixed 2x2 game rather than an
		// empty matrix.
		slog.Debug("payoff fallback matrix", "agent", agent.ID, "error", err)
		m = FallbackMatrix(agent.ID, opponent.ID)
	}

	nd := &NashDecision{}

	if best, ok := ab.solver.BestFor(m, 0); ok {
		nd.Strategy = best.Labels[0]
		nd.ExpectedPayoff = best.Payoffs[0]
		nd.Equilibria = ab.solver.FindAll(m)
		nd.Confidence = equilibriumConfidence(m, best)
	} else {
		// Expected for some matrices: fall back to the strategy with the
		// best average payoff over the opponent's options.
		idx, avg := maxAveragePayoffStrategy(m, 0)
		nd.Strategy = m.Strategies(0)[idx]
		nd.ExpectedPayoff = avg
		nd.Fallback = true
		nd.Confidence = 0.5
	}

	for _, idx := range rankOwnStrategiesByAverage(m, 0) {
		label := m.Strategies(0)[idx]
		if label != nd.Strategy {
			nd.Alternatives = append(nd.Alternatives, label)
		}
	}
	return nd, nil
}

// equilibriumConfidence: 0.5 base, +0.3 when strict, plus the normalized
// payoff advantage over the next-best own strategy against the opponent's
// equilibrium play, capped at 1.
func equilibriumConfidence(m *PayoffMatrix, eq Equilibrium) float64 {
	conf := 0.5
	if eq.Strict {
		conf += 0.3
	}

	own, oppPlay := eq.Profile[0], eq.Profile[1]
	nextBest := math.Inf(-1)
	for alt := 0; alt < len(m.Strategies(0)); alt++ {
		if alt == own {
			continue
		}
		if p := m.Payoff(0, alt, oppPlay); p > nextBest {
			nextBest = p
		}
	}
	if !math.IsInf(nextBest, -1) {
		conf += (eq.Payoffs[0] - nextBest) / (payoffCeil - payoffFloor)
	}
	return math.Min(1, conf)
}

// runUtility ranks the role's strategy set against the merged factor map.
// An explicit "utility" weight override in the context replaces the role's
// default factor weights.
func (ab *Arbiter) runUtility(role Role, factors map[string]float64, ctx *Context) ([]StrategyUtility, error) {
	candidates, err := StrategySet(role)
	if err != nil {
		return nil, err
	}
	return ab.utility.EvaluateStrategies(role, candidates, factors, customFactorWeights(ctx))
}

// customFactorWeights extracts caller-supplied utility factor weights from
// the context, if any. Keys prefixed "factor:" in EngineWeights override
// the role defaults.
func customFactorWeights(ctx *Context) map[string]float64 {
	if ctx == nil {
		return nil
	}
	var out map[string]float64
	for k, v := range ctx.EngineWeights {
		if strings.HasPrefix(k, "factor:") {
			if out == nil {
				out = make(map[string]float64)
			}
			out[strings.TrimPrefix(k, "factor:")] = v
		}
	}
	return out
}

// runTree builds and searches the bounded decision tree; the context's time
// horizon bounds the depth.
func (ab *Arbiter) runTree(role Role, ctx *Context) (*TreeDecision, error) {
	depth := DefaultTreeDepth
	if ctx != nil && ctx.TimeHorizon > 0 && ctx.TimeHorizon < depth {
		depth = ctx.TimeHorizon
	}

	t, err := ab.tree.Build(role, depth, ctx)
	if err != nil {
		return nil, err
	}

	paths := t.TopPaths(ctx, 4)
	if len(paths) == 0 {
		return nil, ErrMalformedTree
	}
	best := paths[0]

	td := &TreeDecision{
		FirstStep:  best.First(),
		Best:       best,
		Confidence: treeConfidence(paths),
	}
	if len(paths) > 1 {
		td.Alternatives = paths[1:]
	}
	return td, nil
}

// treeConfidence: 0.5 base plus the best path's payoff advantage over its
// closest alternative, normalized and capped at +0.3, minus a small penalty
// when a condition failed along the winning path.
func treeConfidence(paths []DecisionPath) float64 {
	conf := 0.5
	if len(paths) > 1 && paths[0].Total > 0 {
		adv := (paths[0].Total - paths[1].Total) / paths[0].Total
		conf += math.Min(0.3, adv)
	}
	if paths[0].ConditionFailed {
		conf -= 0.1
	}
	return clamp01(conf)
}

// fusionWeights derives the effective per-engine weights: defaults,
// multiplied by explicit context overrides, environment bias, and horizon
// bias, then renormalized over the engines that actually ran.
func (ab *Arbiter) fusionWeights(a *Analysis, ctx *Context) map[string]float64 {
	w := map[string]float64{
		SourceNash:    defaultEngineWeights[SourceNash],
		SourceUtility: defaultEngineWeights[SourceUtility],
		SourceTree:    defaultEngineWeights[SourceTree],
	}

	if ctx != nil {
		for name, mul := range ctx.EngineWeights {
			if _, ok := w[name]; ok && mul > 0 {
				w[name] *= mul
			}
		}
		switch ctx.Environment {
		case EnvBattle:
			w[SourceNash] *= 1.3
		case EnvCooperation:
			w[SourceUtility] *= 1.3
		case EnvExploration:
			w[SourceTree] *= 1.4
		case EnvEvolution:
			w[SourceUtility] *= 1.15
			w[SourceTree] *= 1.15
		}
		if ctx.Complex {
			w[SourceTree] *= 1.2
		}
		if ctx.TimeHorizon > 3 {
			w[SourceTree] *= 1.3
		}
	}

	// Keep only engines that produced a result, then renormalize to 1.
	if a.Nash == nil {
		delete(w, SourceNash)
	}
	if a.Utility == nil {
		delete(w, SourceUtility)
	}
	if a.Tree == nil {
		delete(w, SourceTree)
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum > 0 {
		for k := range w {
			w[k] /= sum
		}
	}
	return w
}

// positionalDecay discounts an engine's 2nd/3rd choices: e^(-pos/2).
func positionalDecay(pos int) float64 {
	return math.Exp(-float64(pos) / 2)
}

// accumulate folds every engine's candidates into per-strategy scores:
// score += weight x sourceConfidence x sourceSignal, where the signal is
// the engine's own confidence for Nash/tree and the normalized utility for
// the utility engine.
func (ab *Arbiter) accumulate(a *Analysis, weights map[string]float64) map[string]*strategyScore {
	scores := make(map[string]*strategyScore)

	add := func(label, source string, weight, conf, signal, decay float64, raw float64) {
		s := scores[label]
		if s == nil {
			s = &strategyScore{}
			scores[label] = s
		}
		s.score += weight * conf * signal * decay
		s.sources = append(s.sources, source)
		s.confidences = append(s.confidences, conf)
		s.rawSignals = append(s.rawSignals, raw)
	}

	if a.Nash != nil {
		w := weights[SourceNash]
		add(a.Nash.Strategy, SourceNash, w, a.Nash.Confidence, a.Nash.Confidence, 1, a.Nash.ExpectedPayoff)
		for i, alt := range a.Nash.Alternatives {
			add(alt, SourceNash, w, a.Nash.Confidence, a.Nash.Confidence, positionalDecay(i+1), 0)
		}
	}

	if a.Utility != nil {
		w := weights[SourceUtility]
		lo, hi := utilityRange(a.Utility)
		for _, su := range a.Utility {
			signal := 0.5
			if hi > lo {
				signal = (su.Utility - lo) / (hi - lo)
			}
			add(su.Strategy, SourceUtility, w, su.Confidence, signal, 1, su.Utility)
		}
	}

	if a.Tree != nil {
		w := weights[SourceTree]
		add(a.Tree.FirstStep, SourceTree, w, a.Tree.Confidence, a.Tree.Confidence, 1, a.Tree.Best.Total)
		seen := map[string]bool{a.Tree.FirstStep: true}
		pos := 1
		for _, alt := range a.Tree.Alternatives {
			first := alt.First()
			if first == "" || seen[first] {
				continue
			}
			seen[first] = true
			add(first, SourceTree, w, a.Tree.Confidence, a.Tree.Confidence, positionalDecay(pos), alt.Total)
			pos++
		}
	}

	return scores
}

func utilityRange(ranked []StrategyUtility) (lo, hi float64) {
	if len(ranked) == 0 {
		return 0, 0
	}
	lo, hi = ranked[0].Utility, ranked[0].Utility
	for _, r := range ranked {
		if r.Utility < lo {
			lo = r.Utility
		}
		if r.Utility > hi {
			hi = r.Utility
		}
	}
	return lo, hi
}

type rankedScore struct {
	label string
	*strategyScore
}

// rankScores orders candidates by accumulated score, breaking ties by label
// so identical inputs always rank identically.
func rankScores(scores map[string]*strategyScore) []rankedScore {
	out := make([]rankedScore, 0, len(scores))
	for label, s := range scores {
		out = append(out, rankedScore{label, s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].label < out[j].label
	})
	return out
}

// finalConfidence: mean of the winning candidate's source confidences, plus
// a relative score-gap bonus over second place (capped 0.3), plus 0.1 per
// additional agreeing source (capped 0.2), clamped to [0,1].
func finalConfidence(ranked []rankedScore) float64 {
	top := ranked[0]

	mean := 0.0
	for _, c := range top.confidences {
		mean += c
	}
	if len(top.confidences) > 0 {
		mean /= float64(len(top.confidences))
	}

	gap := 0.0
	if len(ranked) > 1 && top.score > 0 {
		gap = math.Min(0.3, (top.score-ranked[1].score)/top.score)
	}

	agreement := math.Min(0.2, 0.1*float64(len(top.sources)-1))

	return clamp01(mean + gap + agreement)
}

func alternatives(ranked []rankedScore, n int) []string {
	var alts []string
	for _, r := range ranked[1:] {
		if len(alts) >= n {
			break
		}
		alts = append(alts, r.label)
	}
	return alts
}

// fusionMethod labels the decision: the dominant engine when only one
// backs the winner, or an agreement/consensus label when several do.
func fusionMethod(a *Analysis, winner string) string {
	var agreeing []string
	if a.Nash != nil && a.Nash.Strategy == winner {
		agreeing = append(agreeing, SourceNash)
	}
	if len(a.Utility) > 0 && a.Utility[0].Strategy == winner {
		agreeing = append(agreeing, SourceUtility)
	}
	if a.Tree != nil && a.Tree.FirstStep == winner {
		agreeing = append(agreeing, SourceTree)
	}

	ran := 0
	if a.Nash != nil {
		ran++
	}
	if a.Utility != nil {
		ran++
	}
	if a.Tree != nil {
		ran++
	}

	switch {
	case len(agreeing) >= 2 && len(agreeing) == ran:
		return "full-consensus"
	case len(agreeing) >= 2:
		return "agreement"
	case len(agreeing) == 1:
		return agreeing[0] + "-dominated"
	default:
		return "weighted-blend"
	}
}

// reasoning renders the human-readable justification, naming the dominant
// method and citing the mean raw payoff/utility behind the pick.
func reasoning(a *Analysis, rec Recommendation) string {
	var b strings.Builder

	switch a.Method {
	case "full-consensus":
		fmt.Fprintf(&b, "every engine independently picked %q", rec.Strategy)
	case "agreement":
		fmt.Fprintf(&b, "multiple engines agree on %q", rec.Strategy)
	case SourceNash + "-dominated":
		fmt.Fprintf(&b, "game-theoretic analysis favors %q", rec.Strategy)
		if a.Nash != nil && a.Nash.Fallback {
			b.WriteString(" (no equilibrium; best average payoff)")
		}
	case SourceTree + "-dominated":
		fmt.Fprintf(&b, "multi-step lookahead favors %q", rec.Strategy)
	case SourceUtility + "-dominated":
		fmt.Fprintf(&b, "utility scoring favors %q", rec.Strategy)
	default:
		fmt.Fprintf(&b, "weighted blend favors %q", rec.Strategy)
	}

	if a.Nash != nil {
		fmt.Fprintf(&b, "; expected payoff %.1f", a.Nash.ExpectedPayoff)
	}
	if len(a.Utility) > 0 {
		mean := 0.0
		for _, su := range a.Utility {
			mean += su.Utility
		}
		fmt.Fprintf(&b, "; mean utility %.3f", mean/float64(len(a.Utility)))
	}
	if a.Tree != nil {
		fmt.Fprintf(&b, "; lookahead total %.1f via %s", a.Tree.Best.Total,
			strings.Join(a.Tree.Best.Labels, " > "))
	}
	fmt.Fprintf(&b, " (confidence %.2f)", rec.Confidence)
	return b.String()
}

// terminalFallback answers when every engine failed: the first strategy of
// the role's set (or the fallback matrix's balanced play for unknown
// roles) at a fixed low confidence. Logged, never an error — the caller
// always gets a decision.
func (ab *Arbiter) terminalFallback(agent AgentView, opponent *AgentView, analysis Analysis) Recommendation {
	slog.Warn("decision fallback", "agent", agent.ID, "error", ErrAllEnginesFailed)

	strategy := "balanced"
	var alts []string
	if set, err := StrategySet(agent.Role); err == nil && len(set) > 0 {
		strategy = set[0]
		alts = set[1:]
	} else if opponent != nil {
		m := FallbackMatrix(agent.ID, opponent.ID)
		idx, _ := maxAveragePayoffStrategy(m, 0)
		strategy = m.Strategies(0)[idx]
	}

	analysis.Method = "fallback"
	if analysis.Weights == nil {
		analysis.Weights = map[string]float64{}
	}
	return Recommendation{
		Strategy:     strategy,
		Confidence:   0.3,
		Reasoning:    fmt.Sprintf("fallback: no engine produced a result; defaulting to %q", strategy),
		Alternatives: alts,
		Analysis:     analysis,
	}
}

// mergedFactors merges the agent's stat snapshot under the context's
// factor map (context wins on conflicts) so the utility engine always has
// something to score.
func mergedFactors(agent AgentView, ctx *Context) map[string]float64 {
	out := make(map[string]float64, len(agent.Stats)+8)
	for k, v := range agent.Stats {
		out[k] = v
	}
	if ctx != nil {
		for k, v := range ctx.Factors {
			out[k] = v
		}
	}
	return out
}
