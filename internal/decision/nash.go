package decision

import "sort"

// Equilibrium is a pure-strategy Nash equilibrium of a two-player matrix:
// a strategy profile where neither player gains by unilaterally switching.
type Equilibrium struct {
	Profile [2]int     // strategy index per player
	Labels  [2]string  // corresponding labels
	Payoffs [2]float64 // realized payoff per player
	Strict  bool       // true when every deviation is strictly worse
}

// NashSolver enumerates pure-strategy equilibria by exhaustive best-response
// checks. The strategy space is at most 3x3 here, so brute force is always
// the right tool.
type NashSolver struct{}

// FindAll returns every pure-strategy equilibrium of m, in row-major profile
// order. The empty result is a normal outcome for some matrices.
func (NashSolver) FindAll(m *PayoffMatrix) []Equilibrium {
	n0 := len(m.Strategies(0))
	n1 := len(m.Strategies(1))

	var eqs []Equilibrium
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			ok, strict := isEquilibrium(m, i, j)
			if !ok {
				continue
			}
			eqs = append(eqs, Equilibrium{
				Profile: [2]int{i, j},
				Labels:  [2]string{m.Strategies(0)[i], m.Strategies(1)[j]},
				Payoffs: [2]float64{m.Payoff(0, i, j), m.Payoff(1, j, i)},
				Strict:  strict,
			})
		}
	}
	return eqs
}

// isEquilibrium checks the profile (i, j) against all unilateral deviations.
// The second result reports strictness: every deviation strictly worse for
// every player.
func isEquilibrium(m *PayoffMatrix, i, j int) (ok, strict bool) {
	strict = true

	own := m.Payoff(0, i, j)
	for alt := 0; alt < len(m.Strategies(0)); alt++ {
		if alt == i {
			continue
		}
		if m.Payoff(0, alt, j) > own {
			return false, false
		}
		if m.Payoff(0, alt, j) == own {
			strict = false
		}
	}

	own = m.Payoff(1, j, i)
	for alt := 0; alt < len(m.Strategies(1)); alt++ {
		if alt == j {
			continue
		}
		if m.Payoff(1, alt, i) > own {
			return false, false
		}
		if m.Payoff(1, alt, i) == own {
			strict = false
		}
	}
	return true, strict
}

// BestFor returns the equilibrium with the highest payoff for the given
// player (0 or 1). Ties keep the first-found equilibrium. ok is false when
// the matrix has no pure-strategy equilibrium — an expected case the caller
// must handle, not an error.
func (s NashSolver) BestFor(m *PayoffMatrix, player int) (Equilibrium, bool) {
	eqs := s.FindAll(m)
	if len(eqs) == 0 {
		return Equilibrium{}, false
	}
	best := eqs[0]
	for _, e := range eqs[1:] {
		if e.Payoffs[player] > best.Payoffs[player] {
			best = e
		}
	}
	return best, true
}

// ParetoOptimal filters out equilibria Pareto-dominated by another: e is
// dropped when some other equilibrium is at least as good for both players
// and strictly better for one.
func (NashSolver) ParetoOptimal(eqs []Equilibrium) []Equilibrium {
	var out []Equilibrium
	for i, e := range eqs {
		dominated := false
		for j, other := range eqs {
			if i == j {
				continue
			}
			if other.Payoffs[0] >= e.Payoffs[0] && other.Payoffs[1] >= e.Payoffs[1] &&
				(other.Payoffs[0] > e.Payoffs[0] || other.Payoffs[1] > e.Payoffs[1]) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, e)
		}
	}
	return out
}

// maxAveragePayoffStrategy is the no-equilibrium fallback: the strategy
// index for player p with the highest payoff averaged over all opponent
// strategies. Ties go to the lower index so the result is deterministic.
func maxAveragePayoffStrategy(m *PayoffMatrix, p int) (int, float64) {
	nOwn := len(m.Strategies(p))
	nOpp := len(m.Strategies(1 - p))

	bestIdx, bestAvg := 0, -1.0
	for i := 0; i < nOwn; i++ {
		sum := 0.0
		for j := 0; j < nOpp; j++ {
			sum += m.Payoff(p, i, j)
		}
		avg := sum / float64(nOpp)
		if avg > bestAvg {
			bestIdx, bestAvg = i, avg
		}
	}
	return bestIdx, bestAvg
}

// rankOwnStrategiesByAverage returns player p's strategy indices sorted by
// descending average payoff, for ranking alternatives.
func rankOwnStrategiesByAverage(m *PayoffMatrix, p int) []int {
	nOwn := len(m.Strategies(p))
	nOpp := len(m.Strategies(1 - p))

	avgs := make([]float64, nOwn)
	idx := make([]int, nOwn)
	for i := 0; i < nOwn; i++ {
		idx[i] = i
		sum := 0.0
		for j := 0; j < nOpp; j++ {
			sum += m.Payoff(p, i, j)
		}
		avgs[i] = sum / float64(nOpp)
	}
	sort.SliceStable(idx, func(a, b int) bool { return avgs[idx[a]] > avgs[idx[b]] })
	return idx
}
