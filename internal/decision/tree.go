package decision

import (
	"fmt"
	"sort"
)

// DefaultTreeDepth bounds tree construction when the caller passes 0.
const DefaultTreeDepth = 3

// treeNode is one entry in a DecisionTree's flat node arena. Children are a
// contiguous index range, which makes acyclicity a structural property
// instead of a runtime check.
type treeNode struct {
	label      string
	depth      int
	payoff     float64
	condition  string // named context condition; "" means unconditional
	firstChild int    // index of first child; 0 means leaf (root is index 0)
	childCount int
}

// DecisionTree is a bounded-depth tree of sequential strategy choices for
// one role. Built fresh per (role, depth, context) and read-only after.
type DecisionTree struct {
	Role     Role
	MaxDepth int
	nodes    []treeNode
}

// DecisionPath is a root-to-leaf walk with its accumulated payoff. Labels
// excludes the synthetic root.
type DecisionPath struct {
	Labels          []string
	Total           float64
	ConditionFailed bool
}

// First returns the path's immediate-term step, or "" for an empty path.
func (p DecisionPath) First() string {
	if len(p.Labels) == 0 {
		return ""
	}
	return p.Labels[0]
}

// TreeEngine builds and caches decision trees.
type TreeEngine struct {
	cache *Cache[*DecisionTree]
}

// NewTreeEngine creates an engine with a bounded tree cache.
func NewTreeEngine() *TreeEngine {
	return &TreeEngine{cache: NewCache[*DecisionTree](128)}
}

// Build constructs a tree where every level branches over the role's three
// strategies. maxDepth <= 0 uses DefaultTreeDepth. Node payoffs fold in the
// role's per-label base payoff, a mild depth scaling, and state adjustments
// from the context.
func (e *TreeEngine) Build(role Role, maxDepth int, ctx *Context) (*DecisionTree, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %d", ErrUnknownRole, role)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}

	key := fmt.Sprintf("%d|%d|%016x", role, maxDepth, ctx.Hash())
	if t, ok := e.cache.Get(key); ok {
		return t, nil
	}

	set := strategySets[role]

	// Total nodes: 1 root + 3 + 9 + ... + 3^maxDepth.
	total := 1
	levelSize := 1
	for d := 1; d <= maxDepth; d++ {
		levelSize *= 3
		total += levelSize
	}

	t := &DecisionTree{
		Role:     role,
		MaxDepth: maxDepth,
		nodes:    make([]treeNode, 1, total),
	}
	t.nodes[0] = treeNode{label: "origin"}

	// Breadth-first expansion: parents at depth d-1 each get the full
	// strategy set as children at depth d.
	levelStart, levelEnd := 0, 1
	for d := 1; d <= maxDepth; d++ {
		for parent := levelStart; parent < levelEnd; parent++ {
			t.nodes[parent].firstChild = len(t.nodes)
			t.nodes[parent].childCount = 3
			for _, label := range set {
				t.nodes = append(t.nodes, treeNode{
					label:     label,
					depth:     d,
					payoff:    nodePayoff(role, label, d, ctx),
					condition: strategyCondition[label],
				})
			}
		}
		levelStart, levelEnd = levelEnd, len(t.nodes)
	}

	e.cache.Put(key, t)
	return t, nil
}

// nodePayoff computes a node's payoff contribution: base payoff for the
// label, scaled by a mild depth factor, plus role-specific state bonuses.
func nodePayoff(role Role, label string, depth int, ctx *Context) float64 {
	p := strategyProfiles[label].basePayoff * (1 + 0.05*float64(depth))
	return p + stateAdjustment(role, label, ctx)
}

// stateAdjustment applies per-role bonuses proportional to concrete state
// fields. Returns 0 when no context or no matching rule.
func stateAdjustment(role Role, label string, ctx *Context) float64 {
	if ctx == nil {
		return 0
	}
	switch role {
	case RoleAttack:
		// Wounded opponents invite the kill.
		if hp, ok := ctx.Factor("enemyHealth"); ok && hp < 30 && label == StratAggressive {
			return 5.0
		}
	case RoleDefense:
		if hp, ok := ctx.Factor("health"); ok && hp < 40 && label == StratProtective {
			return 4.0
		}
	case RoleControl:
		if en, ok := ctx.Factor("enemyEnergy"); ok && en < 25 && label == StratSuppress {
			return 3.5
		}
	case RoleMovement:
		if sp, ok := ctx.Factor("speed"); ok && sp > 20 && label == StratFlank {
			return 3.0
		}
	case RoleCore:
		if en, ok := ctx.Factor("energy"); ok && en > 75 && label == StratOvercharge {
			return 4.0
		}
	}
	return 0
}

// strategyCondition names the context condition gating a label, checked at
// evaluation time. Labels without an entry are unconditional.
var strategyCondition = map[string]string{
	StratOpportunistic: "scarcity",
	StratRetreat:       "threatened",
	StratOvercharge:    "charged",
	StratCounter:       "threatened",
}

// conditionHolds evaluates a named condition against the context. Unknown
// names fail closed.
func conditionHolds(name string, ctx *Context) bool {
	switch name {
	case "":
		return true
	case "scarcity":
		return ctx != nil && ctx.ResourceScarcity > 0.3
	case "threatened":
		return ctx != nil && ctx.ThreatLevel > 0.4
	case "charged":
		if en, ok := ctx.Factor("energy"); ok {
			return en > 50
		}
		return false
	default:
		return false
	}
}

// BestPath walks the tree greedily, at each node taking the highest-payoff
// child whose condition holds for the state. When no child's condition
// holds, the best child is taken anyway and the final total is halved. A
// malformed tree degrades to a root-only path; callers never receive an
// empty result.
func (t *DecisionTree) BestPath(ctx *Context) DecisionPath {
	if len(t.nodes) == 0 {
		return DecisionPath{}
	}

	path := DecisionPath{}
	idx := 0
	for t.nodes[idx].childCount > 0 {
		first := t.nodes[idx].firstChild
		count := t.nodes[idx].childCount
		if first <= 0 || first+count > len(t.nodes) {
			// Structurally impossible for built trees; recover with
			// what has been accumulated so far plus the root payoff.
			return DecisionPath{
				Labels: path.Labels,
				Total:  path.Total + t.nodes[0].payoff,
			}
		}

		best, bestOK := -1, false
		for c := first; c < first+count; c++ {
			ok := conditionHolds(t.nodes[c].condition, ctx)
			switch {
			case ok && !bestOK:
				best, bestOK = c, true
			case ok == bestOK && (best < 0 || t.nodes[c].payoff > t.nodes[best].payoff):
				best = c
			}
		}
		if !bestOK {
			path.ConditionFailed = true
		}

		path.Labels = append(path.Labels, t.nodes[best].label)
		path.Total += t.nodes[best].payoff
		idx = best
	}

	if path.ConditionFailed {
		path.Total /= 2
	}
	return path
}

// TopPaths enumerates every root-to-leaf path, scores each like BestPath,
// and returns the n highest by total payoff.
func (t *DecisionTree) TopPaths(ctx *Context, n int) []DecisionPath {
	if len(t.nodes) == 0 || n <= 0 {
		return nil
	}

	var all []DecisionPath
	var walk func(idx int, labels []string, total float64, failed bool)
	walk = func(idx int, labels []string, total float64, failed bool) {
		node := t.nodes[idx]
		if idx != 0 {
			labels = append(labels[:len(labels):len(labels)], node.label)
			total += node.payoff
			if !conditionHolds(node.condition, ctx) {
				failed = true
			}
		}
		if node.childCount == 0 {
			final := total
			if failed {
				final /= 2
			}
			all = append(all, DecisionPath{Labels: labels, Total: final, ConditionFailed: failed})
			return
		}
		for c := node.firstChild; c < node.firstChild+node.childCount; c++ {
			walk(c, labels, total, failed)
		}
	}
	walk(0, nil, 0, false)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Total > all[j].Total })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// NodeCount returns the number of nodes including the synthetic root.
func (t *DecisionTree) NodeCount() int {
	return len(t.nodes)
}

// LeafDepthsUniform reports whether every leaf sits exactly at MaxDepth.
func (t *DecisionTree) LeafDepthsUniform() bool {
	for _, n := range t.nodes {
		if n.childCount == 0 && n.depth != t.MaxDepth {
			return false
		}
	}
	return true
}

// InvalidateCache drops all memoized trees.
func (e *TreeEngine) InvalidateCache() {
	e.cache.Purge()
}
