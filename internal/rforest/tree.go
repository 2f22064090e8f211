package rforest

import (
	"math/rand"
	"sort"
)

// Node is one node of a binary CART tree. Leaves have Feature == -1 and
// carry the positive-class probability observed in their training rows.
// Internal nodes route numeric values left when value <= Threshold and
// categorical codes left when value == Threshold. Fields are exported so
// trees survive gob encoding.
type Node struct {
	Feature   int
	Threshold float64
	Cat       bool
	Prob      float64
	N         int
	Left      *Node
	Right     *Node
}

func (n *Node) leaf() bool { return n.Feature < 0 }

// walk routes x to its leaf and returns the leaf probability.
func (n *Node) walk(x []float64) float64 {
	for !n.leaf() {
		v := x[n.Feature]
		var left bool
		if n.Cat {
			left = v == n.Threshold
		} else {
			left = v <= n.Threshold
		}
		if left {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Prob
}

// builder grows one tree from a bootstrap sample.
type builder struct {
	x   [][]float64
	y   []int
	cat []bool
	cfg Config
	rnd *rand.Rand
}

type split struct {
	gain      float64
	feature   int
	threshold float64
	cat       bool
}

func (b *builder) build(idx []int, depth int) *Node {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	node := &Node{Feature: -1, Prob: float64(pos) / float64(n), N: n}

	if pos == 0 || pos == n || n < 2*b.cfg.MinLeaf {
		return node
	}
	if b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth {
		return node
	}

	best := b.bestSplit(idx, gini(pos, n))
	if best.feature < 0 {
		return node
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		v := b.x[i][best.feature]
		goesLeft := v <= best.threshold
		if best.cat {
			goesLeft = v == best.threshold
		}
		if goesLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Cat = best.cat
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// bestSplit scans an mtry-sized random feature subset for the gini-gain
// maximizing split. Returns feature -1 when nothing improves.
func (b *builder) bestSplit(idx []int, parentImpurity float64) split {
	p := len(b.cat)
	feats := make([]int, p)
	for j := range feats {
		feats[j] = j
	}
	mtry := b.cfg.Mtry
	for j := 0; j < mtry; j++ {
		k := j + b.rnd.Intn(p-j)
		feats[j], feats[k] = feats[k], feats[j]
	}
	feats = feats[:mtry]

	best := split{feature: -1}
	for _, f := range feats {
		var s split
		if b.cat[f] {
			s = b.bestCategorical(idx, f, parentImpurity)
		} else {
			s = b.bestNumeric(idx, f, parentImpurity)
		}
		if s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	return best
}

// bestNumeric scans sorted values with cumulative positive counts, trying
// the midpoint between each pair of distinct neighbors.
func (b *builder) bestNumeric(idx []int, f int, parentImpurity float64) split {
	type pair struct {
		v   float64
		pos int
	}
	pairs := make([]pair, len(idx))
	total := 0
	for j, i := range idx {
		pairs[j] = pair{v: b.x[i][f], pos: b.y[i]}
		total += b.y[i]
	}
	sort.Slice(pairs, func(a, c int) bool { return pairs[a].v < pairs[c].v })

	best := split{feature: -1}
	n := len(pairs)
	posLeft := 0
	for s := 1; s < n; s++ {
		posLeft += pairs[s-1].pos
		if pairs[s].v == pairs[s-1].v {
			continue
		}
		if s < b.cfg.MinLeaf || n-s < b.cfg.MinLeaf {
			continue
		}
		g := gainFor(parentImpurity, s, posLeft, n, total)
		if g > best.gain {
			best = split{
				gain:      g,
				feature:   f,
				threshold: (pairs[s-1].v + pairs[s].v) / 2,
			}
		}
	}
	return best
}

// bestCategorical tries a one-level-versus-rest equality split for every
// level present among the rows.
func (b *builder) bestCategorical(idx []int, f int, parentImpurity float64) split {
	type count struct{ n, pos int }
	counts := make(map[float64]*count)
	total := 0
	for _, i := range idx {
		v := b.x[i][f]
		c := counts[v]
		if c == nil {
			c = &count{}
			counts[v] = c
		}
		c.n++
		c.pos += b.y[i]
		total += b.y[i]
	}
	if len(counts) < 2 {
		return split{feature: -1}
	}
	levels := make([]float64, 0, len(counts))
	for v := range counts {
		levels = append(levels, v)
	}
	sort.Float64s(levels)

	best := split{feature: -1}
	n := len(idx)
	for _, v := range levels {
		c := counts[v]
		if c.n < b.cfg.MinLeaf || n-c.n < b.cfg.MinLeaf {
			continue
		}
		g := gainFor(parentImpurity, c.n, c.pos, n, total)
		if g > best.gain {
			best = split{gain: g, feature: f, threshold: v, cat: true}
		}
	}
	return best
}

// gini returns the binary gini impurity of a node with pos positives of n.
func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// gainFor computes the impurity decrease of a (left: nL rows / posL
// positives) split of n rows with total positives.
func gainFor(parentImpurity float64, nL, posL, n, total int) float64 {
	nR := n - nL
	posR := total - posL
	wL := float64(nL) / float64(n)
	wR := float64(nR) / float64(n)
	return parentImpurity - wL*gini(posL, nL) - wR*gini(posR, nR)
}
