package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Classifier is the capability every plugged model must provide. Predict must
// return the argmax of PredictProba for each row.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
	PredictProba(X [][]float64) ([][]float64, error)
}

// ErrNotFitted is returned when predicting with a model that was never trained
var ErrNotFitted = errors.New("classifier has not been fitted")

// ForestConfig holds random forest hyperparameters
type ForestConfig struct {
	NumTrees       int   `json:"num_trees"`
	MaxDepth       int   `json:"max_depth"`     // 0 means unlimited
	MaxFeatures    int   `json:"max_features"`  // 0 means floor(sqrt(num features))
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	Seed           int64 `json:"seed"`
	Workers        int   `json:"-"` // parallel tree builders; 0 means one per tree up to 8
}

// DefaultForestConfig mirrors the settings the production model is trained with
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:       200,
		MaxDepth:       0,
		MaxFeatures:    0,
		MinSamplesLeaf: 1,
		Seed:           42,
	}
}

// Node is one decision tree node. Leaves have Feature == -1 and carry the
// class distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Proba     []float64 `json:"p,omitempty"`
}

// Tree is a flattened CART tree; Nodes[0] is the root
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// RandomForest is a bagged ensemble of Gini-split decision trees. After Fit it
// is read-only and safe for concurrent prediction.
type RandomForest struct {
	Config      ForestConfig `json:"config"`
	NumClasses  int          `json:"num_classes"`
	NumFeatures int          `json:"num_features"`
	Trees       []Tree       `json:"trees"`
}

// NewRandomForest creates an untrained forest
func NewRandomForest(config ForestConfig) *RandomForest {
	if config.NumTrees <= 0 {
		config.NumTrees = DefaultForestConfig().NumTrees
	}
	if config.MinSamplesLeaf <= 0 {
		config.MinSamplesLeaf = 1
	}
	return &RandomForest{Config: config}
}

// Fit trains the forest on X (rows of equal length) and labels y in [0, k)
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("failed to fit forest: no training samples")
	}
	if len(X) != len(y) {
		return fmt.Errorf("failed to fit forest: %d samples but %d labels", len(X), len(y))
	}

	numFeatures := len(X[0])
	numClasses := 0
	for i, row := range X {
		if len(row) != numFeatures {
			return fmt.Errorf("failed to fit forest: row %d has %d features, expected %d", i, len(row), numFeatures)
		}
		if y[i] < 0 {
			return fmt.Errorf("failed to fit forest: negative label %d at row %d", y[i], i)
		}
		if y[i]+1 > numClasses {
			numClasses = y[i] + 1
		}
	}
	if numClasses < 2 {
		numClasses = 2
	}

	maxFeatures := rf.Config.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > numFeatures {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(numFeatures)))))
	}

	// Seeds are drawn up front so the result does not depend on worker scheduling
	master := rand.New(rand.NewSource(rf.Config.Seed))
	seeds := make([]int64, rf.Config.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]Tree, rf.Config.NumTrees)
	workers := rf.Config.Workers
	if workers <= 0 {
		workers = 8
	}
	if workers > len(trees) {
		workers = len(trees)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				b := &treeBuilder{
					X:              X,
					y:              y,
					numClasses:     numClasses,
					maxFeatures:    maxFeatures,
					maxDepth:       rf.Config.MaxDepth,
					minSamplesLeaf: rf.Config.MinSamplesLeaf,
					rng:            rand.New(rand.NewSource(seeds[i])),
				}
				trees[i] = b.build(bootstrap(len(X), b.rng))
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	rf.NumClasses = numClasses
	rf.NumFeatures = numFeatures
	rf.Trees = trees
	return nil
}

// PredictProba averages the leaf class distributions of every tree
func (rf *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}

	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != rf.NumFeatures {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), rf.NumFeatures)
		}
		proba := make([]float64, rf.NumClasses)
		for t := range rf.Trees {
			leaf := rf.Trees[t].leaf(row)
			for c, p := range leaf.Proba {
				proba[c] += p
			}
		}
		for c := range proba {
			proba[c] /= float64(len(rf.Trees))
		}
		out[i] = proba
	}
	return out, nil
}

// Predict returns the most probable class per row; ties go to the lower label
func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probas))
	for i, p := range probas {
		labels[i] = argmax(p)
	}
	return labels, nil
}

func (t *Tree) leaf(row []float64) *Node {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

type treeBuilder struct {
	X              [][]float64
	y              []int
	numClasses     int
	maxFeatures    int
	maxDepth       int
	minSamplesLeaf int
	rng            *rand.Rand
	nodes          []Node
}

func (b *treeBuilder) build(samples []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(samples, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for samples and returns its node index
func (b *treeBuilder) grow(samples []int, depth int) int {
	counts := b.classCounts(samples)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if b.isPure(counts) || (b.maxDepth > 0 && depth >= b.maxDepth) || len(samples) < 2*b.minSamplesLeaf {
		b.nodes[idx].Proba = normalize(counts)
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples, counts)
	if !ok {
		b.nodes[idx].Proba = normalize(counts)
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.X[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

// bestSplit searches a random subset of features for the threshold that
// minimises weighted Gini impurity. Candidate features with a single
// distinct value do not count toward the subset, matching the usual
// random-forest behaviour of drawing again.
func (b *treeBuilder) bestSplit(samples []int, total []float64) (int, float64, bool) {
	numFeatures := len(b.X[0])
	order := b.rng.Perm(numFeatures)

	bestGini := gini(total, float64(len(samples)))
	bestFeature, bestThreshold := -1, 0.0
	visited := 0

	sorted := make([]int, len(samples))
	for _, f := range order {
		if visited >= b.maxFeatures && bestFeature >= 0 {
			break
		}

		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		left := make([]float64, b.numClasses)
		right := append([]float64(nil), total...)
		n := float64(len(sorted))
		for i := 0; i < len(sorted)-1; i++ {
			c := b.y[sorted[i]]
			left[c]++
			right[c]--

			lo, hi := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(i + 1)
			if int(nl) < b.minSamplesLeaf || len(sorted)-int(nl) < b.minSamplesLeaf {
				continue
			}
			g := (nl*gini(left, nl) + (n-nl)*gini(right, n-nl)) / n
			if g < bestGini-1e-12 {
				bestGini = g
				bestFeature = f
				bestThreshold = splitPoint(lo, hi)
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// splitPoint returns a threshold t with lo <= t < hi. The midpoint of two
// adjacent floats can round up to hi, which would send every sample left.
func splitPoint(lo, hi float64) float64 {
	t := lo + (hi-lo)/2
	if t >= hi {
		t = lo
	}
	return t
}

func (b *treeBuilder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.numClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func (b *treeBuilder) isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func normalize(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}
