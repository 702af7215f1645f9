package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/experiment"
	"github.com/san-kum/motorsim/internal/sim"
	"go.uber.org/zap"
)

// GridSearch evaluates every combination of the given parameter values and
// keeps the one that minimizes a metric. Parameter names are config keys as
// accepted by config.Config.Set.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     *zap.Logger
}

type Candidate struct {
	Params map[string]float64 `json:"params"`
	Value  float64            `json:"value"`
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, logger: zap.NewNop()}
}

// WithWorkers bounds the number of runs in flight; 0 means GOMAXPROCS.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

func (g *GridSearch) WithLogger(l *zap.Logger) *GridSearch {
	if l != nil {
		g.logger = l
	}
	return g
}

// Combinations expands the grid in row-major order, last parameter fastest.
func (g *GridSearch) Combinations() []map[string]float64 {
	var out []map[string]float64
	g.expand(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		combo := make(map[string]float64, len(current))
		for k, v := range current {
			combo[k] = v
		}
		*out = append(*out, combo)
		return
	}

	for _, val := range g.ranges[depth] {
		current[g.paramNames[depth]] = val
		g.expand(depth+1, current, out)
	}
	delete(current, g.paramNames[depth])
}

// Search runs base once per combination and returns the best candidate
// together with all evaluated ones in grid order. Combinations whose config
// is invalid are skipped with a warning; a metric the runs do not produce is
// an error.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Candidate, []Candidate, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Candidate{}, nil, fmt.Errorf("%d parameter names but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var (
		jobs   []sim.Job
		params []map[string]float64
	)
	for _, combo := range g.Combinations() {
		cfg := base.Clone()
		for k, v := range combo {
			if err := cfg.Set(k, v); err != nil {
				return Candidate{}, nil, err
			}
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(g.logger))
		if err != nil {
			g.logger.Warn("skipping combination", zap.Any("params", combo), zap.Error(err))
			continue
		}
		jobs = append(jobs, exp.Job())
		params = append(params, combo)
	}

	if len(jobs) == 0 {
		return Candidate{}, nil, fmt.Errorf("no valid combinations")
	}

	results, err := sim.RunBatch(ctx, jobs, g.workers)
	if err != nil {
		return Candidate{}, nil, err
	}

	all := make([]Candidate, 0, len(results))
	best := -1
	bestVal := math.Inf(1)
	for i, res := range results {
		val, ok := res.Metrics[metricName]
		if !ok {
			return Candidate{}, nil, fmt.Errorf("unknown metric: %s", metricName)
		}
		all = append(all, Candidate{Params: params[i], Value: val})
		if val < bestVal {
			bestVal = val
			best = i
		}
	}

	if best < 0 {
		return Candidate{}, all, fmt.Errorf("no finite value for metric %s", metricName)
	}

	g.logger.Info("grid search finished",
		zap.Int("runs", len(results)),
		zap.String("metric", metricName),
		zap.Float64("best", bestVal),
	)
	return all[best], all, nil
}

// Ranked returns a copy of candidates sorted by value, best first. Ties keep
// grid order.
func Ranked(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
