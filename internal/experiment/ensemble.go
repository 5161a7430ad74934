package experiment

import (
	"context"
	"sync"

	"github.com/san-kum/simbridge/internal/config"
)

// Ensemble repeats one run over consecutive seeds, each on its own
// session.
type Ensemble struct {
	cfg       *config.Config
	opts      Options
	numRuns   int
	seedStart int64
}

func NewEnsemble(cfg *config.Config, opts Options, numRuns int) *Ensemble {
	return &Ensemble{cfg: cfg, opts: opts, numRuns: numRuns, seedStart: cfg.Seed}
}

// Run executes every member concurrently. Members are returned in seed
// order even when some fail.
func (e *Ensemble) Run(ctx context.Context, rc RunConfig) ([]*Experiment, []*Result, error) {
	exps := make([]*Experiment, e.numRuns)
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := *e.cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			optsCopy := e.opts
			optsCopy.Proxies = nil
			exp, err := New(&cfgCopy, optsCopy)
			if err != nil {
				errs[idx] = err
				return
			}
			exps[idx] = exp
			results[idx], errs[idx] = exp.Run(ctx, rc)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return exps, results, err
		}
	}
	return exps, results, nil
}
