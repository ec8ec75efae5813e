// Package matchpool runs a bounded number of jobs concurrently. The
// orchestrator submits one job per agent (that agent's whole ladder); its
// default parallelism is 1 because a single LLM backend is typically shared
// across agents; this pool exists for the opt-in higher-parallelism case.
package matchpool

import "sync"

// Job is one unit of work; each orchestrator job plays one agent's ladder.
type Job func() error

// Run executes jobs with at most maxWorkers concurrently and returns every
// error encountered, in completion order.
func Run(maxWorkers int, jobs []Job) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, maxWorkers)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := j(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()
	return errs
}
