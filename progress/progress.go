// Package progress implements spec.md §4's cost-weighted multi-stage
// progress accounting: a computation (Fermat probable-prime pass, proof
// save, Pocklington factor loop, ...) is split into Stages, each given a
// cost share of the whole run, so that "45% done" means the same thing
// whether the remaining work is one expensive stage or several cheap ones.
package progress

import (
	"sync"
	"time"
)

// Report is emitted by task.Committer on its progress timer.
type Report struct {
	Iteration  int
	Iterations int
	Time       time.Time
	// Overall is this report's Stage's owning Tracker's cost-weighted
	// fraction complete, in [0,1]. Zero if the stage has no tracker.
	Overall float64
}

// Tracker owns a set of cost-weighted Stages and computes the overall
// fraction complete across all of them.
type Tracker struct {
	mu     sync.Mutex
	stages []*Stage
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// AddStage registers a new stage with the given cost share (relative to
// other stages on the same Tracker; need not sum to 1) and iteration count.
func (t *Tracker) AddStage(name string, cost float64, iterations int) *Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &Stage{tracker: t, name: name, cost: cost, iterations: iterations}
	t.stages = append(t.stages, s)
	return s
}

// Fraction returns the cost-weighted fraction of total work complete,
// across every stage registered so far, in [0,1].
func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var totalCost, doneCost float64
	for _, s := range t.stages {
		totalCost += s.cost
		doneCost += s.cost * s.localFraction()
	}
	if totalCost == 0 {
		return 0
	}
	return doneCost / totalCost
}

// Stage is one cost-weighted phase of a Tracker's overall progress.
type Stage struct {
	tracker    *Tracker
	name       string
	cost       float64
	iterations int

	mu      sync.Mutex
	current int
}

// Owner returns the Tracker this Stage was registered on.
func (s *Stage) Owner() *Tracker { return s.tracker }

// Name returns the stage's label.
func (s *Stage) Name() string { return s.name }

// Advance records progress to iteration (clamped to [0, iterations]).
func (s *Stage) Advance(iteration int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case iteration < 0:
		iteration = 0
	case iteration > s.iterations:
		iteration = s.iterations
	}
	s.current = iteration
}

// localFraction returns this stage's own fraction complete, in [0,1].
func (s *Stage) localFraction() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.iterations <= 0 {
		return 1
	}
	return float64(s.current) / float64(s.iterations)
}
