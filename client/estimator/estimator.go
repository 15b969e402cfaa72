// Package estimator implements OversubEstimator: a Poisson-density
// prediction of how many additional, revocable cores the host could
// currently absorb, derived from the persistent time-series log of
// past isolate() requests.
package estimator

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/tslog"
	"github.com/cpusetiso/agent/client/lib/topology"
	"github.com/cpusetiso/agent/scheduler/submodular"
)

// Resources is the revocable-capacity advertisement oversubscribable()
// returns: Count units of the resource named Name, in role Role. An
// empty Resources (Count == 0) means no spare capacity.
type Resources struct {
	Name  string
	Role  string
	Count int
}

type job func()

// Estimator is OversubEstimator, run as a single actor over its own
// mailbox like Engine.
type Estimator struct {
	mailbox chan job

	store  *tslog.Store
	driver *cgutil.Driver
	topo   *numalib.Topology
	info   *topology.ResourceInfo
	logger hclog.Logger
}

// NewEstimator builds an Estimator reading samples from store and
// trial-placing candidate core counts against driver/topo/info's live
// load, and starts its worker goroutine.
func NewEstimator(store *tslog.Store, driver *cgutil.Driver, topo *numalib.Topology, info *topology.ResourceInfo, logger hclog.Logger) *Estimator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Estimator{
		mailbox: make(chan job, 16),
		store:   store,
		driver:  driver,
		topo:    topo,
		info:    info,
		logger:  logger.Named("estimator"),
	}
	go e.run()
	return e
}

func (e *Estimator) run() {
	for j := range e.mailbox {
		j()
	}
}

// Close shuts down the estimator's worker goroutine.
func (e *Estimator) Close() {
	close(e.mailbox)
}

// Oversubscribable predicts how many revocable cores the host can
// currently absorb, via the Poisson-mode prediction over the recorded
// sample distribution followed by a trial submodular placement. An
// empty Resources means no prediction could be made or no cores are
// actually placeable at the predicted size.
func (e *Estimator) Oversubscribable() (Resources, error) {
	result := make(chan oversubResult, 1)
	e.mailbox <- func() {
		res, err := e.oversubscribable()
		result <- oversubResult{res, err}
	}
	r := <-result
	return r.resources, r.err
}

type oversubResult struct {
	resources Resources
	err       error
}

func (e *Estimator) oversubscribable() (Resources, error) {
	samples, err := e.store.Latest()
	if err != nil {
		return Resources{}, err
	}
	if len(samples) == 0 {
		return Resources{}, nil
	}

	total := 0
	maxSample := 0
	for _, s := range samples {
		total += s.CPUCount
		if s.CPUCount > maxSample {
			maxSample = s.CPUCount
		}
	}
	mu := float64(total) / float64(len(samples))

	kStar := poissonArgmax(mu, maxSample)
	if kStar <= 0 {
		return Resources{}, nil
	}

	groups, err := e.driver.ListGroups()
	if err != nil {
		return Resources{}, err
	}

	policy, err := topology.NewCpuPolicy(e.info, groups)
	if err != nil {
		return Resources{}, err
	}

	selector := submodular.NewSelector(policy)
	selected := selector.Select(float64(kStar))

	if len(selected) != kStar {
		return Resources{}, nil
	}
	return Resources{Name: "core", Role: "*", Count: kStar}, nil
}

// poissonArgmax returns argmax_{k in [1,maxK]} P(k; mu), computing the
// Poisson density iteratively via density(k) = density(k-1)*mu/k to
// avoid overflowing k! directly. Ties favor the larger k, matching the
// Poisson distribution's own dual-mode behavior at integer means.
func poissonArgmax(mu float64, maxK int) int {
	if maxK < 1 {
		return 0
	}
	density := math.Exp(-mu)
	bestK := 0
	bestDensity := -1.0
	for k := 1; k <= maxK; k++ {
		density *= mu / float64(k)
		if density >= bestDensity {
			bestDensity = density
			bestK = k
		}
	}
	return bestK
}
