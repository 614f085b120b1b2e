// Package conjunction screens satellite-debris pairs for close approaches
// and scores each candidate's collision risk.
//
// Screening is a fixed-radius coarse prefilter over the full satellite x
// debris cross product; the probability model is the original mock scoring
// (distance-saturated base times a uniform jitter), kept for behavioral
// parity. All randomness flows through an injected source so a seeded
// detector is fully reproducible.
package conjunction

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/metrics"
	"github.com/sentinel/orbitgo/internal/orbit"
)

const (
	// ScreeningRadius is the fixed candidate distance in km. Deliberately
	// generous: a production screen would treat this as a coarse prefilter
	// ahead of a relative-trajectory analysis.
	ScreeningRadius = 800.0

	// saturationDistance is the distance in km at and below which the base
	// probability saturates at 1.
	saturationDistance = 500.0

	// distanceEpsilon guards the base-probability division: co-located
	// objects clamp to the saturated base instead of dividing by zero.
	distanceEpsilon = 1e-9

	// MaxResults caps the ranked conjunction list.
	MaxResults = 5

	// maxProbability caps the jittered score.
	maxProbability = 0.99

	// maxTimeToImpact bounds the random time-to-impact draw (72h in seconds).
	maxTimeToImpact = 72 * 3600.0
)

// Config holds detector configuration.
type Config struct {
	Workers int // propagation worker pool size
}

// Detector screens a catalog snapshot for conjunctions at a given sim time.
// Safe for concurrent use; the RNG is serialized internally.
type Detector struct {
	store  *catalog.Store
	pool   *WorkerPool
	config Config
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDetector creates a detector over the given catalog store. rng may be
// nil, in which case a time-seeded source is used; tests inject a fixed
// seed to pin the jitter sequence.
func NewDetector(store *catalog.Store, config Config, rng *rand.Rand, logger *slog.Logger) *Detector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Detector{
		store:  store,
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
		rng:    rng,
	}
}

// Detect screens all satellite-debris pairs at sim time t and returns the
// ranked, truncated conjunction list. Returns an error only when no catalog
// has been seeded; an empty catalog yields an empty result.
func (d *Detector) Detect(ctx context.Context, t float64) ([]Conjunction, error) {
	frame, err := d.Frame(ctx, t)
	if err != nil {
		return nil, err
	}
	return frame.Conjunctions, nil
}

// Frame propagates the whole catalog at sim time t and screens it, returning
// positions plus conjunctions. This is the cache/stream entry point.
func (d *Detector) Frame(ctx context.Context, t float64) (*Frame, error) {
	cat := d.store.Get()
	if cat == nil {
		return nil, fmt.Errorf("no catalog loaded")
	}

	d.logger.Debug("detecting conjunctions",
		"object_count", len(cat.Objects),
		"sim_time", t,
		"workers", d.config.Workers,
	)

	start := time.Now()
	positions, successCount, errorCount := d.pool.PropagateBatch(ctx, cat.Objects, t)
	propDuration := time.Since(start)
	metrics.RecordPropagation(propDuration, successCount, errorCount)

	// Screening draws from the shared RNG; serialize so concurrent calls
	// stay valid (each call's draw sequence is then seed-and-order defined).
	d.rngMu.Lock()
	conjunctions, candidates := screen(positions, t, d.rng)
	d.rngMu.Unlock()

	duration := time.Since(start)
	metrics.RecordDetection(duration, candidates)
	for _, c := range conjunctions {
		metrics.IncConjunctionsDetected(string(c.RiskLevel))
	}

	d.logger.Debug("detection complete",
		"candidates", candidates,
		"conjunctions", len(conjunctions),
		"propagation_errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	return &Frame{
		SimTime:      t,
		Positions:    positions,
		Conjunctions: conjunctions,
	}, nil
}

// Screen is the pure, single-threaded form of detection: it propagates the
// given objects sequentially and screens every satellite-debris pair at sim
// time t. Objects that fail to propagate are skipped. The caller owns rng.
func Screen(objects []orbit.Object, t float64, rng *rand.Rand) []Conjunction {
	positions := make([]ObjectPosition, 0, len(objects))
	for _, obj := range objects {
		p, err := obj.Elements.PositionAt(t)
		if err != nil {
			continue
		}
		positions = append(positions, ObjectPosition{ID: obj.ID, Name: obj.Name, Type: obj.Type, Position: p})
	}
	conjunctions, _ := screen(positions, t, rng)
	return conjunctions
}

// screen runs the pairwise distance screen and risk scoring over propagated
// positions. Positions must be in catalog order: the partition into
// satellites and debris is positional, and generation order is the stable
// sort tiebreaker. Returns the ranked list and the candidate count.
func screen(positions []ObjectPosition, t float64, rng *rand.Rand) ([]Conjunction, int) {
	var sats, debris []ObjectPosition
	for _, p := range positions {
		switch p.Type {
		case orbit.TypeSatellite:
			sats = append(sats, p)
		case orbit.TypeDebris:
			debris = append(debris, p)
		}
	}

	var conjunctions []Conjunction
	var candidates int

	for _, sat := range sats {
		for _, deb := range debris {
			dist := r3.Norm(r3.Sub(sat.Position, deb.Position))
			if dist >= ScreeningRadius {
				continue
			}
			candidates++

			base := 1.0
			if dist > distanceEpsilon {
				base = saturationDistance / dist
				if base > 1 {
					base = 1
				}
			}

			// Jitter in [0.8, 1.2): the mock stand-in for model uncertainty.
			probability := base * (0.8 + rng.Float64()*0.4)
			if probability > maxProbability {
				probability = maxProbability
			}

			risk := Classify(probability)
			if risk == RiskLow {
				continue
			}

			conjunctions = append(conjunctions, Conjunction{
				ID:           sat.ID + "-" + deb.ID + "-" + strconv.FormatFloat(t, 'g', -1, 64),
				ObjectA:      sat.Name,
				ObjectB:      deb.Name,
				TimeToImpact: rng.Float64() * maxTimeToImpact,
				Probability:  probability,
				RiskLevel:    risk,
				MissDistance: dist,
			})
		}
	}

	// Stable sort keeps generation order for equal probabilities, which is
	// what makes a seeded run fully reproducible.
	sort.SliceStable(conjunctions, func(i, j int) bool {
		return conjunctions[i].Probability > conjunctions[j].Probability
	})
	if len(conjunctions) > MaxResults {
		conjunctions = conjunctions[:MaxResults]
	}
	return conjunctions, candidates
}
