// Package maneuver is the avoidance-maneuver engine stub. It produces
// randomized placeholder burns with no physical model behind them; the
// real engine is a planned replacement. The API shape is the stable part.
package maneuver

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sentinel/orbitgo/internal/catalog"
)

// Plan describes a suggested avoidance burn for a tracked object.
type Plan struct {
	TargetID  string     `json:"targetId"`
	ThrustN   float64    `json:"thrustN"`
	Vector    [3]float64 `json:"vector"`
	Duration  float64    `json:"duration"` // seconds
	Timestamp string     `json:"timestamp"`
}

// Planner generates placeholder maneuver plans.
type Planner struct {
	store *catalog.Store

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewPlanner creates a planner over the given catalog. rng may be nil for a
// time-seeded source.
func NewPlanner(store *catalog.Store, rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{store: store, rng: rng}
}

// Plan returns a randomized placeholder plan for the target object.
// The target must exist in the current catalog.
func (p *Planner) Plan(targetID string) (Plan, error) {
	cat := p.store.Get()
	if cat == nil {
		return Plan{}, fmt.Errorf("no catalog loaded")
	}
	if _, ok := cat.Lookup(targetID); !ok {
		return Plan{}, fmt.Errorf("unknown object %q", targetID)
	}

	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	return Plan{
		TargetID: targetID,
		ThrustN:  round2(1.2 + p.rng.Float64()),
		Vector: [3]float64{
			round2(p.rng.Float64()*2 - 1),
			round2(p.rng.Float64()*2 - 1),
			round2(p.rng.Float64()*2 - 1),
		},
		Duration:  float64(5 + p.rng.Intn(11)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
