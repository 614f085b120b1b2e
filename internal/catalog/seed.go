package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sentinel/orbitgo/internal/orbit"
)

// Default population sizes for a seeded demo catalog.
const (
	DefaultSatellites = 5
	DefaultDebris     = 20
)

// satelliteNames are the named demo satellites, assigned in order. Extra
// satellites beyond the list get generated names.
var satelliteNames = []string{"SENTINEL-1", "NONAME-X", "EAGLE-EYE", "COMMS-A", "COMMS-B"}

const (
	satelliteColor = "#06b6d4"
	debrisColor    = "#ef4444"
)

// Seed builds a randomized catalog of nSats satellites and nDebris debris
// fragments. All draws come from rng, so a fixed seed reproduces the exact
// same catalog. Satellites are placed in low, near-circular orbits; debris
// spans a wider altitude and eccentricity band.
func Seed(rng *rand.Rand, seed int64, nSats, nDebris int) *Catalog {
	objects := make([]orbit.Object, 0, nSats+nDebris)

	for i := 0; i < nSats; i++ {
		name := fmt.Sprintf("SAT-X%d", i+1)
		if i < len(satelliteNames) {
			name = satelliteNames[i]
		}
		// Draw ranges sit strictly inside the validation envelope, so the
		// construction error is impossible here.
		el, _ := orbit.NewElements(
			orbit.EarthRadius+500+rng.Float64()*200,
			0.001+rng.Float64()*0.01,
			rng.Float64()*math.Pi/2,
			rng.Float64()*2*math.Pi,
			rng.Float64()*2*math.Pi,
			rng.Float64()*2*math.Pi,
			0.0010+rng.Float64()*0.0001,
		)
		objects = append(objects, orbit.Object{
			ID:       fmt.Sprintf("SAT-%d", i),
			Name:     name,
			Type:     orbit.TypeSatellite,
			Color:    satelliteColor,
			Elements: el,
		})
	}

	for i := 0; i < nDebris; i++ {
		el, _ := orbit.NewElements(
			orbit.EarthRadius+400+rng.Float64()*1000,
			rng.Float64()*0.1,
			rng.Float64()*math.Pi,
			rng.Float64()*2*math.Pi,
			rng.Float64()*2*math.Pi,
			rng.Float64()*2*math.Pi,
			0.0009+rng.Float64()*0.0003,
		)
		objects = append(objects, orbit.Object{
			ID:       fmt.Sprintf("DEB-%d", 1000+i),
			Name:     fmt.Sprintf("DEBRIS FRAGMENT #%d", i+1),
			Type:     orbit.TypeDebris,
			Color:    debrisColor,
			Elements: el,
		})
	}

	return &Catalog{
		Source:   "seed",
		Seed:     seed,
		SeededAt: time.Now(),
		Objects:  objects,
	}
}

// SeedStore seeds the store with a fresh catalog, serialized against
// concurrent reseeds. Returns the new catalog.
func SeedStore(store *Store, seed int64, nSats, nDebris int) *Catalog {
	store.Lock()
	defer store.Unlock()

	c := Seed(rand.New(rand.NewSource(seed)), seed, nSats, nDebris)
	store.Set(c)
	return c
}
