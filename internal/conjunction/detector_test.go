package conjunction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/orbit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func mustElements(t *testing.T, a, e, i, w, o, m0, n float64) orbit.Elements {
	t.Helper()
	el, err := orbit.NewElements(a, e, i, w, o, m0, n)
	require.NoError(t, err)
	return el
}

// refElements is the end-to-end reference orbit: circular LEO at 500 km.
func refElements(t *testing.T) orbit.Elements {
	return mustElements(t, 6871, 0, 0, 0, 0, 0, 0.0011)
}

func makeObject(t *testing.T, id, name string, typ orbit.ObjectType, el orbit.Elements) orbit.Object {
	t.Helper()
	return orbit.Object{ID: id, Name: name, Type: typ, Elements: el}
}

func TestScreenEmptyInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	el := refElements(t)

	assert.Empty(t, Screen(nil, 0, rng))
	assert.Empty(t, Screen([]orbit.Object{
		makeObject(t, "SAT-0", "SENTINEL-1", orbit.TypeSatellite, el),
	}, 0, rng), "satellite-only catalog must yield no conjunctions")
	assert.Empty(t, Screen([]orbit.Object{
		makeObject(t, "DEB-1000", "DEBRIS FRAGMENT #1", orbit.TypeDebris, el),
	}, 0, rng), "debris-only catalog must yield no conjunctions")
}

// TestScreenCoincidentPair is the end-to-end scenario: one satellite and one
// debris object on identical elements occupy the same point at t=0. The
// screen must not fault on the zero distance and must saturate the base
// probability.
func TestScreenCoincidentPair(t *testing.T) {
	el := refElements(t)
	objects := []orbit.Object{
		makeObject(t, "SAT-0", "SENTINEL-1", orbit.TypeSatellite, el),
		makeObject(t, "DEB-1000", "DEBRIS FRAGMENT #1", orbit.TypeDebris, el),
	}

	result := Screen(objects, 0, rand.New(rand.NewSource(99)))
	require.Len(t, result, 1)

	c := result[0]
	assert.Equal(t, "SAT-0-DEB-1000-0", c.ID)
	assert.Equal(t, "SENTINEL-1", c.ObjectA)
	assert.Equal(t, "DEBRIS FRAGMENT #1", c.ObjectB)
	assert.Zero(t, c.MissDistance)
	assert.GreaterOrEqual(t, c.Probability, 0.8, "saturated base times jitter floor")
	assert.LessOrEqual(t, c.Probability, 0.99)
	assert.Contains(t, []RiskLevel{RiskMedium, RiskHigh}, c.RiskLevel)
	assert.GreaterOrEqual(t, c.TimeToImpact, 0.0)
	assert.LessOrEqual(t, c.TimeToImpact, 72*3600.0)
}

// TestScreenCapAndOrder floods the screen with coincident pairs and checks
// the top-5 cap, descending order and absence of LOW entries.
func TestScreenCapAndOrder(t *testing.T) {
	el := refElements(t)
	var objects []orbit.Object
	for i := 0; i < 4; i++ {
		objects = append(objects, makeObject(t, fmt.Sprintf("SAT-%d", i), fmt.Sprintf("S%d", i), orbit.TypeSatellite, el))
	}
	for i := 0; i < 8; i++ {
		objects = append(objects, makeObject(t, fmt.Sprintf("DEB-%d", 1000+i), fmt.Sprintf("D%d", i), orbit.TypeDebris, el))
	}

	result := Screen(objects, 30, rand.New(rand.NewSource(5)))
	require.Len(t, result, MaxResults, "32 saturated candidates must truncate to the cap")

	for k, c := range result {
		assert.NotEqual(t, RiskLow, c.RiskLevel, "entry %d is LOW", k)
		if k > 0 {
			assert.GreaterOrEqual(t, result[k-1].Probability, c.Probability,
				"entries %d and %d out of order", k-1, k)
		}
	}
}

// TestScreenDistantPairNotCandidate places the debris on the opposite side
// of the same orbit; separation of ~2a never passes the screening radius.
func TestScreenDistantPairNotCandidate(t *testing.T) {
	sat := makeObject(t, "SAT-0", "S", orbit.TypeSatellite, refElements(t))
	deb := makeObject(t, "DEB-1000", "D", orbit.TypeDebris,
		mustElements(t, 6871, 0, 0, 0, 0, math.Pi, 0.0011))

	result := Screen([]orbit.Object{sat, deb}, 0, rand.New(rand.NewSource(1)))
	assert.Empty(t, result)
}

// TestScreenDeterministicWithSeed verifies identical seeds give identical
// output, including the jitter and time-to-impact draws.
func TestScreenDeterministicWithSeed(t *testing.T) {
	el := refElements(t)
	objects := []orbit.Object{
		makeObject(t, "SAT-0", "S", orbit.TypeSatellite, el),
		makeObject(t, "DEB-1000", "D", orbit.TypeDebris, el),
		makeObject(t, "DEB-1001", "D2", orbit.TypeDebris, el),
	}

	a := Screen(objects, 12.5, rand.New(rand.NewSource(77)))
	b := Screen(objects, 12.5, rand.New(rand.NewSource(77)))
	require.Equal(t, a, b)

	c := Screen(objects, 12.5, rand.New(rand.NewSource(78)))
	require.Len(t, c, len(a))
	assert.NotEqual(t, a[0].Probability, c[0].Probability, "different seeds should jitter differently")
}

// TestScreenSkipsMalformedElements verifies that an object whose elements
// violate the elliptical domain is skipped, not a fault.
func TestScreenSkipsMalformedElements(t *testing.T) {
	el := refElements(t)
	objects := []orbit.Object{
		makeObject(t, "SAT-0", "S", orbit.TypeSatellite, el),
		// Constructed directly to bypass validation, as pre-validated input
		// is assumed but must never crash the screen.
		{ID: "DEB-1000", Name: "D", Type: orbit.TypeDebris, Elements: orbit.Elements{A: 7000, E: 1.5, N: 0.001}},
		makeObject(t, "DEB-1001", "D2", orbit.TypeDebris, el),
	}

	result := Screen(objects, 0, rand.New(rand.NewSource(3)))
	require.Len(t, result, 1, "the well-formed pair must still be screened")
	assert.Equal(t, "D2", result[0].ObjectB)
}

func TestDetectorNoCatalog(t *testing.T) {
	d := NewDetector(catalog.NewStore(), Config{Workers: 2}, rand.New(rand.NewSource(1)), testLogger())
	_, err := d.Detect(context.Background(), 0)
	require.Error(t, err)
}

func TestDetectorEmptyCatalog(t *testing.T) {
	store := catalog.NewStore()
	store.Set(&catalog.Catalog{Source: "test", SeededAt: time.Now()})

	d := NewDetector(store, Config{Workers: 2}, rand.New(rand.NewSource(1)), testLogger())
	result, err := d.Detect(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestDetectorFrame(t *testing.T) {
	el := refElements(t)
	store := catalog.NewStore()
	store.Set(&catalog.Catalog{
		Source:   "test",
		SeededAt: time.Now(),
		Objects: []orbit.Object{
			makeObject(t, "SAT-0", "SENTINEL-1", orbit.TypeSatellite, el),
			makeObject(t, "DEB-1000", "DEBRIS FRAGMENT #1", orbit.TypeDebris, el),
		},
	})

	d := NewDetector(store, Config{Workers: 4}, rand.New(rand.NewSource(42)), testLogger())
	frame, err := d.Frame(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, frame.Positions, 2)
	assert.Equal(t, "SAT-0", frame.Positions[0].ID, "positions must stay in catalog order")
	assert.Equal(t, "DEB-1000", frame.Positions[1].ID)

	require.Len(t, frame.Conjunctions, 1)
	assert.Equal(t, "SENTINEL-1", frame.Conjunctions[0].ObjectA)
	assert.GreaterOrEqual(t, frame.Conjunctions[0].Probability, 0.8)
}

// TestDetectorSeededCatalog runs detection over a realistically seeded
// catalog at several times and checks the output contract invariants.
func TestDetectorSeededCatalog(t *testing.T) {
	store := catalog.NewStore()
	catalog.SeedStore(store, 42, catalog.DefaultSatellites, catalog.DefaultDebris)

	d := NewDetector(store, Config{Workers: 4}, rand.New(rand.NewSource(1)), testLogger())

	for _, simTime := range []float64{0, 600, 3600, 86400} {
		result, err := d.Detect(context.Background(), simTime)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(result), MaxResults)

		for k, c := range result {
			assert.NotEqual(t, RiskLow, c.RiskLevel)
			assert.LessOrEqual(t, c.Probability, 0.99)
			assert.Less(t, c.MissDistance, ScreeningRadius)
			if k > 0 {
				assert.GreaterOrEqual(t, result[k-1].Probability, c.Probability)
			}
		}
	}
}
