package conjunction

import (
	"context"
	"fmt"
	"testing"

	"github.com/sentinel/orbitgo/internal/orbit"
)

// TestWorkerPoolBatch verifies the pool propagates every object and returns
// positions in catalog order.
func TestWorkerPoolBatch(t *testing.T) {
	pool := NewWorkerPool(4, testLogger())

	objects := make([]orbit.Object, 20)
	for i := range objects {
		el, err := orbit.NewElements(orbit.EarthRadius+500+float64(i)*10, 0.001, 0.5, 1, 2, float64(i)*0.1, 0.0011)
		if err != nil {
			t.Fatalf("NewElements failed: %v", err)
		}
		objects[i] = orbit.Object{
			ID:       fmt.Sprintf("OBJ-%d", i),
			Type:     orbit.TypeDebris,
			Elements: el,
		}
	}

	positions, successCount, errorCount := pool.PropagateBatch(context.Background(), objects, 120)
	if errorCount != 0 {
		t.Errorf("errorCount = %d, want 0", errorCount)
	}
	if successCount != len(objects) {
		t.Errorf("successCount = %d, want %d", successCount, len(objects))
	}
	if len(positions) != len(objects) {
		t.Fatalf("got %d positions, want %d", len(positions), len(objects))
	}

	for i, pos := range positions {
		if want := fmt.Sprintf("OBJ-%d", i); pos.ID != want {
			t.Errorf("position %d: id = %s, want %s (catalog order)", i, pos.ID, want)
		}
	}
}

// TestWorkerPoolSkipsFailures verifies malformed elements are counted as
// errors and excluded without disturbing the order of the rest.
func TestWorkerPoolSkipsFailures(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	good, err := orbit.NewElements(6871, 0, 0, 0, 0, 0, 0.0011)
	if err != nil {
		t.Fatalf("NewElements failed: %v", err)
	}

	objects := []orbit.Object{
		{ID: "A", Type: orbit.TypeSatellite, Elements: good},
		{ID: "B", Type: orbit.TypeDebris, Elements: orbit.Elements{A: 7000, E: 1.2, N: 0.001}},
		{ID: "C", Type: orbit.TypeDebris, Elements: good},
	}

	positions, successCount, errorCount := pool.PropagateBatch(context.Background(), objects, 0)
	if successCount != 2 || errorCount != 1 {
		t.Errorf("counts = %d success, %d error; want 2, 1", successCount, errorCount)
	}
	if len(positions) != 2 || positions[0].ID != "A" || positions[1].ID != "C" {
		t.Errorf("positions = %v, want A then C", positions)
	}
}

// TestWorkerPoolEmpty verifies the pool handles an empty batch.
func TestWorkerPoolEmpty(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())
	positions, successCount, errorCount := pool.PropagateBatch(context.Background(), nil, 0)
	if positions != nil || successCount != 0 || errorCount != 0 {
		t.Errorf("empty batch returned %v, %d, %d", positions, successCount, errorCount)
	}
}

// TestWorkerPoolCancellation verifies a cancelled context stops the batch
// early without deadlocking.
func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	el, err := orbit.NewElements(6871, 0, 0, 0, 0, 0, 0.0011)
	if err != nil {
		t.Fatalf("NewElements failed: %v", err)
	}
	objects := make([]orbit.Object, 500)
	for i := range objects {
		objects[i] = orbit.Object{ID: fmt.Sprintf("OBJ-%d", i), Type: orbit.TypeDebris, Elements: el}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel before the batch starts

	positions, _, _ := pool.PropagateBatch(ctx, objects, 0)
	if len(positions) >= len(objects) {
		t.Errorf("expected a partial result with cancelled context, got %d/%d", len(positions), len(objects))
	}
}
