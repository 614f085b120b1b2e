package metrics

import (
	"fmt"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/api/v1/objects", "/api/v1/objects"},
		{"/api/v1/catalog/metadata", "/api/v1/catalog/metadata"},
		{"/api/v1/catalog/seed", "/api/v1/catalog/seed"},
		{"/api/v1/conjunctions", "/api/v1/conjunctions"},
		{"/api/v1/maneuver", "/api/v1/maneuver"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},
		{"/api/v1/stream/frames", "/api/v1/stream/frames"},

		// Parameterized propagate routes collapse to one label.
		{"/api/v1/propagate/SAT-0", "/api/v1/propagate/{id}"},
		{"/api/v1/propagate/DEB-1017", "/api/v1/propagate/{id}"},
		{"/api/v1/propagate/anything", "/api/v1/propagate/{id}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct object ids produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute(fmt.Sprintf("/api/v1/propagate/DEB-%d", 1000+i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
