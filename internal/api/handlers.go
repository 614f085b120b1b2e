package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sentinel/orbitgo/internal/cache"
	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/conjunction"
	"github.com/sentinel/orbitgo/internal/maneuver"
	"github.com/sentinel/orbitgo/internal/metrics"
	"github.com/sentinel/orbitgo/internal/orbit"
)

// maxSeriesPositions caps the per-request propagation series so a single
// request cannot consume unbounded CPU.
const maxSeriesPositions = 10000

// maxCatalogObjects bounds a reseed request.
const maxCatalogObjects = 1000

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// rootHandler reports service identity, matching the frontend's status check.
func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"system": "SENTINEL", "status": "ONLINE"})
}

// objectsHandler returns all tracked objects and their elements.
func objectsHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat := store.Get()
		if cat == nil {
			writeJSON(w, http.StatusOK, []orbit.Object{})
			return
		}
		writeJSON(w, http.StatusOK, cat.Objects)
	}
}

type catalogMetadata struct {
	Source     string  `json:"source"`
	Seed       int64   `json:"seed"`
	SeededAt   string  `json:"seeded_at"`
	AgeSeconds float64 `json:"age_seconds"`
	Satellites int     `json:"satellites"`
	Debris     int     `json:"debris"`
}

func metadataFor(cat *catalog.Catalog) catalogMetadata {
	return catalogMetadata{
		Source:     cat.Source,
		Seed:       cat.Seed,
		SeededAt:   cat.SeededAt.UTC().Format(time.RFC3339),
		AgeSeconds: time.Since(cat.SeededAt).Seconds(),
		Satellites: len(cat.Satellites()),
		Debris:     len(cat.Debris()),
	}
}

// catalogMetadataHandler reports the current catalog generation.
func catalogMetadataHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat := store.Get()
		if cat == nil {
			writeError(w, http.StatusNotFound, "no catalog loaded")
			return
		}
		writeJSON(w, http.StatusOK, metadataFor(cat))
	}
}

// catalogSeedHandler reseeds the catalog. The running frame cache notices
// the new generation on its next tick and cuts over gracefully.
// POST /api/v1/catalog/seed?seed=42&sats=5&debris=20
func catalogSeedHandler(logger *slog.Logger, store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seed := time.Now().UnixNano()
		if v := r.URL.Query().Get("seed"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid seed parameter")
				return
			}
			seed = n
		}

		nSats := catalog.DefaultSatellites
		if v := r.URL.Query().Get("sats"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > maxCatalogObjects {
				writeError(w, http.StatusBadRequest, "invalid sats parameter")
				return
			}
			nSats = n
		}

		nDebris := catalog.DefaultDebris
		if v := r.URL.Query().Get("debris"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > maxCatalogObjects {
				writeError(w, http.StatusBadRequest, "invalid debris parameter")
				return
			}
			nDebris = n
		}

		cat := catalog.SeedStore(store, seed, nSats, nDebris)
		metrics.SetCatalogObjects(nSats, nDebris)

		logger.Info("catalog reseeded",
			"seed", seed,
			"satellites", nSats,
			"debris", nDebris,
		)

		writeJSON(w, http.StatusOK, metadataFor(cat))
	}
}

// conjunctionsHandler screens the catalog at the requested sim time.
// GET /api/v1/conjunctions?t=120
func conjunctionsHandler(logger *slog.Logger, detector *conjunction.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := 0.0
		if v := r.URL.Query().Get("t"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid t parameter")
				return
			}
			t = f
		}

		result, err := detector.Detect(r.Context(), t)
		if err != nil {
			logger.Warn("conjunction screen failed", "sim_time", t, "error", err)
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if result == nil {
			result = []conjunction.Conjunction{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type seriesPoint struct {
	T        float64    `json:"t"`
	Position [3]float64 `json:"position"`
}

// propagateSingleHandler returns a position series for one object.
// GET /api/v1/propagate/{id}?t=0&step=5&horizon=600
func propagateSingleHandler(logger *slog.Logger, store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat := store.Get()
		if cat == nil {
			writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
			return
		}

		obj, ok := cat.Lookup(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown object id")
			return
		}

		start := 0.0
		if v := r.URL.Query().Get("t"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid t parameter")
				return
			}
			start = f
		}

		step := 5.0
		if v := r.URL.Query().Get("step"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				writeError(w, http.StatusBadRequest, "invalid step parameter, must be > 0")
				return
			}
			step = f
		}

		horizon := 600.0
		if v := r.URL.Query().Get("horizon"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				writeError(w, http.StatusBadRequest, "invalid horizon parameter, must be >= 0")
				return
			}
			horizon = f
		}

		numPositions := int(horizon/step) + 1
		if numPositions > maxSeriesPositions {
			writeError(w, http.StatusBadRequest, "requested series exceeds the position budget, reduce horizon or increase step")
			return
		}

		points := make([]seriesPoint, 0, numPositions)
		for i := 0; i < numPositions; i++ {
			t := start + float64(i)*step
			p, err := obj.Elements.PositionAt(t)
			if err != nil {
				logger.Warn("propagation failed", "object_id", obj.ID, "sim_time", t, "error", err)
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			points = append(points, seriesPoint{T: t, Position: [3]float64{p.X, p.Y, p.Z}})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":        obj.ID,
			"name":      obj.Name,
			"positions": points,
		})
	}
}

type maneuverRequest struct {
	TargetID string `json:"target_id"`
}

// maneuverHandler triggers the placeholder avoidance engine.
// POST /api/v1/maneuver  {"target_id":"SAT-0"}
func maneuverHandler(logger *slog.Logger, planner *maneuver.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req maneuverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetID == "" {
			writeError(w, http.StatusBadRequest, "target_id is required")
			return
		}

		plan, err := planner.Plan(req.TargetID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		logger.Info("maneuver planned", "target_id", req.TargetID, "thrust_n", plan.ThrustN)
		writeJSON(w, http.StatusOK, plan)
	}
}

// cacheStatsHandler reports frame cache statistics.
func cacheStatsHandler(frames *cache.FrameCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, frames.Stats())
	}
}
