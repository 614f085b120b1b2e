// Package stream implements Server-Sent Events (SSE) streaming of detection
// frames. Clients connect via GET /api/v1/stream/frames and receive a
// continuous stream of object positions and active conjunctions from the
// frame cache.
//
// SSE message format:
//
//	data: {"type":"frame_batch","t":"2026-08-29T04:00:00Z","sim_t":123.0,"obj":[...],"conj":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","catalog_seeded_at":"...","catalog_age_seconds":1800,...}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sentinel/orbitgo/internal/cache"
	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/conjunction"
	"github.com/sentinel/orbitgo/internal/metrics"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // max concurrent streams per IP (default: 10)
	KeepaliveInterval  time.Duration // keep-alive ping interval (default: 30s)
	TrustProxy         bool          // trust X-Forwarded-For / X-Real-IP
}

// Handler manages SSE streaming connections.
type Handler struct {
	cache   *cache.FrameCache
	store   *catalog.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(frames *cache.FrameCache, store *catalog.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		cache:   frames,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandleFrames serves the SSE frame stream.
// GET /api/v1/stream/frames?step=5&trail=20
func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters.
	step := 5
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid step parameter, must be 1-60"})
			return
		}
		step = n
	}

	trail := 20
	if v := r.URL.Query().Get("trail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 120 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid trail parameter, must be 0-120"})
			return
		}
		trail = n
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := clientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	// Track connection metrics.
	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step", step,
		"trail", trail,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Use ResponseController to manage write deadlines for long-lived SSE.
	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	// Send metadata message (first message on every connection).
	if cat := h.store.Get(); cat != nil {
		meta := metadataMessage{
			Type:            "metadata",
			CatalogSeededAt: cat.SeededAt.UTC().Format(time.RFC3339),
			CatalogAge:      int(time.Since(cat.SeededAt).Seconds()),
			Satellites:      len(cat.Satellites()),
			Debris:          len(cat.Debris()),
		}
		if err := c.sendJSON(meta); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	// Stream frames at the requested step interval.
	ticker := time.NewTicker(time.Duration(step) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			frame := h.cache.Get(t)
			if frame == nil {
				metrics.IncStreamErrors("cache_miss")
				h.logger.Debug("stream cache miss",
					"timestamp", h.cache.RoundToStep(t).UTC().Format(time.RFC3339),
					"remote_ip", ip,
				)
				continue
			}

			var trailFrames []*conjunction.Frame
			if trail > 0 {
				trailFrames = h.cache.GetRecent(t, trail)
			}

			batch := buildBatchMessage(h.cache.RoundToStep(t), frame, trailFrames)
			data, err := json.Marshal(batch)
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildBatchMessage formats a frame into the SSE batch payload. If
// trailFrames is non-empty, each object includes past positions (oldest
// first).
func buildBatchMessage(ts time.Time, frame *conjunction.Frame, trailFrames []*conjunction.Frame) frameBatchMessage {
	// Build index: object id -> trail positions (oldest first).
	var trailIndex map[string][][3]float64
	if len(trailFrames) > 0 {
		trailIndex = make(map[string][][3]float64, len(frame.Positions))
		for _, tf := range trailFrames {
			for _, p := range tf.Positions {
				trailIndex[p.ID] = append(trailIndex[p.ID], [3]float64{p.Position.X, p.Position.Y, p.Position.Z})
			}
		}
	}

	objs := make([]objPayload, len(frame.Positions))
	for i, p := range frame.Positions {
		objs[i] = objPayload{
			ID:   p.ID,
			Type: string(p.Type),
			P:    [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		}
		if trailIndex != nil {
			if tr, ok := trailIndex[p.ID]; ok {
				objs[i].Tr = tr
			}
		}
	}

	return frameBatchMessage{
		Type: "frame_batch",
		T:    ts.UTC().Format(time.RFC3339),
		SimT: frame.SimTime,
		Obj:  objs,
		Conj: frame.Conjunctions,
	}
}

// clientIP extracts the client IP address from the request. When trustProxy
// is true, X-Forwarded-For (first entry) and X-Real-IP headers are checked
// before falling back to RemoteAddr.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first (leftmost) IP, the original client.
			if i := strings.IndexByte(xff, ','); i > 0 {
				xff = xff[:i]
			}
			if ip := strings.TrimSpace(xff); ip != "" {
				return ip
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SSE message payload types.

type metadataMessage struct {
	Type            string `json:"type"`
	CatalogSeededAt string `json:"catalog_seeded_at"`
	CatalogAge      int    `json:"catalog_age_seconds"`
	Satellites      int    `json:"satellites"`
	Debris          int    `json:"debris"`
}

type frameBatchMessage struct {
	Type string                    `json:"type"`
	T    string                    `json:"t"`
	SimT float64                   `json:"sim_t"`
	Obj  []objPayload              `json:"obj"`
	Conj []conjunction.Conjunction `json:"conj"`
}

type objPayload struct {
	ID   string       `json:"id"`
	Type string       `json:"type"`
	P    [3]float64   `json:"p"`
	Tr   [][3]float64 `json:"tr,omitempty"`
}
