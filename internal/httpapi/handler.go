package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pawlog/internal/domain"
	"pawlog/internal/logging"
	"pawlog/internal/observability"
	"pawlog/internal/orchestrator"
	"pawlog/internal/storage"
)

// maxBodyBytes caps the size of a record request body.
const maxBodyBytes = 64 << 10

// Service records events and serves statistics. orchestrator.Orchestrator satisfies it.
type Service interface {
	Record(ctx context.Context, req orchestrator.RecordRequest) (*domain.Event, error)
	Statistics(ctx context.Context) (*domain.Summary, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// Stream is the websocket endpoint. ws.Hub satisfies it.
type Stream interface {
	http.Handler
	Count() int
}

// Options for creating the API handler.
type Options struct {
	Service Service
	Stream  Stream // optional; /ws is not mounted when nil

	// AuthToken, when set, must match the bearer token. When empty any
	// well-formed bearer token is accepted.
	AuthToken string

	Backend string // reported by /status
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handler is the HTTP handler for all routes.
type Handler struct {
	service   Service
	stream    Stream
	authToken string
	backend   string
	logger    *slog.Logger
	now       func() time.Time
	started   time.Time

	mu           sync.Mutex
	lastRecorded time.Time
}

// New creates the API handler with all routes and middlewares registered.
func New(opts Options) http.Handler {
	h := &Handler{
		service:   opts.Service,
		stream:    opts.Stream,
		authToken: opts.AuthToken,
		backend:   opts.Backend,
		logger:    logging.Component(opts.Logger, "httpapi"),
		now:       opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.started = h.now()

	mux := http.NewServeMux()
	mux.Handle("/api/events", methods(h.requireAuth(http.HandlerFunc(h.createEvent)), http.MethodPost))
	mux.Handle("/api/stats", methods(h.requireAuth(http.HandlerFunc(h.stats)), http.MethodGet))
	mux.Handle("/health", methods(http.HandlerFunc(h.health), http.MethodGet))
	mux.Handle("/metrics", methods(observability.Handler(), http.MethodGet))
	mux.Handle("/status", methods(http.HandlerFunc(h.status), http.MethodGet))
	if h.stream != nil {
		mux.Handle("/ws", methods(h.requireStreamAuth(h.stream), http.MethodGet))
	}

	return requestID(accessLog(h.logger, mux))
}

// --- route handlers ---------------------------------------------------------

// recordResponse is the body returned by POST /api/events.
type recordResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// createEvent handles POST /api/events.
func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.RecordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		observability.RecordEventRejected("malformed")
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := h.service.Record(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	h.lastRecorded = h.now()
	h.mu.Unlock()

	jsonResp(w, http.StatusOK, recordResponse{Status: "success", ID: event.ID})
}

// stats handles GET /api/stats.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Statistics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, summary.Flatten())
}

// health handles GET /health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status       string         `json:"status"`
	Uptime       string         `json:"uptime"`
	Started      time.Time      `json:"started"`
	Backend      string         `json:"backend"`
	Events       map[string]int `json:"events"`
	LastRecorded *time.Time     `json:"last_recorded,omitempty"`
	WSClients    int            `json:"ws_clients"`
}

// status handles GET /status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := StatusResponse{
		Status:  "running",
		Uptime:  h.now().Sub(h.started).Round(time.Second).String(),
		Started: h.started,
		Backend: h.backend,
		Events:  counts,
	}
	h.mu.Lock()
	if !h.lastRecorded.IsZero() {
		last := h.lastRecorded
		resp.LastRecorded = &last
	}
	h.mu.Unlock()
	if h.stream != nil {
		resp.WSClients = h.stream.Count()
	}

	jsonResp(w, http.StatusOK, resp)
}

// writeError maps service errors to status codes. Unexpected errors are logged
// and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidEvent), errors.Is(err, storage.ErrInvalidInput):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrDuplicateKey):
		jsonErr(w, http.StatusConflict, "event already recorded")
	default:
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()), "error", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

// --- helpers ----------------------------------------------------------------

type errorResponse struct {
	Message string `json:"message"`
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Message: msg})
}
