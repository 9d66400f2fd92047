package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawlog/internal/domain"
	"pawlog/internal/httpapi"
	"pawlog/internal/orchestrator"
	"pawlog/internal/storage/memory"
	"pawlog/internal/ws"
)

// --- test helpers -----------------------------------------------------------

const bearer = "Bearer test-token"

type fakeStream struct{ clients int }

func (s fakeStream) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}
func (s fakeStream) Count() int { return s.clients }

type brokenService struct{ err error }

func (s brokenService) Record(context.Context, orchestrator.RecordRequest) (*domain.Event, error) {
	return nil, s.err
}
func (s brokenService) Statistics(context.Context) (*domain.Summary, error) { return nil, s.err }
func (s brokenService) Counts(context.Context) (map[string]int, error)      { return nil, s.err }

func newAPI(t *testing.T, token string) http.Handler {
	t.Helper()
	svc := orchestrator.New(orchestrator.Options{Store: memory.NewEventStore()})
	return httpapi.New(httpapi.Options{
		Service:   svc,
		Stream:    fakeStream{clients: 3},
		AuthToken: token,
		Backend:   "memory",
	})
}

func do(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func record(t *testing.T, h http.Handler, typ, location, ts string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"type":"` + typ + `","location":"` + location + `","timestamp":"` + ts + `"}`
	return do(t, h, http.MethodPost, "/api/events", bearer, body)
}

// --- tests ------------------------------------------------------------------

func TestCreateEvent(t *testing.T) {
	h := newAPI(t, "")

	rr := record(t, h, "Pee", "Inside", "2024-03-01T08:00:00Z")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]string
	decode(t, rr, &resp)
	assert.Equal(t, "success", resp["status"])
	assert.NotEmpty(t, resp["id"])
}

func TestCreateEvent_Errors(t *testing.T) {
	h := newAPI(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"unknown type", `{"type":"Bark","location":"Inside","timestamp":"2024-03-01T08:00:00Z"}`, http.StatusBadRequest},
		{"missing location", `{"type":"Pee","timestamp":"2024-03-01T08:00:00Z"}`, http.StatusBadRequest},
		{"bad timestamp", `{"type":"Pee","location":"Inside","timestamp":"soon"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/events", bearer, tt.body)
			assert.Equal(t, tt.want, rr.Code)

			var resp map[string]string
			decode(t, rr, &resp)
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestCreateEvent_Duplicate(t *testing.T) {
	h := newAPI(t, "")

	require.Equal(t, http.StatusOK, record(t, h, "Poo", "Outside", "2024-03-01T08:00:00Z").Code)
	rr := record(t, h, "Poo", "Outside", "2024-03-01T08:00:00Z")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestStats(t *testing.T) {
	h := newAPI(t, "")

	record(t, h, "Pee", "Inside", "2024-03-01T08:00:00Z")
	record(t, h, "Pee", "Outside", "2024-03-01T12:00:00Z")
	record(t, h, "Pee", "Inside", "2024-03-01T14:00:00Z")

	rr := do(t, h, http.MethodGet, "/api/stats", bearer, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	decode(t, rr, &resp)
	assert.Equal(t, 4.0, resp["pee_max"])
	assert.Equal(t, 3.0, resp["pee_avg"])
	assert.Equal(t, 0.0, resp["poo_max"])
	assert.Contains(t, resp, "pee_location")
	assert.Contains(t, resp, "poo_time_dist")

	daily, ok := resp["daily_averages"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"2024-03-01": 3.0}, daily["pee"])
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		auth    string
		want    int
		message string
	}{
		{"missing header", "", "", http.StatusUnauthorized, "No authorization header"},
		{"no token part", "", "Bearer", http.StatusUnauthorized, "Invalid token"},
		{"empty token", "", "Bearer   ", http.StatusUnauthorized, "Invalid token"},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized, "Invalid token"},
		{"any token when unconfigured", "", "Bearer whatever", http.StatusOK, ""},
		{"lowercase scheme", "", "bearer whatever", http.StatusOK, ""},
		{"configured match", "s3cret", "Bearer s3cret", http.StatusOK, ""},
		{"configured mismatch", "s3cret", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPI(t, tt.token)
			rr := do(t, h, http.MethodGet, "/api/stats", tt.auth, "")
			assert.Equal(t, tt.want, rr.Code)
			if tt.message != "" {
				var resp map[string]string
				decode(t, rr, &resp)
				assert.Equal(t, tt.message, resp["message"])
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newAPI(t, "")

	rr := do(t, h, http.MethodGet, "/api/events", bearer, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))

	rr = do(t, h, http.MethodDelete, "/api/stats", bearer, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newAPI(t, "")

	rr := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pawlog_http_requests_total")
}

func TestStatus(t *testing.T) {
	h := newAPI(t, "")
	record(t, h, "Poo", "Inside", "2024-03-01T08:00:00Z")

	rr := do(t, h, http.MethodGet, "/status", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp httpapi.StatusResponse
	decode(t, rr, &resp)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, "memory", resp.Backend)
	assert.Equal(t, map[string]int{"pee": 0, "poo": 1}, resp.Events)
	assert.Equal(t, 3, resp.WSClients)
	require.NotNil(t, resp.LastRecorded)
	assert.WithinDuration(t, time.Now(), *resp.LastRecorded, time.Minute)
}

func TestStreamMounted(t *testing.T) {
	h := newAPI(t, "")
	rr := do(t, h, http.MethodGet, "/ws", bearer, "")
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestStreamAuth(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		auth    string
		want    int
		message string
	}{
		{"no credentials", "/ws", "", http.StatusUnauthorized, "No authorization header"},
		{"wrong header token", "/ws", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"wrong query token", "/ws?token=nope", "", http.StatusUnauthorized, "Invalid token"},
		{"header token", "/ws", "Bearer s3cret", http.StatusTeapot, ""},
		{"query token", "/ws?token=s3cret", "", http.StatusTeapot, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPI(t, "s3cret")
			rr := do(t, h, http.MethodGet, tt.path, tt.auth, "")
			assert.Equal(t, tt.want, rr.Code)
			if tt.message != "" {
				var resp map[string]string
				decode(t, rr, &resp)
				assert.Equal(t, tt.message, resp["message"])
			}
		})
	}
}

func TestStreamAuth_RejectsUpgradeWithoutToken(t *testing.T) {
	hub := ws.New(func(context.Context) (*domain.Summary, error) {
		return &domain.Summary{DailyAverages: map[string]map[string]float64{}}, nil
	}, nil)
	srv := httptest.NewServer(httpapi.New(httpapi.Options{
		Service:   orchestrator.New(orchestrator.Options{Store: memory.NewEventStore()}),
		Stream:    hub,
		AuthToken: "s3cret",
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, hub.Count())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=s3cret", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.EventStats, msg.Event)
}

func TestStreamNotMounted(t *testing.T) {
	h := httpapi.New(httpapi.Options{Service: brokenService{}})
	rr := do(t, h, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInternalErrorHidesCause(t *testing.T) {
	h := httpapi.New(httpapi.Options{Service: brokenService{err: errors.New("disk on fire")}})

	rr := do(t, h, http.MethodGet, "/api/stats", bearer, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk on fire")
}

func TestRequestID(t *testing.T) {
	h := newAPI(t, "")

	rr := do(t, h, http.MethodGet, "/health", "", "")
	assert.Len(t, rr.Header().Get(httpapi.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(httpapi.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(httpapi.RequestIDHeader))
}
