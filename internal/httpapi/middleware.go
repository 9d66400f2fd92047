package httpapi

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"pawlog/internal/observability"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the request ID set by the middleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID propagates the caller's X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.code = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// accessLog logs every request and records HTTP metrics by route pattern.
func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(r.Method, route, rec.code, elapsed.Seconds())
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// methods rejects requests whose method is not in allowed with 405.
func methods(next http.Handler, allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(allowed, r.Method) {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth checks the bearer token.
//
// Behaviour:
//   - No Authorization header: 401 "No authorization header".
//   - Header not of the form "Bearer <token>": 401 "Invalid token".
//   - A configured token that does not match: 401 "Invalid token".
//   - With no configured token any well-formed bearer token passes.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authorize(w, r.Header.Get("Authorization")) {
			next.ServeHTTP(w, r)
		}
	})
}

// requireStreamAuth is requireAuth for websocket upgrades. Browsers cannot set
// headers on a websocket handshake, so the token may also come from the
// "token" query parameter.
func (h *Handler) requireStreamAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				header = "Bearer " + token
			}
		}
		if h.authorize(w, header) {
			next.ServeHTTP(w, r)
		}
	})
}

// authorize validates an Authorization header value and writes the 401 on failure.
func (h *Handler) authorize(w http.ResponseWriter, header string) bool {
	if header == "" {
		jsonErr(w, http.StatusUnauthorized, "No authorization header")
		return false
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		jsonErr(w, http.StatusUnauthorized, "Invalid token")
		return false
	}

	if h.authToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(h.authToken)) != 1 {
		jsonErr(w, http.StatusUnauthorized, "Invalid token")
		return false
	}
	return true
}
