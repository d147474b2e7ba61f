package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
)

// Header names.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderCaller    = "X-Caller"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	callerKey
)

// RequestIDFromContext returns the id assigned by the request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// CallerFromContext returns the identity parsed from X-Caller.
func CallerFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(callerKey).(domain.Identity)
	return id, ok
}

// requestID keeps an incoming X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// instrument records latency by route pattern and logs each request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		observability.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), duration.Seconds())

		s.logger.Debug("http request",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
		)
	})
}

// requireCaller parses X-Caller. In strict mode the identity must be a
// valid curve point.
func (s *Server) requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderCaller)
		if raw == "" {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidInput, "missing "+HeaderCaller+" header"))
			return
		}
		caller, err := domain.ParseIdentity(raw)
		if err != nil {
			s.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidInput, "malformed caller identity", err))
			return
		}
		if caller.IsZero() {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidInput, "caller must not be the zero identity"))
			return
		}
		if s.strictIdentities && !caller.IsOnCurve() {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidInput, "caller is not a valid public key"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
