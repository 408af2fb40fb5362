package httpserver

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/strongdm/supportdesk/internal/telemetry/otel"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-Id"

const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromContext returns the identifier assigned by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware so the first argument is the outermost layer.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder captures the status code and byte count written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// WithRequestID honours a well-formed incoming X-Request-Id or assigns a new
// UUID, echoes it on the response and stores it in the request context.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > maxRequestIDLen || strings.ContainsAny(id, "\r\n") {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAccessLog emits one http.request event per request.
func WithAccessLog(logger log.FieldLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			logger.WithFields(log.Fields{
				"event":       "http.request",
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.code(),
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  RequestIDFromContext(r.Context()),
				"remote":      r.RemoteAddr,
			}).Info("request served")
		})
	}
}

// WithRecover turns handler panics into 500 responses.
func WithRecover(logger log.FieldLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.WithFields(log.Fields{
						"event":      "http.panic",
						"path":       r.URL.Path,
						"panic":      v,
						"request_id": RequestIDFromContext(r.Context()),
						"stack":      string(debug.Stack()),
					}).Error("handler panicked")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WithInstruments records request metrics and spans. route maps a request to
// a low-cardinality route label. A panicking handler is recorded as a 500
// and the panic is re-raised for WithRecover.
func WithInstruments(inst *otel.HTTPInstruments, route func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		if inst == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, ctx := inst.Start(r, route(r))
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				if v := recover(); v != nil {
					inst.Finish(h, http.StatusInternalServerError)
					panic(v)
				}
			}()
			next.ServeHTTP(rec, r.WithContext(ctx))
			inst.Finish(h, rec.code())
		})
	}
}
