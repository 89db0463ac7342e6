// Package api holds the HTTP middleware shared by every route.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api/authz"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

// EmployeeHeader carries the acting employee's ID, set by the fronting
// identity proxy.
const EmployeeHeader = "X-Employee-ID"

const RequestIDHeader = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

type requestIDKey struct{}

// ChainMiddleware wraps h so that the last middleware listed runs first.
func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

// WithLogging writes one line per request. Server errors log at error level,
// client errors at warn.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger := log.Ctx(r.Context())
		event := logger.Info()
		switch {
		case rec.status >= http.StatusInternalServerError:
			event = logger.Error()
		case rec.status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Bool("htmx", r.Header.Get("HX-Request") == "true").
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}

// WithRecovery turns a handler panic into a 500 and logs the stack.
func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}
			log.Ctx(r.Context()).Error().
				Interface("panic", recovered).
				Bytes("stack", debug.Stack()).
				Str("path", r.URL.Path).
				Msg("Handler panicked")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// WithRequestID tags the request with an ID and a logger carrying it. A
// well-formed X-Request-ID from the proxy is kept; otherwise a new one is made.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		logger := log.With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithContentType defaults a missing Accept header to HTML, which is what a
// browser following an htmx link expects back.
func WithContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Accept")) == "" {
			r.Header.Set("Accept", "text/html")
		}
		next.ServeHTTP(w, r)
	})
}

type employeeQueries interface {
	GetEmployee(ctx context.Context, id int64) (dbgen.Employee, error)
	TouchEmployeeActivity(ctx context.Context, lastActiveAt time.Time, id int64) error
}

// WithEmployee resolves the X-Employee-ID header to an active employee and
// stores it in the request context. Unknown, inactive, or malformed IDs leave
// the request unauthenticated; handlers decide whether that is acceptable.
// Mutating requests refresh the employee's last_active_at.
func WithEmployee(queries employeeQueries) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(EmployeeHeader))
			if raw == "" || queries == nil {
				next.ServeHTTP(w, r)
				return
			}

			logger := log.Ctx(r.Context())
			employeeID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || employeeID <= 0 {
				logger.Warn().Str("header", raw).Msg("Ignoring malformed employee header")
				next.ServeHTTP(w, r)
				return
			}

			// Timeout only applies to the lookup
			lookupCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			employee, err := queries.GetEmployee(lookupCtx, employeeID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					logger.Warn().Int64("employee_id", employeeID).Msg("Unknown employee")
				} else {
					logger.Error().Err(err).Int64("employee_id", employeeID).Msg("Failed to load employee")
				}
				next.ServeHTTP(w, r)
				return
			}
			if employee.Status != "active" {
				logger.Warn().Int64("employee_id", employeeID).Msg("Inactive employee")
				next.ServeHTTP(w, r)
				return
			}

			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				if err := queries.TouchEmployeeActivity(lookupCtx, time.Now().UTC(), employee.ID); err != nil {
					logger.Warn().Err(err).Int64("employee_id", employee.ID).Msg("Failed to record employee activity")
				}
			}

			user := &authz.AuthUser{
				ID:   employee.ID,
				Name: strings.TrimSpace(employee.FirstName + " " + employee.LastName),
				Role: employee.Role,
			}
			ctx := authz.ContextWithUser(r.Context(), user)
			ctx = log.Ctx(ctx).With().Int64("employee_id", employee.ID).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmployeeKey returns the acting employee ID for per-employee rate limits.
func EmployeeKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(EmployeeHeader))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
