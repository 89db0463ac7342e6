package apiutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api/authz"
)

// FieldError rejects a single request field. It is always a 400.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// HandlerError carries the status and client-facing message for a failure.
// Err is logged but never shown to the client.
type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string { return e.Message }

func (e HandlerError) Unwrap() error { return e.Err }

// WriteHandlerError logs err and writes a plain-text response for it.
// Errors that are neither HandlerError nor FieldError become a 500 with
// fallback as the message.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := log.Ctx(r.Context())

	var (
		herr HandlerError
		ferr FieldError
	)
	switch {
	case errors.As(err, &herr):
		event := logger.Debug()
		if herr.Status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(herr.Err).Int("status", herr.Status).Msg(herr.Message)
		http.Error(w, herr.Message, herr.Status)
	case errors.As(err, &ferr):
		logger.Debug().Str("field", ferr.Field).Msg(ferr.Reason)
		http.Error(w, ferr.Error(), http.StatusBadRequest)
	default:
		logger.Error().Err(err).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

// RequireRole reports whether the acting employee may continue. On false a
// 401 or 403 has already been written. With no roles any active employee
// passes.
func RequireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	ctx := r.Context()
	err := authz.RequireEmployee(ctx)
	if err == nil && len(roles) > 0 {
		err = authz.RequireRole(ctx, roles...)
	}
	if err == nil {
		return true
	}

	event := log.Ctx(ctx).Warn().Str("path", r.URL.Path).Strs("roles", roles)
	if user := authz.UserFromContext(ctx); user != nil {
		event = event.Int64("employee_id", user.ID).Str("role", user.Role)
	}

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		event.Msg("Access denied: no employee")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrForbidden):
		event.Msg("Access denied: role")
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		log.Ctx(ctx).Error().Err(err).Msg("Authorization check failed")
		http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
	}
	return false
}
