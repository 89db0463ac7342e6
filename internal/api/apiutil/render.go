package apiutil

import (
	"bytes"
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

// RenderHTMLComponent renders component to memory and only then writes it
// with the given extra headers. A render failure is logged with logMessage
// and answered with a 500 carrying errorMessage; the result is false then.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMessage, errorMessage string) bool {
	logger := log.Ctx(ctx)

	var page bytes.Buffer
	if err := component.Render(ctx, &page); err != nil {
		logger.Error().Err(err).Msg(logMessage)
		http.Error(w, errorMessage, http.StatusInternalServerError)
		return false
	}

	h := w.Header()
	for key, value := range headers {
		h.Set(key, value)
	}
	h.Set("Content-Type", "text/html; charset=utf-8")
	if _, err := page.WriteTo(w); err != nil {
		logger.Warn().Err(err).Msg("Client went away while writing page")
	}
	return true
}
