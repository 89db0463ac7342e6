// Package docs serves the Git workflow guide.
package docs

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	"github.com/codr1/StaycationHaven/internal/docs"
	docstempl "github.com/codr1/StaycationHaven/internal/templates/components/docs"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

// HandleDocsIndex handles GET /docs.
func HandleDocsIndex(w http.ResponseWriter, r *http.Request) {
	component := docstempl.Index(docs.All())
	if !htmx.IsRequest(r) {
		component = layouts.Base("Git workflow", "docs", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render docs index", "Failed to render page")
}

// HandleDocPage handles GET /docs/{slug}.
func HandleDocPage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	nav, ok := docs.Lookup(slug)
	if !ok {
		log.Ctx(r.Context()).Debug().Str("slug", slug).Msg("Unknown docs page")
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}

	component := docstempl.Page(nav)
	if !htmx.IsRequest(r) {
		component = layouts.Base(nav.Title, "docs", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render docs page", "Failed to render page")
}
