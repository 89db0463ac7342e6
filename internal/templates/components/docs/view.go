package docs

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/codr1/StaycationHaven/internal/docs"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
)

func pageHref(slug string) string {
	return "/docs/" + slug
}

// Index lists every page in reading order.
func Index(pages []docs.Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w, `<article class="docs"><h1>Git workflow</h1><ol class="docs-index">`); err != nil {
			return err
		}
		for _, p := range pages {
			if err := shared.Write(w,
				`<li><a href="`, pageHref(p.Slug), `" hx-get="`, pageHref(p.Slug), `" hx-target="main" hx-push-url="true">`,
				shared.Escape(p.Title), `</a><p>`, shared.Escape(p.Summary), `</p></li>`,
			); err != nil {
				return err
			}
		}
		return shared.Write(w, `</ol></article>`)
	})
}

func navLink(w io.Writer, class, label string, p *docs.Page) error {
	if p == nil {
		return shared.Write(w, `<span class="`, class, `"></span>`)
	}
	return shared.Write(w,
		`<a class="`, class, `" href="`, pageHref(p.Slug), `" hx-get="`, pageHref(p.Slug), `" hx-target="main" hx-push-url="true">`,
		label, ` `, shared.Escape(p.Title), `</a>`,
	)
}

func Page(nav docs.Nav) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w,
			`<article class="docs" id="doc-`, shared.Escape(nav.Slug), `"><h1>`, shared.Escape(nav.Title), `</h1>`,
			`<p class="lead">`, shared.Escape(nav.Summary), `</p>`,
		); err != nil {
			return err
		}
		for _, s := range nav.Sections {
			if err := shared.Write(w, `<section><h2>`, shared.Escape(s.Heading), `</h2>`); err != nil {
				return err
			}
			for _, para := range s.Paragraphs {
				if err := shared.Write(w, `<p>`, shared.Escape(para), `</p>`); err != nil {
					return err
				}
			}
			if len(s.Commands) > 0 {
				if err := shared.Write(w, `<pre class="shell"><code>`); err != nil {
					return err
				}
				for _, cmd := range s.Commands {
					if err := shared.Write(w, `$ `, shared.Escape(cmd), "\n"); err != nil {
						return err
					}
				}
				if err := shared.Write(w, `</code></pre>`); err != nil {
					return err
				}
			}
			if err := shared.Write(w, `</section>`); err != nil {
				return err
			}
		}
		if err := shared.Write(w, `<nav class="docs-pager">`); err != nil {
			return err
		}
		if err := navLink(w, "prev", "&larr;", nav.Prev); err != nil {
			return err
		}
		if err := shared.Write(w, `<a href="/docs">All pages</a>`); err != nil {
			return err
		}
		if err := navLink(w, "next", "&rarr;", nav.Next); err != nil {
			return err
		}
		return shared.Write(w, `</nav></article>`)
	})
}
