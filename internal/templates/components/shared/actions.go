package shared

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"
)

// StatusButtons renders one button per next status. Each button PATCHes
// endpoint with vals plus the chosen status, then fires trigger so the
// surrounding table refreshes.
func StatusButtons(endpoint string, vals map[string]any, statuses []string, trigger string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, status := range statuses {
			payload := make(map[string]any, len(vals)+1)
			for k, v := range vals {
				payload[k] = v
			}
			payload["status"] = status
			encoded, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			if err := write(w,
				`<button type="button" class="btn btn-small" hx-patch="`, esc(endpoint), `"`,
				` hx-vals='`, esc(string(encoded)), `' hx-swap="none"`,
				` hx-on::after-request="htmx.trigger(document.body, '`, esc(trigger), `')">`,
				esc(status), `</button>`,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
