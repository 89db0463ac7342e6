// Package htmx reads and writes the htmx request and response headers.
package htmx

import (
	"net/http"
	"strings"
)

// IsRequest reports whether htmx issued r, in which case handlers answer with
// a fragment instead of a full page.
func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// Trigger asks the page to fire the named client events once the response is
// swapped in. Tables listen for their refresh event.
func Trigger(w http.ResponseWriter, events ...string) {
	if len(events) == 0 {
		return
	}
	existing := w.Header().Get("HX-Trigger")
	if existing != "" {
		events = append([]string{existing}, events...)
	}
	w.Header().Set("HX-Trigger", strings.Join(events, ", "))
}
