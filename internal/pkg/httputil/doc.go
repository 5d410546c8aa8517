// Package httputil holds the JSON response and request helpers shared by
// all handlers. Handlers go through these instead of writing to the
// http.ResponseWriter directly so every endpoint produces the same
// envelope shapes and error logging.
package httputil
