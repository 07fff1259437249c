package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/telemetry"
)

const (
	// HelloPath is the only application route.
	HelloPath = "/hello"
	// Greeting is the exact body served on HelloPath.
	Greeting = "Hello, World"

	contentTypeJSON = "application/json"
)

// Handler returns the routes served by the server.
func Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HelloPath, hello)

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

func hello(w http.ResponseWriter, r *http.Request) {
	// a route that cannot produce the requested media type does not match
	if !acceptsJSON(r.Header.Values("Accept")) {
		http.NotFound(w, r)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("service was called")
	telemetry.GetMetrics().HelloServedTotal.Add(r.Context(), 1)

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Greeting))
}

// acceptsJSON reports whether the Accept header values admit
// application/json. No header admits everything.
func acceptsJSON(values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			mediaType, params, err := mime.ParseMediaType(part)
			if err != nil {
				continue
			}
			if q, ok := params["q"]; ok {
				if weight, err := strconv.ParseFloat(q, 64); err == nil && weight == 0 {
					continue
				}
			}
			switch mediaType {
			case "*/*", "application/*", contentTypeJSON:
				return true
			}
		}
	}
	return false
}
