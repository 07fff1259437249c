package client

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/twowayssl/internal/tlserr"
)

// RelayPath is the route exposed by the client process.
const RelayPath = "/callApi"

// RelayHandler calls the upstream endpoint for every request and writes its
// status, content type and body back unchanged. A failed handshake becomes a
// 502 carrying the diagnostic.
func RelayHandler(source Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())

		client, err := source.Client()
		if err != nil {
			log.Error().Err(err).Msg("client unavailable")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp, err := client.Get(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		defer resp.Body.Close()

		copyContentType(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Warn().Err(err).Msg("failed to relay upstream body")
		}
	})
}

func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var httpErr *tlserr.HTTPError
	if errors.As(err, &httpErr) {
		log.Warn().Err(err).Int("status", httpErr.StatusCode).Msg("upstream returned an error")
		copyContentType(w.Header(), httpErr.Header)
		w.WriteHeader(httpErr.StatusCode)
		_, _ = w.Write(httpErr.Body)
		return
	}

	if errors.Is(err, tlserr.ErrHandshake) {
		log.Warn().Err(err).Str("event", "handshake_failure").Msg("upstream handshake failed")
	} else {
		log.Error().Err(err).Msg("upstream call failed")
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func copyContentType(dst, src http.Header) {
	if ct := src.Get("Content-Type"); ct != "" {
		dst.Set("Content-Type", ct)
	}
}
