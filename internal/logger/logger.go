package logger

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Requests logs every request served by next and attaches the logger to the
// request context, so handlers can use zerolog.Ctx.
func Requests(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		reqLogger := logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("addr", r.RemoteAddr).
			Str("protocol", r.Proto).
			Logger()
		if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
			reqLogger = reqLogger.With().Str("peer", r.TLS.PeerCertificates[0].Subject.CommonName).Logger()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(reqLogger.WithContext(r.Context())))

		event := reqLogger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = reqLogger.Error()
		}
		event.
			Int("status", rec.status).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// ErrorLog returns a standard library logger that forwards each line to
// zerolog at warn level. Every hook is called with the line first and may
// return true to claim it, in which case it is not logged here.
func ErrorLog(logger zerolog.Logger, hooks ...func(line string) bool) *log.Logger {
	return log.New(&errorLogWriter{logger: logger, hooks: hooks}, "", 0)
}

type errorLogWriter struct {
	logger zerolog.Logger
	hooks  []func(line string) bool
}

func (w *errorLogWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	for _, hook := range w.hooks {
		if hook(line) {
			return len(p), nil
		}
	}
	w.logger.Warn().Str("source", "net/http").Msg(line)
	return len(p), nil
}
