// Package tlserr defines the error kinds raised while loading trust material,
// building TLS contexts and calling over TLS.
//
// Construction-time kinds (IOError, FormatError, IntegrityError, ConfigError)
// abort startup. Connection-time kinds (TlsHandshakeError, HttpError) are
// isolated to a single call and returned to the caller.
package tlserr

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind categorises an error.
type Kind string

const (
	KindIO        Kind = "IOError"
	KindFormat    Kind = "FormatError"
	KindIntegrity Kind = "IntegrityError"
	KindConfig    Kind = "ConfigError"
	KindHandshake Kind = "TlsHandshakeError"
	KindHTTP      Kind = "HttpError"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrIO        = &Error{Kind: KindIO}
	ErrFormat    = &Error{Kind: KindFormat}
	ErrIntegrity = &Error{Kind: KindIntegrity}
	ErrConfig    = &Error{Kind: KindConfig}
	ErrHandshake = &Error{Kind: KindHandshake}
	ErrHTTP      = &Error{Kind: KindHTTP}
)

// Error carries a kind, the failed operation and the store or endpoint involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// New creates an error of the given kind wrapping cause.
func New(kind Kind, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// Errorf creates an error of the given kind with a formatted cause.
func Errorf(kind Kind, op, path, format string, args ...any) *Error {
	return New(kind, op, path, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Path == "" && t.Err == nil
}

// KindOf returns the kind of the first *Error or *HTTPError in err's chain.
func KindOf(err error) Kind {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return KindHTTP
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MaxHTTPErrorBody bounds how much of a failed response body is retained.
const MaxHTTPErrorBody = 1 << 20

// HTTPError is returned when the handshake succeeded but the upstream answered
// with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: GET %s: upstream returned %d %s", KindHTTP, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches ErrHTTP.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// handshakeTimeout is the text of the unexported error http.Transport returns
// when TLSHandshakeTimeout expires.
const handshakeTimeout = "net/http: TLS handshake timeout"

// IsHandshakeFailure reports whether err was caused by TLS negotiation or peer
// certificate verification rather than by the application protocol. A peer
// that stalls the handshake past the transport's timeout counts as a failed
// handshake.
func IsHandshakeFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrHandshake) {
		return true
	}
	if strings.Contains(err.Error(), handshakeTimeout) {
		return true
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		certInvalid      x509.CertificateInvalidError
		hostname         x509.HostnameError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
		alert            tls.AlertError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &certInvalid),
		errors.As(err, &hostname),
		errors.As(err, &verification),
		errors.As(err, &recordHeader),
		errors.As(err, &alert):
		return true
	}

	// alerts sent by the peer arrive as an unexported type inside a net.OpError
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "remote error" {
		return true
	}

	return strings.Contains(err.Error(), "tls: ")
}

// IsDialFailure reports whether err happened while establishing the TCP
// connection, before any TLS bytes were exchanged.
func IsDialFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
