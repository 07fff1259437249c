// Package client calls the greeting endpoint using a TLS context.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/twowayssl/internal/telemetry"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
)

const (
	// DefaultEndpoint is the greeting endpoint of a locally running server.
	DefaultEndpoint = "https://localhost:8443/hello"

	defaultTimeout = 30 * time.Second
)

// Response is a successful upstream response. The caller must close Body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Client calls one endpoint. It is safe for concurrent use.
type Client struct {
	endpoint string
	tc       *tlsctx.Context
	http     *http.Client
	timeout  time.Duration
	maxTries uint
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a single call including retries.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxTries sets how many times a call is attempted when the server cannot
// be dialed. Handshake and HTTP failures are never retried.
func WithMaxTries(tries uint) Option {
	return func(c *Client) {
		c.maxTries = max(tries, 1)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for endpoint. The endpoint scheme must match the
// context: https when TLS is enabled, http otherwise.
func New(tc *tlsctx.Context, endpoint string, opts ...Option) (*Client, error) {
	const op = "create client"

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, tlserr.New(tlserr.KindConfig, op, endpoint, err)
	}
	if u.Scheme != tc.Scheme() {
		return nil, tlserr.Errorf(tlserr.KindConfig, op, endpoint,
			"endpoint scheme %q does not match %s policy, expected %q", u.Scheme, tc.Policy(), tc.Scheme())
	}

	c := &Client{
		endpoint: endpoint,
		tc:       tc,
		timeout:  defaultTimeout,
		maxTries: 1,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     tc.TLSConfig(),
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	c.http = &http.Client{Transport: otelhttp.NewTransport(transport)}

	return c, nil
}

// Client returns c, so a Client can be used wherever a Source is expected.
func (c *Client) Client() (*Client, error) {
	return c, nil
}

// Endpoint returns the URL called by Get.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Get performs one GET request against the endpoint.
//
// A failed handshake returns a tlserr.Error of kind TlsHandshakeError. A
// response outside 2xx returns a *tlserr.HTTPError carrying the status and
// body. Both are final.
func (c *Client) Get(ctx context.Context) (*Response, error) {
	const op = "call endpoint"

	metrics := telemetry.GetMetrics()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		return c.do(ctx, op)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.DialRetriesTotal.Add(ctx, 1)
			c.logger.Debug().Err(err).Dur("next", next).Str("endpoint", c.endpoint).Msg("server not reachable, retrying")
		}),
	)

	duration := float64(time.Since(started).Milliseconds())
	metrics.UpstreamCallsTotal.Add(ctx, 1)
	metrics.UpstreamCallDuration.Record(ctx, duration)

	if err != nil {
		cancel()
		if tlserr.KindOf(err) == "" {
			err = tlserr.New(tlserr.KindIO, op, c.endpoint, err)
		}
		metrics.UpstreamErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(tlserr.KindOf(err)))))
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Int("status", resp.StatusCode).
		Float64("duration_ms", duration).
		Msg("upstream call")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &cancelBody{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (c *Client) do(ctx context.Context, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(tlserr.New(tlserr.KindConfig, op, c.endpoint, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, backoff.Permanent(tlserr.New(tlserr.KindIO, op, c.endpoint, err))
		case tlserr.IsDialFailure(err):
			return nil, err
		case c.tc.Enabled() && tlserr.IsHandshakeFailure(err):
			return nil, backoff.Permanent(tlserr.New(tlserr.KindHandshake, op, c.endpoint, err))
		default:
			return nil, backoff.Permanent(tlserr.New(tlserr.KindIO, op, c.endpoint, err))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, tlserr.MaxHTTPErrorBody))
		if readErr != nil {
			return nil, backoff.Permanent(tlserr.New(tlserr.KindIO, op, c.endpoint, fmt.Errorf("read error body: %w", readErr)))
		}
		return nil, backoff.Permanent(&tlserr.HTTPError{
			URL:        c.endpoint,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		})
	}

	return resp, nil
}

// cancelBody releases the call context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
