package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/twowayssl/internal/pki"
	"github.com/wolfeidau/twowayssl/internal/server"
	"github.com/wolfeidau/twowayssl/internal/tlserr"
	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

func credential(id *pki.Identity) *truststore.Credential {
	return &truststore.Credential{PrivateKey: id.Key, Chain: id.Chain}
}

func anchors(b *pki.Bundle) *truststore.TrustAnchors {
	return &truststore.TrustAnchors{Certificates: b.CACertificates()}
}

// startServer runs a TLS server and returns its base address.
func startServer(t *testing.T, bundle *pki.Bundle, policy tlspolicy.AuthPolicy) string {
	t.Helper()

	tc, err := tlsctx.BuildServer(policy, credential(bundle.Server), anchors(bundle))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := server.New("", tc)
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ln)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, s.Shutdown(ctx))
		require.NoError(t, <-done)
	})

	return "https://" + ln.Addr().String()
}

func readBody(t *testing.T, resp *Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestClient_Get(t *testing.T) {
	bundle, err := pki.NewBundle("client")
	require.NoError(t, err)
	other, err := pki.NewBundle("other")
	require.NoError(t, err)

	oneWay := startServer(t, bundle, tlspolicy.OneWay)
	twoWay := startServer(t, bundle, tlspolicy.TwoWay)

	tests := []struct {
		name     string
		policy   tlspolicy.AuthPolicy
		cred     *truststore.Credential
		anchors  *truststore.TrustAnchors
		endpoint string
		wantErr  error
		wantCode int
	}{
		{
			name:     "one-way",
			policy:   tlspolicy.OneWay,
			anchors:  anchors(bundle),
			endpoint: oneWay + server.HelloPath,
		},
		{
			name:     "two-way",
			policy:   tlspolicy.TwoWay,
			cred:     credential(bundle.Client),
			anchors:  anchors(bundle),
			endpoint: twoWay + server.HelloPath,
		},
		{
			name:     "one-way client against two-way server",
			policy:   tlspolicy.OneWay,
			anchors:  anchors(bundle),
			endpoint: twoWay + server.HelloPath,
			wantErr:  tlserr.ErrHandshake,
		},
		{
			name:     "server signed by untrusted CA",
			policy:   tlspolicy.OneWay,
			anchors:  anchors(other),
			endpoint: oneWay + server.HelloPath,
			wantErr:  tlserr.ErrHandshake,
		},
		{
			name:     "client certificate from foreign CA",
			policy:   tlspolicy.TwoWay,
			cred:     credential(other.Client),
			anchors:  anchors(bundle),
			endpoint: twoWay + server.HelloPath,
			wantErr:  tlserr.ErrHandshake,
		},
		{
			name:     "unknown route after successful handshake",
			policy:   tlspolicy.TwoWay,
			cred:     credential(bundle.Client),
			anchors:  anchors(bundle),
			endpoint: twoWay + "/goodbye",
			wantErr:  tlserr.ErrHTTP,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := tlsctx.BuildClient(tt.policy, tt.cred, tt.anchors)
			require.NoError(t, err)

			c, err := New(tc, tt.endpoint)
			require.NoError(t, err)

			resp, err := c.Get(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, resp)

				// the two connection-time kinds are never conflated
				if tt.wantErr == tlserr.ErrHTTP {
					require.NotErrorIs(t, err, tlserr.ErrHandshake)
					var httpErr *tlserr.HTTPError
					require.ErrorAs(t, err, &httpErr)
					require.Equal(t, tt.wantCode, httpErr.StatusCode)
				} else {
					require.NotErrorIs(t, err, tlserr.ErrHTTP)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			require.Equal(t, server.Greeting, readBody(t, resp))
		})
	}
}

func TestClient_Concurrent(t *testing.T) {
	bundle, err := pki.NewBundle("client")
	require.NoError(t, err)
	base := startServer(t, bundle, tlspolicy.TwoWay)

	tc, err := tlsctx.BuildClient(tlspolicy.TwoWay, credential(bundle.Client), anchors(bundle))
	require.NoError(t, err)
	c, err := New(tc, base+server.HelloPath)
	require.NoError(t, err)

	const callers = 8
	bodies := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			bodies[i], errs[i] = string(body), err
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, server.Greeting, bodies[i])
	}
}

func TestClient_HTTPErrorBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
	}))
	defer upstream.Close()

	tc, err := tlsctx.BuildClient(tlspolicy.Disabled, nil, nil)
	require.NoError(t, err)
	c, err := New(tc, upstream.URL)
	require.NoError(t, err)

	_, err = c.Get(context.Background())
	var httpErr *tlserr.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	require.Equal(t, "try later", string(httpErr.Body))
	require.Equal(t, "text/plain", httpErr.Header.Get("Content-Type"))
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tc, err := tlsctx.BuildClient(tlspolicy.Disabled, nil, nil)
	require.NoError(t, err)

	c, err := New(tc, fmt.Sprintf("http://%s/hello", addr), WithMaxTries(2), WithTimeout(10*time.Second))
	require.NoError(t, err)

	_, err = c.Get(context.Background())
	require.ErrorIs(t, err, tlserr.ErrIO)
	require.True(t, tlserr.IsDialFailure(err))
}

func TestNew_SchemeMismatch(t *testing.T) {
	bundle, err := pki.NewBundle("client")
	require.NoError(t, err)

	enabled, err := tlsctx.BuildClient(tlspolicy.OneWay, nil, anchors(bundle))
	require.NoError(t, err)
	disabled, err := tlsctx.BuildClient(tlspolicy.Disabled, nil, nil)
	require.NoError(t, err)

	_, err = New(enabled, "http://localhost:8443/hello")
	require.ErrorIs(t, err, tlserr.ErrConfig)

	_, err = New(disabled, DefaultEndpoint)
	require.ErrorIs(t, err, tlserr.ErrConfig)

	_, err = New(enabled, DefaultEndpoint)
	require.NoError(t, err)
}

func TestConnector(t *testing.T) {
	bundle, err := pki.NewBundle("client")
	require.NoError(t, err)

	builds := 0
	provider := tlsctx.NewProvider(func() (*tlsctx.Context, error) {
		builds++
		return tlsctx.BuildClient(tlspolicy.OneWay, nil, anchors(bundle))
	})
	connector := NewConnector(provider, DefaultEndpoint)

	first, err := connector.Client()
	require.NoError(t, err)
	second, err := connector.Client()
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, builds)
	require.Equal(t, DefaultEndpoint, first.Endpoint())

	failing := NewConnector(tlsctx.NewProvider(func() (*tlsctx.Context, error) {
		return tlsctx.BuildClient(tlspolicy.TwoWay, nil, nil)
	}), DefaultEndpoint)
	_, err = failing.Client()
	require.ErrorIs(t, err, tlserr.ErrConfig)
}

func TestRelayHandler(t *testing.T) {
	bundle, err := pki.NewBundle("relay")
	require.NoError(t, err)
	base := startServer(t, bundle, tlspolicy.TwoWay)

	twoWay, err := tlsctx.BuildClient(tlspolicy.TwoWay, credential(bundle.Client), anchors(bundle))
	require.NoError(t, err)
	oneWay, err := tlsctx.BuildClient(tlspolicy.OneWay, nil, anchors(bundle))
	require.NoError(t, err)

	tests := []struct {
		name       string
		tc         *tlsctx.Context
		endpoint   string
		wantStatus int
		wantBody   string
	}{
		{name: "relays greeting", tc: twoWay, endpoint: base + server.HelloPath, wantStatus: http.StatusOK, wantBody: server.Greeting},
		{name: "relays upstream status", tc: twoWay, endpoint: base + "/goodbye", wantStatus: http.StatusNotFound, wantBody: "404 page not found\n"},
		{name: "handshake failure is a bad gateway", tc: oneWay, endpoint: base + server.HelloPath, wantStatus: http.StatusBadGateway, wantBody: string(tlserr.KindHandshake)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.tc, tt.endpoint)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			RelayHandler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RelayPath, nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusBadGateway {
				require.True(t, strings.HasPrefix(rec.Body.String(), tt.wantBody), rec.Body.String())
				return
			}
			require.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
