package client

import (
	"sync"

	"github.com/wolfeidau/twowayssl/internal/tlsctx"
)

// Source hands out the Client used for a call.
type Source interface {
	Client() (*Client, error)
}

// Connector creates its Client on first use, taking the TLS context from a
// Provider. Every caller shares the same Client or the same error.
type Connector struct {
	provider *tlsctx.Provider
	endpoint string
	opts     []Option

	once   sync.Once
	client *Client
	err    error
}

// NewConnector creates a Connector for endpoint.
func NewConnector(provider *tlsctx.Provider, endpoint string, opts ...Option) *Connector {
	return &Connector{provider: provider, endpoint: endpoint, opts: opts}
}

// Client returns the shared Client, building the TLS context if needed.
func (c *Connector) Client() (*Client, error) {
	c.once.Do(func() {
		tc, err := c.provider.Get()
		if err != nil {
			c.err = err
			return
		}
		c.client, c.err = New(tc, c.endpoint, c.opts...)
	})
	return c.client, c.err
}
