// Package tlsctx builds immutable TLS contexts from an authentication policy
// and already loaded trust material. It never reads from the filesystem.
package tlsctx

import (
	"crypto/tls"

	"github.com/wolfeidau/twowayssl/internal/tlserr"
	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

// Role is the side of the handshake a context is built for.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Context is a TLS configuration built once and shared read-only by every
// handshake. A Context for the Disabled policy carries no TLS material.
type Context struct {
	role   Role
	policy tlspolicy.AuthPolicy
	config *tls.Config
}

// Enabled reports whether the context carries TLS material.
func (c *Context) Enabled() bool {
	return c != nil && c.config != nil
}

// TLSConfig returns a copy of the TLS configuration, or nil when disabled.
func (c *Context) TLSConfig() *tls.Config {
	if !c.Enabled() {
		return nil
	}
	return c.config.Clone()
}

// Policy returns the policy the context was built for.
func (c *Context) Policy() tlspolicy.AuthPolicy {
	if c == nil {
		return tlspolicy.Disabled
	}
	return c.policy
}

// Role returns the handshake side.
func (c *Context) Role() Role {
	return c.role
}

// Scheme is the URL scheme matching the context.
func (c *Context) Scheme() string {
	if c.Enabled() {
		return "https"
	}
	return "http"
}

// BuildClient builds the context used to dial a server.
//
// OneWay requires trust anchors to verify the server. TwoWay also requires a
// credential to present to the server. A credential supplied under OneWay is
// still offered if the server asks for one.
func BuildClient(policy tlspolicy.AuthPolicy, cred *truststore.Credential, anchors *truststore.TrustAnchors) (*Context, error) {
	const op = "build client TLS context"

	if !policy.Enabled() {
		return &Context{role: RoleClient, policy: tlspolicy.Disabled}, nil
	}
	if err := Require(RoleClient, policy, cred != nil, anchors.Len() > 0); err != nil {
		return nil, err
	}

	cfg := baseConfig()
	cfg.RootCAs = anchors.Pool()
	if cred != nil {
		cert, err := identity(cred, op)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return &Context{role: RoleClient, policy: policy, config: cfg}, nil
}

// BuildServer builds the context used to terminate inbound connections.
//
// Both OneWay and TwoWay require the server credential. TwoWay requires trust
// anchors and rejects clients that do not present a certificate they verify.
// Under OneWay, anchors are optional and only check certificates a client
// volunteers.
func BuildServer(policy tlspolicy.AuthPolicy, cred *truststore.Credential, anchors *truststore.TrustAnchors) (*Context, error) {
	const op = "build server TLS context"

	if !policy.Enabled() {
		return &Context{role: RoleServer, policy: tlspolicy.Disabled}, nil
	}
	if err := Require(RoleServer, policy, cred != nil, anchors.Len() > 0); err != nil {
		return nil, err
	}

	cert, err := identity(cred, op)
	if err != nil {
		return nil, err
	}

	cfg := baseConfig()
	cfg.Certificates = []tls.Certificate{cert}
	switch {
	case policy.Mutual():
		cfg.ClientCAs = anchors.Pool()
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	case anchors.Len() > 0:
		cfg.ClientCAs = anchors.Pool()
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	default:
		cfg.ClientAuth = tls.NoClientCert
	}

	return &Context{role: RoleServer, policy: policy, config: cfg}, nil
}

// Require applies the material rules of BuildClient and BuildServer to what is
// available, so incomplete configuration is rejected before anything is read
// or built. It returns a ConfigError naming the missing store.
func Require(role Role, policy tlspolicy.AuthPolicy, hasCredential, hasAnchors bool) error {
	if !policy.Enabled() {
		return nil
	}

	op := "build " + role.String() + " TLS context"
	needCredential := role == RoleServer || policy.Mutual()
	needAnchors := role == RoleClient || policy.Mutual()

	if needCredential && !hasCredential {
		return tlserr.Errorf(tlserr.KindConfig, op, "", "%s authentication requires a key store", policy)
	}
	if needAnchors && !hasAnchors {
		return tlserr.Errorf(tlserr.KindConfig, op, "", "%s authentication requires a trust store", policy)
	}
	return nil
}

// baseConfig pins the protocol to TLS 1.3; cipher suites are then fixed by
// crypto/tls.
func baseConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,
	}
}

func identity(cred *truststore.Credential, op string) (tls.Certificate, error) {
	if err := cred.Validate(); err != nil {
		return tls.Certificate{}, tlserr.New(tlserr.KindConfig, op, cred.Source, err)
	}
	return cred.Certificate(), nil
}
