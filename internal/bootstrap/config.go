package bootstrap

import (
	"github.com/wolfeidau/twowayssl/internal/tlspolicy"
	"github.com/wolfeidau/twowayssl/internal/tlsctx"
	"github.com/wolfeidau/twowayssl/internal/truststore"
)

// Materials holds the trust material loaded for one process.
type Materials struct {
	Role   tlsctx.Role
	Policy tlspolicy.AuthPolicy

	// Credential is nil when no key store was configured.
	Credential *truststore.Credential
	// Anchors is nil when no trust store was configured.
	Anchors *truststore.TrustAnchors
}

// Build creates the TLS context for the loaded materials.
func (m *Materials) Build() (*tlsctx.Context, error) {
	if m.Role == tlsctx.RoleServer {
		return tlsctx.BuildServer(m.Policy, m.Credential, m.Anchors)
	}
	return tlsctx.BuildClient(m.Policy, m.Credential, m.Anchors)
}
