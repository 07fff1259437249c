// Package tlspolicy selects how a process authenticates over TLS.
package tlspolicy

import (
	"fmt"
	"strings"
)

// AuthPolicy is the TLS authentication mode of a process.
type AuthPolicy int

const (
	// Disabled builds no TLS context; traffic is plain HTTP.
	Disabled AuthPolicy = iota
	// OneWay authenticates the server to the client only.
	OneWay
	// TwoWay additionally authenticates the client to the server.
	TwoWay
)

// Select maps the two configuration flags onto a policy. Two-way wins
// whenever it is enabled, so enabling both is the same as enabling two-way
// alone.
func Select(oneWayEnabled, twoWayEnabled bool) AuthPolicy {
	switch {
	case twoWayEnabled:
		return TwoWay
	case oneWayEnabled:
		return OneWay
	default:
		return Disabled
	}
}

func (p AuthPolicy) String() string {
	switch p {
	case Disabled:
		return "disabled"
	case OneWay:
		return "one-way"
	case TwoWay:
		return "two-way"
	default:
		return fmt.Sprintf("AuthPolicy(%d)", int(p))
	}
}

// ParseAuthPolicy is the inverse of String.
func ParseAuthPolicy(value string) (AuthPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "disabled", "none", "":
		return Disabled, nil
	case "one-way":
		return OneWay, nil
	case "two-way", "mutual":
		return TwoWay, nil
	default:
		return Disabled, fmt.Errorf("unknown auth policy %q", value)
	}
}

// Enabled reports whether the policy needs a TLS context.
func (p AuthPolicy) Enabled() bool {
	return p == OneWay || p == TwoWay
}

// Mutual reports whether the client must present a certificate.
func (p AuthPolicy) Mutual() bool {
	return p == TwoWay
}
