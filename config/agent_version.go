package config

import (
	"strings"

	"golang.org/x/mod/semver"
)

// AgentVersion wraps the raw "vX.Y.Z"-form core agent version string
// and exposes comparison operations built on golang.org/x/mod/semver,
// which — like this field — expects a leading "v".
type AgentVersion struct {
	Raw string
}

// NewAgentVersion normalizes s to carry a leading "v" before wrapping it.
func NewAgentVersion(s string) AgentVersion {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return AgentVersion{Raw: s}
}

// Less reports whether v is strictly less than other.
func (v AgentVersion) Less(other AgentVersion) bool {
	return semver.Compare(v.Raw, other.Raw) < 0
}

// Compare returns -1, 0, or +1 as v is less than, equal to, or greater
// than other, per semver.Compare's contract.
func (v AgentVersion) Compare(other AgentVersion) int {
	return semver.Compare(v.Raw, other.Raw)
}

func (v AgentVersion) String() string { return v.Raw }

// v130 is the version gate used by socket selection: below it, Unix
// is the default transport; at or above it, TCP is.
var v130 = NewAgentVersion("v1.3.0")

// IsUnixDefault reports whether v's default transport (absent an
// explicit socketPath) is Unix rather than TCP.
func (v AgentVersion) IsUnixDefault() bool {
	return v.Compare(v130) < 0
}
