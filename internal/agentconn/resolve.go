package agentconn

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/scoutapp/scout-apm-go/config"
)

// DefaultTCPEndpoint is the default TCP endpoint for core agent
// versions >= v1.3.0.
const DefaultTCPEndpoint = "127.0.0.1:6590"

// ResolveEndpoint implements the socket selection rule: an explicit
// socketPath wins outright (a literal "tcp://host:port" selects TCP,
// anything else is a Unix path); absent that, the agent version gates
// the default (< v1.3.0 -> Unix at the derived path, >= v1.3.0 -> TCP
// at 127.0.0.1:6590).
func ResolveEndpoint(configuredSocketPath string, version config.AgentVersion, derivedSocketPath string) (network, address string, err error) {
	if configuredSocketPath != "" {
		return parseSocketPath(configuredSocketPath)
	}
	if version.IsUnixDefault() {
		return "unix", derivedSocketPath, nil
	}
	return "tcp", DefaultTCPEndpoint, nil
}

func parseSocketPath(socketPath string) (network, address string, err error) {
	if strings.HasPrefix(socketPath, "tcp://") {
		return "tcp", strings.TrimPrefix(socketPath, "tcp://"), nil
	}
	if strings.Contains(socketPath, "://") {
		return "", "", fmt.Errorf("agentconn: %q: %w", socketPath, errUnknownSocketType)
	}
	return "unix", socketPath, nil
}

// ProbeExists reports whether an agent already appears to be listening
// at network/address: for Unix, the path must exist and be a socket;
// for TCP, a short dial must succeed.
func ProbeExists(network, address string) bool {
	switch network {
	case "unix":
		info, err := os.Stat(address)
		if err != nil {
			return false
		}
		return info.Mode()&os.ModeSocket != 0
	case "tcp":
		conn, err := net.DialTimeout("tcp", address, 200*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	default:
		return false
	}
}
