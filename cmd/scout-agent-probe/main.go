// Command scout-agent-probe resolves configuration the way the
// library would, prints the derived socket path and platform triple,
// and reports whether an agent is currently reachable at that
// endpoint. It exists for operators debugging a deployment without
// wiring a full application.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/agentconn"
	"github.com/scoutapp/scout-apm-go/internal/platform"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

func main() {
	var (
		socketPath     = flag.String("socket", "", "explicit socket path or tcp://host:port (overrides derived default)")
		coreAgentVer   = flag.String("core-agent-version", "", "core agent version override, e.g. v1.3.0")
		coreAgentDir   = flag.String("core-agent-dir", "", "core agent cache directory override")
	)
	flag.Parse()

	logger := scoutlog.NewStdLogger(scoutlog.Warn)

	initial := map[string]any{}
	if *socketPath != "" {
		initial["socketPath"] = *socketPath
	}
	if *coreAgentVer != "" {
		initial["coreAgentVersion"] = *coreAgentVer
	}
	if *coreAgentDir != "" {
		initial["coreAgentDir"] = *coreAgentDir
	}

	resolver := config.NewResolver(initial, logger)
	rec := resolver.Snapshot()

	fmt.Printf("platform triple:      %s (valid=%v)\n", rec.CoreAgentTriple, platform.ValidTriple(rec.CoreAgentTriple))
	fmt.Printf("core agent version:   %s\n", rec.CoreAgentVersion)
	fmt.Printf("core agent full name: %s\n", rec.CoreAgentFullName)
	fmt.Printf("derived socket path:  %s\n", rec.SocketPath)

	version := config.NewAgentVersion(rec.CoreAgentVersion)
	explicit, hasExplicit := resolver.ExplicitSocketPath()
	network, address, err := agentconn.ResolveEndpoint(explicit, version, rec.SocketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve endpoint: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("explicit configured:  %v\n", hasExplicit)
	fmt.Printf("resolved endpoint:    %s %s\n", network, address)

	if agentconn.ProbeExists(network, address) {
		fmt.Println("agent reachable:      yes")
		return
	}
	fmt.Println("agent reachable:      no")
	os.Exit(1)
}
