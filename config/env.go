package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// envSource reads from the process environment, applying a per-key
// parser for each known property. Env var names are derived from
// property names by converting camelCase to UPPER_SNAKE and prefixing
// SCOUT_.
type envSource struct{}

func (envSource) Name() string { return "Env" }

func (envSource) Get(prop string) (any, bool) {
	name := envVarName(prop)
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil, false
	}
	switch prop {
	case "logLevel", "coreAgentLogLevel":
		return scoutlog.ParseLevel(raw), true
	case "coreAgentDownload", "coreAgentLaunch", "monitor":
		return strings.EqualFold(raw, "true"), true
	case "coreAgentPermissions":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false
		}
		return n, true
	case "disabledInstruments", "ignore":
		return strings.Split(raw, ","), true
	default:
		return raw, true
	}
}

// envVarName converts a camelCase property name to its SCOUT_-prefixed
// UPPER_SNAKE environment variable name, e.g. "coreAgentVersion" ->
// "SCOUT_CORE_AGENT_VERSION".
func envVarName(prop string) string {
	var b strings.Builder
	b.WriteString("SCOUT_")
	runes := []rune(prop)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				prev := runes[i-1]
				if prev != '_' && (prev < 'A' || prev > 'Z') {
					b.WriteByte('_')
				}
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
