package config

import (
	"os"

	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// defaultSource is the static fallback table used when no other source
// defines a property.
type defaultSource struct{}

func (defaultSource) Name() string { return "Default" }

func (defaultSource) Get(prop string) (any, bool) {
	switch prop {
	case "coreAgentDownload":
		return true, true
	case "coreAgentLaunch":
		return true, true
	case "coreAgentLogLevel":
		return scoutlog.Info, true
	case "logLevel":
		return scoutlog.Info, true
	case "coreAgentPermissions":
		return 0700, true
	case "coreAgentVersion":
		return "v1.2.7", true
	case "downloadUrl":
		return "https://s3-us-west-1.amazonaws.com/scout-public-downloads/apm_core_agent/release", true
	case "uriReporting":
		return FilteredParams, true
	case "monitor":
		return false, true
	case "revisionSHA":
		// Defaults to the Heroku release-commit slug when present, else "".
		return os.Getenv("HEROKU_SLUG_COMMIT"), true
	case "allowShutdown":
		return false, true
	case "collectRemoteIP":
		return true, true
	case "apiVersion":
		return "1.0", true
	case "coreAgentDir":
		return "/tmp/scout_apm_core", true
	case "ignore":
		return []string{}, true
	case "disabledInstruments":
		return []string{}, true
	default:
		return nil, false
	}
}
