package scout

import (
	"time"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/lifecycle"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
	"github.com/scoutapp/scout-apm-go/internal/statsticker"
)

// StartOption configures an Instance at construction time, following
// the functional-options pattern.
type StartOption func(*startSettings)

type startSettings struct {
	logger                 scoutlog.Logger
	downloader             lifecycle.Downloader
	appMeta                func() ApplicationMetadata
	statisticsInterval     time.Duration
	slowRequestThresholdMs int
	scrubber               config.PathScrubber
}

func defaultSettings() startSettings {
	return startSettings{logger: scoutlog.Noop, statisticsInterval: statsticker.DefaultInterval}
}

// WithLogger supplies the Log(level, message) capability the core
// requires of the embedder.
func WithLogger(l scoutlog.Logger) StartOption {
	return func(s *startSettings) { s.logger = l }
}

// WithDownloader supplies the agent-binary fetch capability the core
// requires of the embedder. Per-call DownloadOptions are derived from
// the resolved configuration at setup time, not from this option.
func WithDownloader(d lifecycle.Downloader) StartOption {
	return func(s *startSettings) { s.downloader = d }
}

// WithApplicationMetadata overrides the metadata captured at agent
// registration.
func WithApplicationMetadata(fn func() ApplicationMetadata) StartOption {
	return func(s *startSettings) { s.appMeta = fn }
}

// WithStatisticsInterval overrides the stats ticker's default sampling
// interval.
func WithStatisticsInterval(d time.Duration) StartOption {
	return func(s *startSettings) { s.statisticsInterval = d }
}

// WithSlowRequestThreshold records the embedder's slow-request
// threshold. The core makes no sampling decision from it; it is
// exposed via Instance.SlowRequestThresholdMs for instrumentation
// plugins that want to act on it.
func WithSlowRequestThreshold(ms int) StartOption {
	return func(s *startSettings) { s.slowRequestThresholdMs = ms }
}

// WithPathScrubber supplies the two pure path-scrubbing functions the
// core requires of the embedder.
func WithPathScrubber(p config.PathScrubber) StartOption {
	return func(s *startSettings) { s.scrubber = p }
}
