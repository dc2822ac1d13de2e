package scout

import "time"

// ApplicationMetadata is captured once, at agent registration, and never
// mutated afterward.
type ApplicationMetadata struct {
	Language        string
	LanguageVersion string
	ServerTime      time.Time
	Framework       string
	FrameworkVersion string
	Environment     string
	AppServer       string
	Hostname        string
	DatabaseEngine  string
	DatabaseAdapter string
	ApplicationName string
	Libraries       [][]string
	PaaS            string
	GitSHA          string
}

// KeyValues flattens the metadata into the key/value map the
// ApplicationEvent(ScoutMetadata) wire message expects.
func (m ApplicationMetadata) KeyValues() map[string]any {
	return map[string]any{
		"language":         m.Language,
		"language_version": m.LanguageVersion,
		"server_time":      m.ServerTime.UTC().Format("2006-01-02T15:04:05.000Z"),
		"framework":        m.Framework,
		"framework_version": m.FrameworkVersion,
		"environment":      m.Environment,
		"app_server":       m.AppServer,
		"hostname":         m.Hostname,
		"database_engine":  m.DatabaseEngine,
		"database_adapter": m.DatabaseAdapter,
		"application_name": m.ApplicationName,
		"libraries":        m.Libraries,
		"paas":             m.PaaS,
		"git_sha":          m.GitSHA,
	}
}
