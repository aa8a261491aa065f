// Package config resolves the backend base URLs. Selection follows the
// runtime hostname: anything other than localhost/127.0.0.1 is treated as
// production. Environment variables override either base for development
// against a non-standard backend.
package config

type Config interface {
	// APIBaseURL is the REST API root, including the /api prefix.
	APIBaseURL() string

	// AuthBaseURL is the backend origin used for OAuth login redirects
	// (no /api prefix).
	AuthBaseURL() string

	// ChatAPIBaseURL is the secondary chat microservice root, empty when
	// not configured.
	ChatAPIBaseURL() string

	AppName() string
	IsProduction() bool
}

type mainConfig struct {
	EnvVars
}

// New resolves configuration for the given runtime hostname.
func New(hostname string) Config {
	return mainConfig{EnvVars{hostname: hostname}}
}
