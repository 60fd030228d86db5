package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	ShareConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetAPIBaseURL() string
	GetPublicURL() string
	GetLogLevel() string
	GetHTTPTimeout() time.Duration
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Share
}

// New returns a Config backed by environment variables and defaults.
func New() Config {
	return mainConfig{}
}

// NewFromFile returns a Config where values from the YAML file at path sit
// between environment variables and the built-in defaults.
func NewFromFile(path string) (Config, error) {
	fv, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{
		EnvVars: EnvVars{file: fv},
		Cors:    Cors{file: fv},
		Session: Session{file: fv},
		Share:   Share{file: fv},
	}, nil
}
