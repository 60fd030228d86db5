package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	folderEnvVar      = "DATA_FOLDER"
	apiBaseURLVar     = "API_BASE_URL"
	publicURLVar      = "PUBLIC_URL"
	logLevelVar       = "LOG_LEVEL"
	httpTimeoutEnvVar = "HTTP_TIMEOUT"

	// ConfigFileEnvVar names the optional YAML configuration file
	ConfigFileEnvVar = "SYNCO_CONFIG"
)

type EnvVars struct {
	file *FileValues
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.lookup(portEnvVar, e.file.port(), "8787")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.lookup(appNameVar, e.file.appName(), "SYNCO")
}

func (e EnvVars) GetDataFolder() string {
	return e.lookup(folderEnvVar, e.file.dataFolder(), "./data")
}

// GetAPIBaseURL returns the base URL of the portal backend (e.g., "https://api.pasesfalsos.com")
// Every auth and portal endpoint is resolved against it
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.lookup(apiBaseURLVar, e.file.apiBaseURL(), "http://localhost:3000"), "/")
}

// GetPublicURL returns the externally visible URL of the companion server,
// used when building redirect locations for shared files and login callbacks
func (e EnvVars) GetPublicURL() string {
	return strings.TrimRight(e.lookup(publicURLVar, e.file.publicURL(), "http://localhost"+e.GetPort()), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.lookup(logLevelVar, e.file.logLevel(), "info")
}

func (e EnvVars) GetHTTPTimeout() time.Duration {
	raw := e.lookup(httpTimeoutEnvVar, e.file.httpTimeout(), "")
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return 15 * time.Second
}

func (e EnvVars) GetEnv() string {
	return e.lookup("ENV", e.file.env(), "DEV")
}

func (e EnvVars) lookup(envVar, fileValue, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
