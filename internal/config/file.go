package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileValues mirrors the optional YAML configuration file. Every field is
// optional; empty values fall through to the built-in defaults.
type FileValues struct {
	AppName     string `yaml:"app_name"`
	Env         string `yaml:"env"`
	Port        string `yaml:"port"`
	DataFolder  string `yaml:"data_folder"`
	APIBaseURL  string `yaml:"api_base_url"`
	PublicURL   string `yaml:"public_url"`
	LogLevel    string `yaml:"log_level"`
	HTTPTimeout string `yaml:"http_timeout"`

	Session struct {
		CheckCooldown   string   `yaml:"check_cooldown"`
		RefreshCooldown string   `yaml:"refresh_cooldown"`
		CookieNames     []string `yaml:"cookie_names"`
	} `yaml:"session"`

	Share struct {
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
		PaymentRoute   string `yaml:"payment_route"`
	} `yaml:"share"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadFile reads and parses a YAML configuration file. Environment variables
// in the form ${VAR} are expanded before parsing.
func LoadFile(path string) (*FileValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var fv FileValues
	if err := yaml.Unmarshal([]byte(expanded), &fv); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for name, raw := range map[string]string{
		"http_timeout":             fv.HTTPTimeout,
		"session.check_cooldown":   fv.Session.CheckCooldown,
		"session.refresh_cooldown": fv.Session.RefreshCooldown,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	return &fv, nil
}

// nil-safe accessors so callers never need to check for a missing file

func (f *FileValues) appName() string {
	if f == nil {
		return ""
	}
	return f.AppName
}

func (f *FileValues) env() string {
	if f == nil {
		return ""
	}
	return f.Env
}

func (f *FileValues) port() string {
	if f == nil {
		return ""
	}
	return f.Port
}

func (f *FileValues) dataFolder() string {
	if f == nil {
		return ""
	}
	return f.DataFolder
}

func (f *FileValues) apiBaseURL() string {
	if f == nil {
		return ""
	}
	return f.APIBaseURL
}

func (f *FileValues) publicURL() string {
	if f == nil {
		return ""
	}
	return f.PublicURL
}

func (f *FileValues) logLevel() string {
	if f == nil {
		return ""
	}
	return f.LogLevel
}

func (f *FileValues) httpTimeout() string {
	if f == nil {
		return ""
	}
	return f.HTTPTimeout
}

func fileDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
