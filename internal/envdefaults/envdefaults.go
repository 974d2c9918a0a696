// Package envdefaults holds process-wide defaults for document environments.
//
// Values are read from the environment once and injected explicitly at
// construction time; nothing in the construction path consults the process
// environment after that.
package envdefaults

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Defaults holds all overridable process-wide defaults.
type Defaults struct {
	UserAgent string `envconfig:"DOMFORGE_USER_AGENT" default:""`
	LogLevel  string `envconfig:"DOMFORGE_LOG_LEVEL" default:"info"`
	Fetch     FetchDefaults
}

// FetchDefaults holds default outbound request policy. The pool parameters
// emulate browser connection reuse: a bounded socket pool with keep-alive
// and a multi-minute idle timeout.
type FetchDefaults struct {
	Timeout         time.Duration `envconfig:"DOMFORGE_FETCH_TIMEOUT" default:"30s"`
	MaxRedirects    int           `envconfig:"DOMFORGE_FETCH_MAX_REDIRECTS" default:"10"`
	MaxRetries      int           `envconfig:"DOMFORGE_FETCH_MAX_RETRIES" default:"2"`
	MaxIdleConns    int           `envconfig:"DOMFORGE_FETCH_MAX_IDLE_CONNS" default:"32"`
	MaxConnsPerHost int           `envconfig:"DOMFORGE_FETCH_MAX_CONNS_PER_HOST" default:"6"`
	IdleConnTimeout time.Duration `envconfig:"DOMFORGE_FETCH_IDLE_TIMEOUT" default:"4m"`
}

// Load reads defaults from the environment.
func Load() (*Defaults, error) {
	var d Defaults
	if err := envconfig.Process("", &d); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	return &d, nil
}

// LoadOrDefault reads defaults from the environment, falling back to the
// built-in values on error.
func LoadOrDefault() *Defaults {
	d, err := Load()
	if err != nil {
		return Default()
	}
	return d
}

// Default returns the built-in defaults.
func Default() *Defaults {
	return &Defaults{
		UserAgent: "",
		LogLevel:  "info",
		Fetch: FetchDefaults{
			Timeout:         30 * time.Second,
			MaxRedirects:    10,
			MaxRetries:      2,
			MaxIdleConns:    32,
			MaxConnsPerHost: 6,
			IdleConnTimeout: 4 * time.Minute,
		},
	}
}
