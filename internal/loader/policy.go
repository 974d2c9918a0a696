package loader

import (
	"time"

	"github.com/domforge/domforge/internal/envdefaults"
)

// Policy defines outbound request behavior: timeouts, retries, redirects,
// proxying, TLS verification, and connection pooling.
type Policy struct {
	Timeout            time.Duration
	MaxRedirects       int
	MaxRetries         int
	RetryWaitMin       time.Duration
	RetryWaitMax       time.Duration
	RequestsPerSecond  float64 // 0 means unlimited
	ProxyURL           string
	InsecureSkipVerify bool
	MaxIdleConns       int
	MaxConnsPerHost    int
	IdleConnTimeout    time.Duration
}

// DefaultPolicy returns the documented defaults, honoring process-wide
// overrides from the environment.
func DefaultPolicy() Policy {
	d := envdefaults.LoadOrDefault().Fetch
	return Policy{
		Timeout:         d.Timeout,
		MaxRedirects:    d.MaxRedirects,
		MaxRetries:      d.MaxRetries,
		RetryWaitMin:    1 * time.Second,
		RetryWaitMax:    10 * time.Second,
		MaxIdleConns:    d.MaxIdleConns,
		MaxConnsPerHost: d.MaxConnsPerHost,
		IdleConnTimeout: d.IdleConnTimeout,
	}
}

// normalized fills zero values with usable defaults so a partially built
// Policy still behaves.
func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.MaxRedirects <= 0 {
		p.MaxRedirects = def.MaxRedirects
	}
	if p.RetryWaitMin <= 0 {
		p.RetryWaitMin = def.RetryWaitMin
	}
	if p.RetryWaitMax <= 0 {
		p.RetryWaitMax = def.RetryWaitMax
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = def.MaxIdleConns
	}
	if p.MaxConnsPerHost <= 0 {
		p.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if p.IdleConnTimeout <= 0 {
		p.IdleConnTimeout = def.IdleConnTimeout
	}
	return p
}
