package usecase

import (
	"time"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// DefaultInstallDir is a directory fontconfig scans on common Linux hosts
const DefaultInstallDir = "/usr/local/share/fonts/fontprov"

// config holds provisioner configuration
type config struct {
	policy        model.Policy
	installDir    string
	concurrency   int
	fetchTimeout  time.Duration
	retries       int
	retryInterval time.Duration
	deepVerify    bool
}

func defaultConfig() config {
	return config{
		policy:        model.PolicyFailFast,
		installDir:    DefaultInstallDir,
		concurrency:   4,
		fetchTimeout:  30 * time.Second,
		retries:       0,
		retryInterval: time.Second,
		deepVerify:    true,
	}
}

// Option is a functional option for the provisioner
type Option func(*config)

// WithPolicy sets the failure-tolerance policy
func WithPolicy(policy model.Policy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithInstallDir sets the installation directory
func WithInstallDir(dir string) Option {
	return func(c *config) {
		c.installDir = dir
	}
}

// WithConcurrency bounds the number of concurrent fetches
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFetchTimeout bounds the wall-clock time of one fetch attempt
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithRetries sets how many extra attempts a failed fetch gets
func WithRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryInterval sets the first backoff interval between attempts
func WithRetryInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithDeepVerify toggles parsing of the font tables before install
func WithDeepVerify(enabled bool) Option {
	return func(c *config) {
		c.deepVerify = enabled
	}
}
