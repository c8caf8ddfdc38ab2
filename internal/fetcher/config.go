package fetcher

import (
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
)

// Default configuration values.
const (
	defaultParallelism    = 4
	defaultRequestTimeout = 30 * time.Second

	defaultMaxIdleConns          = 100
	defaultMaxIdleConnsPerHost   = 16
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
)

// Config holds HTTP fetcher settings.
type Config struct {
	UserAgent      string
	Parallelism    int
	Delay          time.Duration
	RandomDelay    time.Duration
	RequestTimeout time.Duration
}

// ConfigFromJob derives fetcher settings from a job.
func ConfigFromJob(job *config.Job) Config {
	cfg := Config{
		UserAgent:      job.Common.UserAgent,
		Parallelism:    job.Common.Concurrency,
		Delay:          job.Common.Delay(),
		RequestTimeout: job.Common.RequestTimeout(),
	}
	if job.Crawl != nil {
		cfg.RandomDelay = job.Crawl.Jitter()
	}
	return cfg
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = config.DefaultUserAgent
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}
