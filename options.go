package dnsresolver

import "time"

// Default values used by New when the corresponding Options field is zero.
const (
	DefaultTimeout       = 3 * time.Second
	DefaultCacheCapacity = 1000
	DefaultStepCap       = 25
)

// Options configures a Resolver. All fields are optional; zero values fall
// back to the defaults above. The core never reads configuration from the
// environment itself; that is left to whatever process embeds it.
type Options struct {
	// Timeout bounds a single UDP exchange with one nameserver.
	Timeout time.Duration

	// CacheCapacity is the maximum number of live entries the TTL cache
	// holds before FIFO eviction kicks in.
	CacheCapacity int

	// StepCap bounds the number of recorded hops in a single resolution.
	StepCap int

	// Logger, if set, receives one structured record per hop. See log.go.
	Logger *Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = DefaultCacheCapacity
	}
	if o.StepCap <= 0 {
		o.StepCap = DefaultStepCap
	}
	return o
}
