package registry

import "time"

// MemoryOption configures a MemoryRegistry.
type MemoryOption func(*MemoryRegistry)

// WithSessionTTL enables sliding expiry: lookups refresh the window, and a
// session idle past d is treated as deleted.
func WithSessionTTL(d time.Duration) MemoryOption {
	return func(r *MemoryRegistry) {
		r.ttl = d
	}
}

// WithSweepInterval overrides how often the background sweep reclaims
// expired sessions. Defaults to half the TTL.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(r *MemoryRegistry) {
		r.sweepInterval = d
	}
}
