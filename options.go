package membloom

import "log/slog"

type options struct {
	hasher Hasher
	logger *slog.Logger
}

// Option configures a MembershipFilter or a RedisFilter
type Option func(*options)

// WithHasher replaces the default Murmur3 hasher
func WithHasher(hasher Hasher) Option {
	return func(o *options) {
		if hasher != nil {
			o.hasher = hasher
		}
	}
}

// WithLogger sets the logger used for construction diagnostics.
// Logging is discarded when no logger is given.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		hasher: Murmur3,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
