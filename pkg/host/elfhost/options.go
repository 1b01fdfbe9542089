package elfhost

import (
	"github.com/go-kit/log"
	"github.com/ianlancetaylor/demangle"
)

// Option configures how an executable is loaded.
type Option func(*options)

type options struct {
	demangle        bool
	demangleOptions []demangle.Option
	minStringLen    int
	logger          log.Logger
}

// WithDemangle demangles C++ and Rust function names.
func WithDemangle(opts ...demangle.Option) Option {
	return func(o *options) {
		o.demangle = true
		o.demangleOptions = opts
	}
}

// WithMinStringLength ignores shorter strings. The default is 1.
func WithMinStringLength(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.minStringLen = n
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
