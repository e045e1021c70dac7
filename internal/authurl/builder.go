// Package authurl builds provider authorization URLs.
//
// The continuation target found in the current page's query ("next") is
// carried to the provider as the OAuth state parameter so the receiving
// callback can send the user on after login.
package authurl

import (
	"strings"

	"github.com/dgellow/login-front/internal/redirectstate"
)

// StateParam is the OAuth parameter the continuation target travels in.
const StateParam = "state"

type options struct {
	skipContinuation bool
}

// Option tunes Build.
type Option func(*options)

// WithoutContinuation leaves state untouched even when the page has a
// continuation target.
func WithoutContinuation() Option {
	return func(o *options) {
		o.skipContinuation = true
	}
}

// Build appends params to base. When pageQuery holds a non-empty "next"
// value it overrides any state already present in params.
//
// params is not modified.
func Build(base string, params Params, pageQuery string, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	params = params.Clone()
	if !o.skipContinuation {
		if next, ok := redirectstate.Resolve(pageQuery); ok {
			params = params.Set(StateParam, next)
		}
	}

	return join(base, params.Encode())
}

func join(base, query string) string {
	if strings.Contains(base, "?") {
		return base + "&" + query
	}
	return base + "?" + query
}
