// Package kit holds the small pieces shared by every transport: the
// Endpoint abstraction, context keys and MCP tool registration.
package kit

import (
	"context"
	"fmt"
)

// Endpoint is a transport-agnostic operation.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Recover turns a panic inside the endpoint into an error so one bad call
// cannot take down a long-lived MCP session.
func Recover(next Endpoint) Endpoint {
	return func(ctx context.Context, req any) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				Logger(ctx, nil).Error("endpoint panic", "panic", p)
				resp, err = nil, fmt.Errorf("internal error: %v", p)
			}
		}()
		return next(ctx, req)
	}
}
