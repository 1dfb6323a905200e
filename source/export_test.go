package source

import (
	"context"
	"io"
)

type readerFunc func(ctx context.Context, uri *URI) (io.ReadCloser, error)

func (f readerFunc) read(ctx context.Context, uri *URI) (io.ReadCloser, error) {
	return f(ctx, uri)
}

// WithBackend replaces the backend of scheme for testing
func WithBackend(scheme Scheme, fn func(ctx context.Context, uri *URI) (io.ReadCloser, error)) Option {
	return func(r *Router) {
		r.factories[scheme] = func(ctx context.Context) (objectReader, error) {
			return readerFunc(fn), nil
		}
	}
}
