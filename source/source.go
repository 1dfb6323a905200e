package source

import (
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"google.golang.org/api/option"
)

// Source loads the raw bytes of a document reference.
type Source interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// objectReader is implemented by each storage backend.
type objectReader interface {
	read(ctx context.Context, uri *URI) (io.ReadCloser, error)
}

type readerFactory func(ctx context.Context) (objectReader, error)

// Router dispatches a reference to the backend matching its scheme. Remote
// backends are created on first use and shared afterwards.
type Router struct {
	maxSize int64

	local objectReader

	mu        sync.Mutex
	backends  map[Scheme]objectReader
	factories map[Scheme]readerFactory
}

var _ Source = (*Router)(nil)

type Option func(*Router)

// WithMaxSize limits how many bytes are read from a single document.
// Default: pdfask.MaxPDFSize
func WithMaxSize(size int64) Option {
	return func(r *Router) {
		r.maxSize = size
	}
}

// WithGCSOptions passes client options to the Cloud Storage client used
// for gs:// references.
func WithGCSOptions(opts ...option.ClientOption) Option {
	return func(r *Router) {
		r.factories[SchemeGS] = func(ctx context.Context) (objectReader, error) {
			return newGCSReader(ctx, opts...)
		}
	}
}

// WithS3 enables s3:// references against an S3 compatible endpoint.
func WithS3(cfg S3Config) Option {
	return func(r *Router) {
		r.factories[SchemeS3] = func(ctx context.Context) (objectReader, error) {
			return newS3Reader(cfg)
		}
	}
}

// New creates a Router. Local paths and gs:// references work without
// options; s3:// requires WithS3.
func New(options ...Option) *Router {
	r := &Router{
		maxSize:  pdfask.MaxPDFSize,
		local:    &localReader{},
		backends: make(map[Scheme]objectReader),
		factories: map[Scheme]readerFactory{
			SchemeGS: func(ctx context.Context) (objectReader, error) {
				return newGCSReader(ctx)
			},
		},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Router) backend(ctx context.Context, scheme Scheme) (objectReader, error) {
	if scheme == SchemeFile {
		return r.local, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[scheme]; ok {
		return b, nil
	}

	factory, ok := r.factories[scheme]
	if !ok {
		return nil, goerr.New("storage backend is not configured", goerr.V("scheme", scheme), goerr.Tag(pdfask.TagIOFailure))
	}

	b, err := factory(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to set up storage backend", goerr.V("scheme", scheme), goerr.Tag(pdfask.TagIOFailure))
	}
	r.backends[scheme] = b
	return b, nil
}

// Read loads the whole document referenced by ref into memory.
func (r *Router) Read(ctx context.Context, ref string) ([]byte, error) {
	uri, err := ParseURI(ref)
	if err != nil {
		return nil, err
	}

	b, err := r.backend(ctx, uri.Scheme)
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Debug("reading document", "uri", uri.String())

	rc, err := b.read(ctx, uri)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open document", goerr.V("uri", uri.String()), goerr.Tag(pdfask.TagIOFailure))
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, r.maxSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("uri", uri.String()), goerr.Tag(pdfask.TagIOFailure))
	}
	if int64(len(data)) > r.maxSize {
		return nil, goerr.New("document exceeds maximum size",
			goerr.V("uri", uri.String()),
			goerr.V("max_size", r.maxSize),
			goerr.Tag(pdfask.TagIOFailure))
	}

	return data, nil
}

// ReadPDF reads ref and validates the result as a PDF document.
func ReadPDF(ctx context.Context, src Source, ref string) (pdfask.PDF, error) {
	data, err := src.Read(ctx, ref)
	if err != nil {
		return pdfask.PDF{}, err
	}
	doc, err := pdfask.NewPDF(data)
	if err != nil {
		return pdfask.PDF{}, goerr.Wrap(err, "failed to load document", goerr.V("ref", ref))
	}
	return doc, nil
}
