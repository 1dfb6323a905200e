package source

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

type gcsReader struct {
	client *storage.Client
}

func newGCSReader(ctx context.Context, opts ...option.ClientOption) (objectReader, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &gcsReader{client: client}, nil
}

func (s *gcsReader) read(ctx context.Context, uri *URI) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(uri.Bucket).Object(uri.Key).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document object",
			goerr.V("bucket", uri.Bucket),
			goerr.V("object", uri.Key),
		)
	}
	return reader, nil
}
