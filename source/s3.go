package source

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings of an S3 compatible store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type s3Reader struct {
	client *minio.Client
}

func newS3Reader(cfg S3Config) (objectReader, error) {
	if cfg.Endpoint == "" {
		return nil, goerr.New("S3 endpoint is required")
	}

	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create S3 client", goerr.V("endpoint", cfg.Endpoint))
	}
	return &s3Reader{client: client}, nil
}

func (s *s3Reader) read(ctx context.Context, uri *URI) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, uri.Bucket, uri.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get document object",
			goerr.V("bucket", uri.Bucket),
			goerr.V("key", uri.Key),
		)
	}

	// GetObject is lazy; Stat surfaces a missing object before reading.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, goerr.Wrap(err, "failed to stat document object",
			goerr.V("bucket", uri.Bucket),
			goerr.V("key", uri.Key),
		)
	}
	return obj, nil
}
