package source

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

type localReader struct{}

func (s *localReader) read(ctx context.Context, uri *URI) (io.ReadCloser, error) {
	path := filepath.Clean(uri.Key)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "document not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open document file", goerr.V("path", path))
	}
	return f, nil
}
