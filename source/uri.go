package source

import (
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
)

// Scheme identifies the backend a document reference points to.
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeGS   Scheme = "gs"
	SchemeS3   Scheme = "s3"
)

// URI is a parsed document reference. For SchemeFile, Bucket is empty and
// Key holds the filesystem path.
type URI struct {
	Scheme Scheme
	Bucket string
	Key    string
}

func (u URI) String() string {
	if u.Scheme == SchemeFile {
		return u.Key
	}
	return string(u.Scheme) + "://" + u.Bucket + "/" + u.Key
}

// ParseURI splits ref into scheme, bucket and key. A reference without a
// scheme is a local path.
func ParseURI(ref string) (*URI, error) {
	if ref == "" {
		return nil, goerr.New("document reference is empty", goerr.Tag(pdfask.TagIOFailure))
	}

	if !strings.Contains(ref, "://") {
		return &URI{Scheme: SchemeFile, Key: ref}, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse document reference", goerr.V("ref", ref), goerr.Tag(pdfask.TagIOFailure))
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		if u.Path == "" {
			return nil, goerr.New("file path is required", goerr.V("ref", ref), goerr.Tag(pdfask.TagIOFailure))
		}
		return &URI{Scheme: SchemeFile, Key: u.Path}, nil

	case SchemeGS, SchemeS3:
		if u.Host == "" {
			return nil, goerr.New("bucket name is required", goerr.V("ref", ref), goerr.Tag(pdfask.TagIOFailure))
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" || strings.HasSuffix(key, "/") {
			return nil, goerr.New("object key is required", goerr.V("ref", ref), goerr.Tag(pdfask.TagIOFailure))
		}
		return &URI{Scheme: Scheme(u.Scheme), Bucket: u.Host, Key: key}, nil

	default:
		return nil, goerr.New("unsupported document scheme",
			goerr.V("ref", ref),
			goerr.V("scheme", u.Scheme),
			goerr.Tag(pdfask.TagIOFailure))
	}
}
