package pdfask

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// ErrorKind is the closed set of failure categories an analysis can end with.
type ErrorKind string

const (
	KindUnknown           ErrorKind = "unknown"
	KindCredentialMissing ErrorKind = "credential-missing"
	KindIOFailure         ErrorKind = "io-failure"
	KindRemoteFailure     ErrorKind = "remote-failure"
	KindMalformedResponse ErrorKind = "malformed-response"
)

var (
	TagCredentialMissing = goerr.NewTag(string(KindCredentialMissing))
	TagIOFailure         = goerr.NewTag(string(KindIOFailure))
	TagRemoteFailure     = goerr.NewTag(string(KindRemoteFailure))
	TagMalformedResponse = goerr.NewTag(string(KindMalformedResponse))
)

var (
	ErrInvalidParameter = goerr.New("invalid parameter")
)

// errorPrefix is what the presentation boundary shows in place of an answer.
const errorPrefix = "An error occurred: "

// KindOf returns the kind of the first tagged error in err's chain.
func KindOf(err error) ErrorKind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch {
		case goerr.HasTag(e, TagCredentialMissing):
			return KindCredentialMissing
		case goerr.HasTag(e, TagIOFailure):
			return KindIOFailure
		case goerr.HasTag(e, TagRemoteFailure):
			return KindRemoteFailure
		case goerr.HasTag(e, TagMalformedResponse):
			return KindMalformedResponse
		}
	}
	return KindUnknown
}

// IsRetryable reports whether repeating the same call may succeed.
// Only remote failures are considered transient.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRemoteFailure
}

// Describe flattens err into the human readable string shown to users.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return errorPrefix + err.Error()
}
