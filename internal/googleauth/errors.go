package googleauth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies credential acquisition failures.
type ErrorKind string

const (
	// KindMissingIdentity means no service identity document could be found.
	KindMissingIdentity ErrorKind = "missing_identity"
	// KindMalformedToken means a supplied token could not be parsed.
	KindMalformedToken ErrorKind = "malformed_token"
	// KindGrantRequired means no token or client document exists and the
	// interactive grant flow is unavailable.
	KindGrantRequired ErrorKind = "grant_required"
	// KindTokenExpiredNoRefresh means a token was supplied but is expired and
	// cannot be refreshed.
	KindTokenExpiredNoRefresh ErrorKind = "token_expired_no_refresh"
)

// AuthError is returned for every terminal credential failure.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authErr(kind ErrorKind, format string, args ...any) *AuthError {
	return &AuthError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}
