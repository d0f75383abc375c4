package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned for 401 responses. Sessions drop to
	// anonymous when they see it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientPoints is returned by Redeem before any request is made
	// when the known balance cannot cover the reward.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrStale reports that a newer fetch superseded this one.
	ErrStale = errors.New("stale response")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindNone Kind = iota
	// KindAuth: the credential is gone or invalid; show the login screen.
	KindAuth
	// KindValidation: the input was rejected field by field; keep the form open.
	KindValidation
	// KindBusiness: a rule refused the action; nothing changed.
	KindBusiness
	// KindTransient: network, server or upload failure; the caller may retry.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindTransient:
		return "transient"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// APIError is a non-2xx response other than 401 and 422.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Kind() Kind {
	if e.StatusCode >= 500 {
		return KindTransient
	}
	return KindBusiness
}

// ValidationError carries the field messages of a 422 response.
type ValidationError struct {
	Fields   map[string]string
	Messages []string
}

func newValidationError(msg string, fields map[string]string) *ValidationError {
	ve := &ValidationError{Fields: fields}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ve.Messages = append(ve.Messages, k+" "+fields[k])
	}
	if len(ve.Messages) == 0 && msg != "" {
		ve.Messages = []string{msg}
	}
	return ve
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// UploadError aborts a submission when one or more evidence files failed to
// upload. Err combines every failure.
type UploadError struct {
	Files []string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", strings.Join(e.Files, ", "), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ProtocolError means the server answered with something the client does
// not accept, such as a new submission that is not pending.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Msg }

// Classify maps an error returned by this package onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindAuth
	}
	if errors.Is(err, ErrInsufficientPoints) {
		return KindBusiness
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var ue *UploadError
	if errors.As(err, &ue) {
		return KindTransient
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind()
	}
	// Transport failures, cancellations and protocol errors.
	return KindTransient
}
