// Package apperrors defines the error kinds shared by the store, the media
// gateway, the credential service and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed client-supplied field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type AuthKind int

const (
	AuthMissing AuthKind = iota
	AuthInvalid
	AuthExpired
)

// AuthError is returned by token verification and login.
type AuthError struct {
	Kind AuthKind
	Err  error
}

func (e *AuthError) Error() string {
	var msg string
	switch e.Kind {
	case AuthMissing:
		msg = "missing token"
	case AuthExpired:
		msg = "token expired"
	default:
		msg = "invalid credentials"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthMessage is the client-facing text for a rejected bearer token.
func AuthMessage(kind AuthKind) string {
	switch kind {
	case AuthMissing:
		return "No token, authorization denied"
	case AuthExpired:
		return "Token has expired"
	default:
		return "Token is not valid"
	}
}

type Resource string

const (
	ResourcePlant   Resource = "Plant"
	ResourceComment Resource = "Comment"
)

// NotFoundError reports that an entry or a comment does not exist.
type NotFoundError struct {
	Resource Resource
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NewNotFound(resource Resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

type MediaKind int

const (
	MediaUnsupportedFormat MediaKind = iota
	MediaUploadFailed
)

// MediaError is returned by the media store gateway.
type MediaError struct {
	Kind MediaKind
	Err  error
}

func (e *MediaError) Error() string {
	msg := "media upload failed"
	if e.Kind == MediaUnsupportedFormat {
		msg = "unsupported image format"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MediaError) Unwrap() error { return e.Err }

// ErrConflict is returned when an idempotent create is still in flight.
var ErrConflict = errors.New("request already in progress")

func IsNotFound(err error, resource Resource) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Resource == resource
}
