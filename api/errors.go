package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnreachable matches any failure to get a response at all.
	ErrUnreachable     = errors.New("api: service unreachable")
	ErrNotFound        = errors.New("api: not found")
	ErrPayloadTooLarge = errors.New("api: payload too large")
)

// StatusError is a response outside 2xx.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// HTTPStatus exposes the code to callers that cannot import this package.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrPayloadTooLarge:
		return e.StatusCode == http.StatusRequestEntityTooLarge
	}
	return false
}

// UnreachableError wraps a transport failure.
type UnreachableError struct {
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("api %s unreachable: %v", e.BaseURL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) Is(target error) bool { return target == ErrUnreachable }
