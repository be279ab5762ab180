package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrInvalidRequest is returned before any network call when the caller's
// arguments cannot form a valid request.
var ErrInvalidRequest = errors.New("invalid live times request")

// Error is the closed set of failures a tracker call can produce:
// *NetworkError, *ServerError, *RequestRejectedError, *UnknownHostError,
// *TimeoutError and *CancelledError.
type Error interface {
	error
	trackerError()
}

// NetworkError is an I/O or connectivity fault.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Cause) }
func (e *NetworkError) Unwrap() error { return e.Cause }
func (*NetworkError) trackerError()   {}

// ServerError is a server-side failure, usually a 5xx status. Cause is set
// when a successful response carried a payload that could not be decoded.
type ServerError struct {
	Code  int
	Cause error
}

func (e *ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server error (HTTP %d): %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("server error (HTTP %d)", e.Code)
}
func (e *ServerError) Unwrap() error { return e.Cause }
func (*ServerError) trackerError()   {}

// RequestRejectedError is a 4xx response: the stop or request is invalid and
// retrying it unchanged will not help.
type RequestRejectedError struct {
	Code int
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("request rejected (HTTP %d %s)", e.Code, http.StatusText(e.Code))
}
func (*RequestRejectedError) trackerError() {}

// UnknownHostError means the endpoint host could not be resolved.
type UnknownHostError struct {
	Host string
}

func (e *UnknownHostError) Error() string { return fmt.Sprintf("unknown host %q", e.Host) }
func (*UnknownHostError) trackerError()   {}

// TimeoutError means the call did not complete in time.
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("request timed out: %v", e.Cause) }
func (e *TimeoutError) Unwrap() error { return e.Cause }
func (*TimeoutError) trackerError()   {}

// CancelledError means the request was cancelled by its caller.
type CancelledError struct{}

func (*CancelledError) Error() string { return "request cancelled" }
func (*CancelledError) Unwrap() error { return context.Canceled }
func (*CancelledError) trackerError() {}

// MapHTTPStatusCode translates a non-successful HTTP status. It is total:
// codes outside the 4xx family map to ServerError.
func MapHTTPStatusCode(code int) Error {
	if code >= 400 && code <= 499 {
		return &RequestRejectedError{Code: code}
	}
	return &ServerError{Code: code}
}

// mapTransportError translates a failure from the HTTP client or from reading
// a response body.
func mapTransportError(ctx context.Context, err error) Error {
	var te Error
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.Canceled) {
		return &CancelledError{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	if ctx != nil {
		if cerr := ctx.Err(); cerr != nil {
			return mapContextError(cerr)
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return &UnknownHostError{Host: dnsErr.Name}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Cause: err}
	}

	return &NetworkError{Cause: err}
}

func mapContextError(err error) Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	return &CancelledError{}
}

// Retryable reports whether repeating the same request may succeed.
func Retryable(err error) bool {
	var te Error
	if !errors.As(err, &te) {
		return false
	}
	switch te.(type) {
	case *NetworkError, *ServerError, *UnknownHostError, *TimeoutError:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether err is a caller cancellation.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// Kind returns a stable label for err, used in metrics and API responses.
func Kind(err error) string {
	var te Error
	if !errors.As(err, &te) {
		if errors.Is(err, ErrInvalidRequest) {
			return "invalid"
		}
		return "unknown"
	}
	switch te.(type) {
	case *NetworkError:
		return "network"
	case *ServerError:
		return "server"
	case *RequestRejectedError:
		return "rejected"
	case *UnknownHostError:
		return "unknown_host"
	case *TimeoutError:
		return "timeout"
	case *CancelledError:
		return "cancelled"
	}
	return "unknown"
}
