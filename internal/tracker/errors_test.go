package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHTTPStatusCodeServerErrors(t *testing.T) {
	for code := 500; code <= 599; code++ {
		err := MapHTTPStatusCode(code)
		var se *ServerError
		require.ErrorAs(t, err, &se, "code %d", code)
		assert.Equal(t, code, se.Code)
		assert.True(t, Retryable(err))
	}
}

func TestMapHTTPStatusCode(t *testing.T) {
	tests := []struct {
		code int
		kind string
	}{
		{400, "rejected"},
		{404, "rejected"},
		{410, "rejected"},
		{429, "rejected"},
		{302, "server"},
		{100, "server"},
		{0, "server"},
		{600, "server"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := MapHTTPStatusCode(tt.code)
			assert.Equal(t, tt.kind, Kind(err))
		})
	}

	var rejected *RequestRejectedError
	require.ErrorAs(t, MapHTTPStatusCode(404), &rejected)
	assert.Equal(t, 404, rejected.Code)
	assert.False(t, Retryable(rejected))
	assert.Contains(t, rejected.Error(), "Not Found")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMapTransportError(t *testing.T) {
	wrap := func(err error) error {
		return &url.Error{Op: "Get", URL: "http://tracker.test", Err: err}
	}

	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"cancelled", wrap(context.Canceled), "cancelled"},
		{"deadline", wrap(context.DeadlineExceeded), "timeout"},
		{"net timeout", wrap(timeoutErr{}), "timeout"},
		{"dns not found", wrap(&net.DNSError{Name: "tracker.test", IsNotFound: true}), "unknown_host"},
		{"dns temporary", wrap(&net.DNSError{Name: "tracker.test", IsTemporary: true}), "network"},
		{"connection reset", wrap(errors.New("connection reset by peer")), "network"},
		{"already mapped", &ServerError{Code: 502}, "server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(mapTransportError(context.Background(), tt.err)))
		})
	}

	var uh *UnknownHostError
	require.ErrorAs(t, mapTransportError(context.Background(), wrap(&net.DNSError{Name: "x.test", IsNotFound: true})), &uh)
	assert.Equal(t, "x.test", uh.Host)

	var ne *NetworkError
	cause := errors.New("boom")
	require.ErrorAs(t, mapTransportError(context.Background(), cause), &ne)
	assert.ErrorIs(t, ne, cause)
}

func TestMapTransportErrorUsesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, IsCancelled(mapTransportError(ctx, errors.New("use of closed network connection"))))
}

func TestRetryableAndKind(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
		kind      string
	}{
		{&NetworkError{Cause: errors.New("x")}, true, "network"},
		{&TimeoutError{Cause: context.DeadlineExceeded}, true, "timeout"},
		{&UnknownHostError{Host: "h"}, true, "unknown_host"},
		{&ServerError{Code: 503}, true, "server"},
		{&RequestRejectedError{Code: 400}, false, "rejected"},
		{&CancelledError{}, false, "cancelled"},
		{fmt.Errorf("%w: bad", ErrInvalidRequest), false, "invalid"},
		{errors.New("other"), false, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
			assert.Equal(t, tt.kind, Kind(tt.err))
		})
	}

	assert.True(t, IsCancelled(fmt.Errorf("wrapped: %w", &CancelledError{})))
	assert.ErrorIs(t, &CancelledError{}, context.Canceled)
}
