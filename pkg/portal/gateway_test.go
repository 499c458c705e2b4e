package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyNetworkError(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		err       error
		failure   GatewayFailure
		retryable bool
	}{
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), failure: GatewayTimeout, retryable: true},
		{name: "net timeout", err: &net.OpError{Op: "dial", Err: timeoutError{}}, failure: GatewayTimeout, retryable: true},
		{name: "refused", err: &net.OpError{Op: "dial", Err: fmt.Errorf("connect: %w", syscall.ECONNREFUSED)}, failure: GatewayRefused, retryable: true},
		{name: "other", err: errors.New("tls handshake failure"), failure: GatewayNetwork, retryable: true},
		{name: "existing rejection", err: fmt.Errorf("wrapped: %w", NewGatewayStatusError(422, "bad amount")), failure: GatewayRejected, retryable: false},
	}
	for _, testCase := range testCases {
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			classified := ClassifyNetworkError(testCase.err)
			if classified.Failure != testCase.failure || classified.Retryable() != testCase.retryable {
				test.Fatalf("unexpected classification %+v", classified)
			}
			if !errors.Is(classified, ErrUpstream) {
				test.Fatalf("classified error must be upstream")
			}
		})
	}
}

func TestNewGatewayStatusError(test *testing.T) {
	test.Parallel()
	rejected := NewGatewayStatusError(400, "merchant_code is invalid")
	if rejected.Failure != GatewayRejected || rejected.Retryable() {
		test.Fatalf("4xx must be a non-retryable rejection: %+v", rejected)
	}
	if rejected.Error() != "payment gateway rejected (400): merchant_code is invalid" {
		test.Fatalf("unexpected message %q", rejected.Error())
	}
	unavailable := NewGatewayStatusError(500, "internal")
	if unavailable.Failure != GatewayUnavailable || !unavailable.Retryable() {
		test.Fatalf("5xx must be retryable: %+v", unavailable)
	}
}
