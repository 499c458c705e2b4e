package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the external checkout provider.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, request CheckoutRequest) (Checkout, error)
	GetCheckout(ctx context.Context, checkoutID string) (Checkout, error)
	CreateIntent(ctx context.Context, request CheckoutRequest) (Intent, error)
}

// CheckoutRequest asks the gateway to collect an amount for an order.
// Reference is echoed back by the gateway and identifies the order.
type CheckoutRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// Checkout is the gateway view of a payment session.
type Checkout struct {
	ID          string
	Reference   string
	Status      PaymentStatus
	Amount      decimal.Decimal
	Currency    string
	RedirectURL string
}

// Intent is a card-present payment handle.
type Intent struct {
	ID           string
	ClientSecret string
}

// GatewayFailure classifies a failed gateway call.
type GatewayFailure string

const (
	GatewayRejected    GatewayFailure = "rejected"
	GatewayUnavailable GatewayFailure = "unavailable"
	GatewayTimeout     GatewayFailure = "timeout"
	GatewayRefused     GatewayFailure = "connection_refused"
	GatewayNetwork     GatewayFailure = "network"
)

// GatewayError carries the classification and the gateway's own message.
type GatewayError struct {
	Failure    GatewayFailure
	StatusCode int
	Message    string
	Err        error
}

func (gatewayError *GatewayError) Error() string {
	if gatewayError.StatusCode != 0 {
		return fmt.Sprintf("payment gateway %s (%d): %s", gatewayError.Failure, gatewayError.StatusCode, gatewayError.Message)
	}
	if gatewayError.Err != nil {
		return fmt.Sprintf("payment gateway %s: %v", gatewayError.Failure, gatewayError.Err)
	}
	return fmt.Sprintf("payment gateway %s: %s", gatewayError.Failure, gatewayError.Message)
}

// Unwrap returns the transport error, if any.
func (gatewayError *GatewayError) Unwrap() error {
	return gatewayError.Err
}

// Is reports ErrUpstream so callers can match on the class.
func (gatewayError *GatewayError) Is(target error) bool {
	return target == ErrUpstream
}

// Retryable reports whether a read may be attempted again.
func (gatewayError *GatewayError) Retryable() bool {
	return gatewayError.Failure != GatewayRejected
}

// NewGatewayStatusError classifies an HTTP answer from the gateway.
func NewGatewayStatusError(statusCode int, message string) *GatewayError {
	failure := GatewayUnavailable
	if statusCode >= 400 && statusCode < 500 {
		failure = GatewayRejected
	}
	return &GatewayError{Failure: failure, StatusCode: statusCode, Message: message}
}

// ClassifyNetworkError turns a transport failure into a GatewayError.
func ClassifyNetworkError(err error) *GatewayError {
	var gatewayError *GatewayError
	if errors.As(err, &gatewayError) {
		return gatewayError
	}
	failure := GatewayNetwork
	var netError net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netError) && netError.Timeout():
		failure = GatewayTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		failure = GatewayRefused
	}
	return &GatewayError{Failure: failure, Err: err}
}
