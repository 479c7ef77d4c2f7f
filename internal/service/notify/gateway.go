package notify

import (
	"context"
	"errors"
	"fmt"
)

// Gateway errors
var (
	ErrInvalidToken = errors.New("push token is no longer valid")
	ErrDelivery     = errors.New("push delivery failed")
)

// GatewayError carries the gateway's own error code for logging.
type GatewayError struct {
	Gateway string
	Code    string
	Status  int
	cause   error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "push gateway error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s push error (code=%s status=%d): %v", e.Gateway, e.Code, e.Status, e.cause)
	}
	return fmt.Sprintf("%s push error (code=%s): %v", e.Gateway, e.Code, e.cause)
}

// Unwrap enables errors.Is against ErrInvalidToken and ErrDelivery.
func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// errorCode extracts a short code from a send error for logs.
func errorCode(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) && ge.Code != "" {
		return ge.Code
	}
	if errors.Is(err, ErrInvalidToken) {
		return "invalid_token"
	}
	return "unknown-error"
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, push Push) error

func (f GatewayFunc) Send(ctx context.Context, push Push) error {
	return f(ctx, push)
}
