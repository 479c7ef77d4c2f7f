package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMSender is the subset of *messaging.Client the gateway uses.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMGateway implements Gateway over Firebase Cloud Messaging.
type FCMGateway struct {
	client FCMSender
}

// NewFCMGateway creates an FCM gateway.
func NewFCMGateway(client FCMSender) *FCMGateway {
	return &FCMGateway{client: client}
}

func (g *FCMGateway) Send(ctx context.Context, push Push) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: push.Token,
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: push.Data,
		Android: &messaging.AndroidConfig{
			Priority:     "high",
			Notification: &messaging.AndroidNotification{Sound: "default"},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	})
	if err == nil {
		return nil
	}
	switch {
	case messaging.IsUnregistered(err):
		return &GatewayError{Gateway: "fcm", Code: "UNREGISTERED", cause: fmt.Errorf("%w: %v", ErrInvalidToken, err)}
	case messaging.IsSenderIDMismatch(err):
		return &GatewayError{Gateway: "fcm", Code: "SENDER_ID_MISMATCH", cause: fmt.Errorf("%w: %v", ErrInvalidToken, err)}
	default:
		return &GatewayError{Gateway: "fcm", Code: "send_failed", cause: fmt.Errorf("%w: %v", ErrDelivery, err)}
	}
}
