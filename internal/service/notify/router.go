package notify

import (
	"context"
	"strings"
)

// IsExpoToken reports whether token is an Expo push token rather than a raw
// FCM or APNs device token.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// RoutingGateway sends Expo tokens through Expo and everything else through FCM.
type RoutingGateway struct {
	Expo Gateway
	FCM  Gateway
}

func (r RoutingGateway) Send(ctx context.Context, push Push) error {
	switch {
	case r.FCM == nil:
		return r.Expo.Send(ctx, push)
	case r.Expo == nil, !IsExpoToken(push.Token):
		return r.FCM.Send(ctx, push)
	default:
		return r.Expo.Send(ctx, push)
	}
}
