// Package delivery holds the push delivery summary shared by endpoints that notify a partner.
package delivery

import "github.com/janisto/ringlink/internal/service/notify"

// LocalNotification is a notification the app should present on this device.
type LocalNotification struct {
	Title string            `json:"title"          doc:"Notification title" example:"You are now linked! 💖"`
	Body  string            `json:"body"           doc:"Notification body"  example:"Linked with Moon! Ask them to open the app to see the connection."`
	Data  map[string]string `json:"data,omitempty" doc:"Payload fields"`
}

// Delivery summarizes a push dispatch to the partner's devices. Token values are
// never exposed.
type Delivery struct {
	Delivered         int                `json:"delivered"                   doc:"Devices that accepted the push"        example:"1"`
	Attempted         int                `json:"attempted"                   doc:"Devices a push was attempted to"       example:"2"`
	Invalid           int                `json:"invalid"                     doc:"Devices pruned as no longer reachable" example:"1"`
	LocalNotification *LocalNotification `json:"localNotification,omitempty" doc:"Present locally when no device was reached"`
}

// FromResult converts a dispatch result.
func FromResult(r *notify.Result) Delivery {
	d := Delivery{
		Delivered: r.Delivered,
		Attempted: len(r.Attempted),
		Invalid:   len(r.Invalid),
	}
	if r.Fallback != nil {
		d.LocalNotification = &LocalNotification{
			Title: r.Fallback.Title,
			Body:  r.Fallback.Body,
			Data:  r.Fallback.Data,
		}
	}
	return d
}
