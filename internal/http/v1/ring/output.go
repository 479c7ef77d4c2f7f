package ring

import "github.com/janisto/ringlink/internal/http/v1/delivery"

// RingOutput for POST /ring
type RingOutput struct {
	Body delivery.Delivery
}
