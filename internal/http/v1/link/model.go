package link

import (
	"github.com/janisto/ringlink/internal/http/v1/delivery"
	"github.com/janisto/ringlink/internal/http/v1/profile"
)

// Partner is the public view of the linked partner.
type Partner struct {
	ID   string `json:"id"   doc:"Partner's user ID"      example:"user-456"`
	Name string `json:"name" doc:"Partner's display name" example:"Moon"`
}

// LinkResult is the outcome of linking with a partner.
type LinkResult struct {
	User     profile.Profile    `json:"user"               doc:"Caller's profile after the link"`
	Partner  Partner            `json:"partner"            doc:"The linked partner"`
	Created  bool               `json:"created"            doc:"False when the two were already linked" example:"true"`
	Delivery *delivery.Delivery `json:"delivery,omitempty" doc:"Confirmation push sent to the partner"`
}
