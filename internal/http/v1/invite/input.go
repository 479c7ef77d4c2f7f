package invite

// InviteCodeGetInput for GET /invite-code (no body needed)
type InviteCodeGetInput struct{}

// InviteCodeRefreshInput for POST /invite-code/refresh (no body needed)
type InviteCodeRefreshInput struct{}

// InviteCodeQRInput for GET /invite-code/qr
type InviteCodeQRInput struct {
	Size int `query:"size" default:"256" minimum:"128" maximum:"1024" doc:"Image edge length in pixels"`
}
