package invite

// InviteCode is the caller's shareable invite code.
type InviteCode struct {
	InviteCode string `json:"inviteCode" doc:"Code a partner enters or scans to link" example:"B71E03"`
}
