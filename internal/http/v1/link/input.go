package link

// LinkInput for POST /link
type LinkInput struct {
	Body struct {
		InviteCode string `json:"inviteCode" minLength:"1" maxLength:"64" required:"true" doc:"Partner's invite code, typed or scanned" example:"4F2A9C"`
	}
}
