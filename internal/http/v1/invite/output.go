package invite

// InviteCodeOutput for GET /invite-code and POST /invite-code/refresh
type InviteCodeOutput struct {
	Body InviteCode
}

// InviteCodeQROutput for GET /invite-code/qr
type InviteCodeQROutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}
