package link

// LinkOutput for POST /link
type LinkOutput struct {
	Body LinkResult
}
