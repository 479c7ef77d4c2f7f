package ring

// RingInput for POST /ring (no body needed)
type RingInput struct{}
