package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultExpoPushURL is the Expo push service endpoint.
const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// Expo error codes that mean the token will never work again.
const (
	expoDeviceNotRegistered = "DeviceNotRegistered"
	expoInvalidCredentials  = "InvalidCredentials"
)

// ExpoGateway implements Gateway over the Expo push HTTP API.
type ExpoGateway struct {
	httpClient  *http.Client
	url         string
	accessToken string
}

// ExpoOption configures an ExpoGateway.
type ExpoOption func(*ExpoGateway)

// WithExpoURL sets a custom endpoint (useful for testing).
func WithExpoURL(url string) ExpoOption {
	return func(g *ExpoGateway) {
		if url != "" {
			g.url = url
		}
	}
}

// WithExpoAccessToken sets the Bearer token for projects with enhanced push security.
func WithExpoAccessToken(token string) ExpoOption {
	return func(g *ExpoGateway) {
		g.accessToken = token
	}
}

// NewExpoGateway creates an Expo gateway.
func NewExpoGateway(httpClient *http.Client, opts ...ExpoOption) *ExpoGateway {
	g := &ExpoGateway{
		httpClient: httpClient,
		url:        DefaultExpoPushURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type expoMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details *struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (g *ExpoGateway) Send(ctx context.Context, push Push) error {
	body, err := json.Marshal(expoMessage{
		To:    push.Token,
		Sound: "default",
		Title: push.Title,
		Body:  push.Body,
		Data:  push.Data,
	})
	if err != nil {
		return fmt.Errorf("encoding expo message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Gateway: "expo", Code: "network", cause: fmt.Errorf("%w: %v", ErrDelivery, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded expoResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded)
	if resp.StatusCode != http.StatusOK {
		code := fmt.Sprintf("http_%d", resp.StatusCode)
		if decodeErr == nil && len(decoded.Errors) > 0 && decoded.Errors[0].Code != "" {
			code = decoded.Errors[0].Code
		}
		return &GatewayError{Gateway: "expo", Code: code, Status: resp.StatusCode, cause: ErrDelivery}
	}
	if decodeErr != nil {
		return &GatewayError{Gateway: "expo", Code: "bad_response", Status: resp.StatusCode,
			cause: fmt.Errorf("%w: decoding expo response: %v", ErrDelivery, decodeErr)}
	}

	ticket, err := firstTicket(decoded.Data)
	if err != nil {
		return &GatewayError{Gateway: "expo", Code: "bad_response", Status: resp.StatusCode,
			cause: fmt.Errorf("%w: %v", ErrDelivery, err)}
	}
	if ticket.Status == "ok" {
		return nil
	}
	return ticketError(ticket)
}

// firstTicket accepts both the single-object and the array form of "data".
func firstTicket(raw json.RawMessage) (expoTicket, error) {
	var ticket expoTicket
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ticket, errors.New("missing push ticket")
	}
	if trimmed[0] == '[' {
		var tickets []expoTicket
		if err := json.Unmarshal(trimmed, &tickets); err != nil {
			return ticket, err
		}
		if len(tickets) == 0 {
			return ticket, errors.New("empty push ticket list")
		}
		return tickets[0], nil
	}
	err := json.Unmarshal(trimmed, &ticket)
	return ticket, err
}

func ticketError(t expoTicket) error {
	code := t.Message
	if t.Details != nil && t.Details.Error != "" {
		code = t.Details.Error
	}
	if code == "" {
		code = "unknown-error"
	}
	cause := ErrDelivery
	if code == expoDeviceNotRegistered || code == expoInvalidCredentials {
		cause = ErrInvalidToken
	}
	return &GatewayError{Gateway: "expo", Code: code, Status: http.StatusOK, cause: cause}
}
