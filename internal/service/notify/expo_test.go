package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newExpoServer(t *testing.T, status int, body string, inspect func(*http.Request, expoMessage)) *ExpoGateway {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg expoMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if inspect != nil {
			inspect(r, msg)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewExpoGateway(srv.Client(), WithExpoURL(srv.URL), WithExpoAccessToken("secret"))
}

func testPush() Push {
	return Push{
		Token: "ExponentPushToken[abc]",
		Title: "Hello",
		Body:  "World",
		Data:  map[string]string{"type": "ring", "timestamp": "1700000000000"},
	}
}

func TestExpoSendOK(t *testing.T) {
	g := newExpoServer(t, http.StatusOK, `{"data":{"status":"ok","id":"ticket-1"}}`, func(r *http.Request, msg expoMessage) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		if msg.To != "ExponentPushToken[abc]" || msg.Sound != "default" {
			t.Errorf("unexpected message: %+v", msg)
		}
		if msg.Title != "Hello" || msg.Body != "World" || msg.Data["type"] != "ring" {
			t.Errorf("unexpected content: %+v", msg)
		}
	})

	if err := g.Send(context.Background(), testPush()); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestExpoSendTicketArray(t *testing.T) {
	g := newExpoServer(t, http.StatusOK, `{"data":[{"status":"ok","id":"ticket-1"}]}`, nil)
	if err := g.Send(context.Background(), testPush()); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestExpoSendTicketErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantInvalid bool
	}{
		{
			"device not registered",
			`{"data":{"status":"error","message":"not a registered push token","details":{"error":"DeviceNotRegistered"}}}`,
			"DeviceNotRegistered",
			true,
		},
		{
			"invalid credentials",
			`{"data":{"status":"error","message":"bad creds","details":{"error":"InvalidCredentials"}}}`,
			"InvalidCredentials",
			true,
		},
		{
			"rate limited",
			`{"data":{"status":"error","message":"slow down","details":{"error":"MessageRateExceeded"}}}`,
			"MessageRateExceeded",
			false,
		},
		{
			"message only",
			`{"data":{"status":"error","message":"something odd"}}`,
			"something odd",
			false,
		},
		{
			"no detail",
			`{"data":{"status":"error"}}`,
			"unknown-error",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newExpoServer(t, http.StatusOK, tt.body, nil)
			err := g.Send(context.Background(), testPush())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidToken); got != tt.wantInvalid {
				t.Fatalf("errors.Is(ErrInvalidToken) = %v, want %v (%v)", got, tt.wantInvalid, err)
			}
			if !tt.wantInvalid && !errors.Is(err, ErrDelivery) {
				t.Fatalf("expected ErrDelivery, got %v", err)
			}
			if got := errorCode(err); got != tt.wantCode {
				t.Fatalf("errorCode() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestExpoSendHTTPFailure(t *testing.T) {
	g := newExpoServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, nil)
	err := g.Send(context.Background(), testPush())
	if !errors.Is(err, ErrDelivery) || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected transient delivery error, got %v", err)
	}
	var ge *GatewayError
	if !errors.As(err, &ge) || ge.Status != http.StatusBadGateway || ge.Code != "http_502" {
		t.Fatalf("unexpected gateway error: %+v", ge)
	}
}

func TestExpoSendRequestErrors(t *testing.T) {
	g := newExpoServer(t, http.StatusBadRequest,
		`{"errors":[{"code":"PUSH_TOO_MANY_EXPERIENCE_IDS","message":"mixed projects"}]}`, nil)
	err := g.Send(context.Background(), testPush())
	if got := errorCode(err); got != "PUSH_TOO_MANY_EXPERIENCE_IDS" {
		t.Fatalf("unexpected code %q (%v)", got, err)
	}
}

func TestExpoSendMalformedResponse(t *testing.T) {
	g := newExpoServer(t, http.StatusOK, `{"data":null}`, nil)
	if err := g.Send(context.Background(), testPush()); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	g = newExpoServer(t, http.StatusOK, `not json`, nil)
	if err := g.Send(context.Background(), testPush()); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
}

func TestExpoSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	g := NewExpoGateway(srv.Client(), WithExpoURL(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Send(ctx, testPush())
	if !errors.Is(err, ErrDelivery) || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected transient error on timeout, got %v", err)
	}
}

func TestNewExpoGatewayDefaults(t *testing.T) {
	g := NewExpoGateway(http.DefaultClient, WithExpoURL(""))
	if g.url != DefaultExpoPushURL {
		t.Fatalf("expected default URL, got %s", g.url)
	}
}
