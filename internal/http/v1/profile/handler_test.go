package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/ringlink/internal/platform/auth"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	appmiddleware "github.com/janisto/ringlink/internal/platform/middleware"
	"github.com/janisto/ringlink/internal/platform/respond"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
)

var testUser = &auth.User{UID: "test-user-123", Email: "sun@example.com", PhoneNumber: "+358401234567"}

func newTestRouter(store profilesvc.Store) chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("ProfileTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, auth.NewMockVerifier(testUser)))
	Register(api, store)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+auth.TokenFor(testUser.UID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateProfileSuccess(t *testing.T) {
	store := profilesvc.NewMemoryStore(0)
	router := newTestRouter(store)

	resp := do(router, http.MethodPost, "/profile", `{"name":"Sun","partnerNameHint":"Moon"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if location := resp.Header().Get("Location"); location != "/v1/profile" {
		t.Errorf("expected Location /v1/profile, got %s", location)
	}

	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if p.ID != testUser.UID || p.Name != "Sun" || p.PartnerNameHint != "Moon" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if p.Email != testUser.Email {
		t.Errorf("expected email to default to the identity's, got %q", p.Email)
	}
	if p.PhoneNumber != testUser.PhoneNumber {
		t.Errorf("expected phone to default to the identity's, got %q", p.PhoneNumber)
	}
	if p.Linked {
		t.Error("new profile should not be linked")
	}

	stored, err := store.Get(context.Background(), testUser.UID)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if stored.Name != "Sun" {
		t.Errorf("expected stored name Sun, got %q", stored.Name)
	}
}

func TestCreateProfileConflict(t *testing.T) {
	store := profilesvc.NewMemoryStore(0)
	store.Put(&profilesvc.Profile{ID: testUser.UID, Name: "Existing"})
	router := newTestRouter(store)

	resp := do(router, http.MethodPost, "/profile", `{"name":"Sun"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateProfileStoresSignupDetails(t *testing.T) {
	store := profilesvc.NewMemoryStore(0)
	router := newTestRouter(store)

	resp := do(router, http.MethodPost, "/profile", `{"name":"Sun","gender":"Female","anniversaryDate":"2021-06-12"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if p.Gender != "Female" || p.AnniversaryDate != "2021-06-12" {
		t.Errorf("unexpected signup details: %+v", p)
	}
	stored, err := store.Get(context.Background(), testUser.UID)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if stored.Gender != "Female" || stored.AnniversaryDate != "2021-06-12" {
		t.Errorf("signup details not stored: %+v", stored)
	}
}

func TestCreateProfilePhoneHeldByAnotherAccount(t *testing.T) {
	store := profilesvc.NewMemoryStore(0)
	store.Put(&profilesvc.Profile{ID: "someone-else", Name: "Other", PhoneNumber: testUser.PhoneNumber})
	router := newTestRouter(store)

	resp := do(router, http.MethodPost, "/profile", `{"name":"Sun"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "another account") {
		t.Errorf("expected phone conflict detail, got %s", resp.Body.String())
	}
	if _, err := store.Get(context.Background(), testUser.UID); err == nil {
		t.Error("profile must not be created")
	}

	resp = do(router, http.MethodPost, "/profile", `{"name":"Sun","phoneNumber":"+358409999999"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 with a free number, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateProfileValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"partnerNameHint":"Moon"}`},
		{"empty name", `{"name":""}`},
		{"invalid email", `{"name":"Sun","email":"not-an-email"}`},
		{"invalid phone", `{"name":"Sun","phoneNumber":"12345"}`},
		{"unknown gender", `{"name":"Sun","gender":"robot"}`},
		{"invalid anniversary", `{"name":"Sun","anniversaryDate":"12/06/2021"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(profilesvc.NewMemoryStore(0))
			resp := do(router, http.MethodPost, "/profile", tt.body)
			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestCreateProfileUnauthorized(t *testing.T) {
	router := newTestRouter(profilesvc.NewMemoryStore(0))

	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(`{"name":"Sun"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if wwwAuth := resp.Header().Get("WWW-Authenticate"); wwwAuth != "Bearer" {
		t.Errorf("expected WWW-Authenticate: Bearer, got %s", wwwAuth)
	}
}

func TestGetProfileSuccess(t *testing.T) {
	linkedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	store := profilesvc.NewMemoryStore(0)
	store.Put(&profilesvc.Profile{
		ID:                testUser.UID,
		Name:              "Sun",
		Linked:            true,
		PartnerID:         "partner-1",
		PartnerName:       "Moon",
		PartnerInviteCode: "4F2A9C",
		InviteCode:        "B71E03",
		LinkedAt:          &linkedAt,
		PushTokens:        []string{"ExponentPushToken[a]", "ExponentPushToken[b]"},
	})
	router := newTestRouter(store)

	resp := do(router, http.MethodGet, "/profile", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if !p.Linked || p.PartnerID != "partner-1" || p.PartnerName != "Moon" {
		t.Errorf("unexpected partner fields: %+v", p)
	}
	if p.PushTokenCount != 2 {
		t.Errorf("expected 2 push tokens, got %d", p.PushTokenCount)
	}
	if p.LinkedAt == nil || !p.LinkedAt.Equal(linkedAt) {
		t.Errorf("expected linkedAt %v, got %v", linkedAt, p.LinkedAt)
	}
	if !strings.Contains(resp.Body.String(), `"linkedAt":"2024-01-15T10:30:00.000Z"`) {
		t.Errorf("expected millisecond timestamp in body: %s", resp.Body.String())
	}
}

func TestGetProfileLinkedWithoutPartnerReportsUnlinked(t *testing.T) {
	store := profilesvc.NewMemoryStore(0)
	store.Put(&profilesvc.Profile{ID: testUser.UID, Name: "Sun", Linked: true})
	router := newTestRouter(store)

	resp := do(router, http.MethodGet, "/profile", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if p.Linked {
		t.Error("expected linked=false without a partner id")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	router := newTestRouter(profilesvc.NewMemoryStore(0))

	resp := do(router, http.MethodGet, "/profile", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}

	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if problem.Detail != "profile not found" {
		t.Errorf("unexpected detail %q", problem.Detail)
	}
}
