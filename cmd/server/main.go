package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/ringlink/internal/config"
	"github.com/janisto/ringlink/internal/http/health"
	"github.com/janisto/ringlink/internal/http/v1/routes"
	"github.com/janisto/ringlink/internal/platform/auth"
	"github.com/janisto/ringlink/internal/platform/firebase"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	appmiddleware "github.com/janisto/ringlink/internal/platform/middleware"
	"github.com/janisto/ringlink/internal/platform/respond"
	"github.com/janisto/ringlink/internal/service/invite"
	"github.com/janisto/ringlink/internal/service/notify"
	"github.com/janisto/ringlink/internal/service/profile"
	"github.com/janisto/ringlink/internal/service/pushtoken"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

// app is everything the router needs.
type app struct {
	verifier auth.Verifier
	services routes.Services
	checks   map[string]health.Check
	closers  []func() error
	origins  []string
}

func (a *app) close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			applog.LogError(ctx, "close error", err)
		}
	}
}

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(context.Background(), "config error", err)
		os.Exit(1)
	}
	applog.SetProjectID(cfg.FirebaseProjectID)

	ctx := context.Background()
	a, err := setup(ctx, cfg)
	if err != nil {
		applog.LogError(ctx, "startup failed", err)
		os.Exit(1)
	}
	defer a.close(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		// Covers a full push fan-out on POST /v1/link and /v1/ring.
		WriteTimeout:   cfg.PushSendTimeout + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 64 << 10, // 64 KB
	}

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreBackend),
			zap.String("pushGateway", cfg.PushGateway),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		a.close(ctx)
		os.Exit(1)
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(ctx, "server exited")
}

// setup initializes Firebase, the profile store, the push gateway and the
// optional Redis registration cache.
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:                    cfg.FirebaseProjectID,
		GoogleApplicationCredentials: cfg.GoogleApplicationCredentials,
		WithMessaging:                cfg.PushGateway != config.GatewayExpo,
	})
	if err != nil {
		return nil, err
	}
	a := &app{
		verifier: auth.NewFirebaseVerifier(clients.Auth),
		checks:   map[string]health.Check{},
		closers:  []func() error{clients.Close},
		origins:  cfg.CORSAllowedOrigins,
	}

	var store profile.Store
	switch cfg.StoreBackend {
	case config.StoreMemory:
		applog.LogWarn(ctx, "using in-memory profile store; data is lost on restart")
		store = profile.NewMemoryStore(cfg.LinkMaxAttempts)
	default:
		store = profile.NewFirestoreStore(clients.Firestore, profile.WithMaxAttempts(cfg.LinkMaxAttempts))
	}

	gateway, err := newGateway(cfg, clients)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	var cache pushtoken.Cache
	if cfg.RedisURL != "" {
		rc, err := pushtoken.NewRedisCache(cfg.RedisURL, pushtoken.DefaultRedisTTL)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		cache = rc
		a.checks["redis"] = rc.Ping
		a.closers = append(a.closers, rc.Close)
	}

	a.services = routes.NewServices(store, gateway, cache,
		[]invite.Option{
			invite.WithCodeLength(cfg.InviteCodeLength),
			invite.WithMaxAttempts(cfg.InviteCodeMaxAttempts),
		},
		[]notify.Option{
			notify.WithSendTimeout(cfg.PushSendTimeout),
			notify.WithMaxConcurrency(cfg.PushMaxConcurrency),
		},
	)
	return a, nil
}

func newGateway(cfg *config.Config, clients *firebase.Clients) (notify.Gateway, error) {
	var expoOpts []notify.ExpoOption
	if cfg.ExpoPushURL != "" {
		expoOpts = append(expoOpts, notify.WithExpoURL(cfg.ExpoPushURL))
	}
	if cfg.ExpoAccessToken != "" {
		expoOpts = append(expoOpts, notify.WithExpoAccessToken(cfg.ExpoAccessToken))
	}
	expo := notify.NewExpoGateway(&http.Client{Timeout: cfg.PushSendTimeout}, expoOpts...)

	switch cfg.PushGateway {
	case config.GatewayExpo:
		return expo, nil
	case config.GatewayFCM:
		if clients.Messaging == nil {
			return nil, fmt.Errorf("PUSH_GATEWAY=%s requires a messaging client", cfg.PushGateway)
		}
		return notify.NewFCMGateway(clients.Messaging), nil
	default:
		if clients.Messaging == nil {
			return notify.RoutingGateway{Expo: expo}, nil
		}
		return notify.RoutingGateway{Expo: expo, FCM: notify.NewFCMGateway(clients.Messaging)}, nil
	}
}

func newRouter(a *app) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.CORS(a.origins...),
		appmiddleware.Security("/v1/api-docs"),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.Handler)
	router.Get("/health/ready", health.ReadyHandler(a.checks))

	router.Route("/v1", func(r chi.Router) {
		cfg := huma.DefaultConfig("Ringlink API", Version)
		cfg.DocsPath = "/api-docs"
		cfg.Servers = []*huma.Server{{URL: "/v1"}}
		cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		}
		api := humachi.New(r, cfg)
		addCBORContent(api)
		routes.Register(api, a.verifier, a.services)
	})
	return router
}

// addCBORContent advertises CBOR next to JSON for every request and response body.
func addCBORContent(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}
