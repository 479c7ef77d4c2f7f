package routes

import (
	"github.com/danielgtaylor/huma/v2"

	invitehandler "github.com/janisto/ringlink/internal/http/v1/invite"
	linkhandler "github.com/janisto/ringlink/internal/http/v1/link"
	"github.com/janisto/ringlink/internal/http/v1/profile"
	tokenhandler "github.com/janisto/ringlink/internal/http/v1/pushtoken"
	"github.com/janisto/ringlink/internal/http/v1/ring"
	"github.com/janisto/ringlink/internal/platform/auth"
	"github.com/janisto/ringlink/internal/service/invite"
	"github.com/janisto/ringlink/internal/service/link"
	"github.com/janisto/ringlink/internal/service/notify"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
	"github.com/janisto/ringlink/internal/service/pushtoken"
)

// Services bundles the core the routes adapt.
type Services struct {
	Profiles   profilesvc.Store
	Invites    *invite.Generator
	Linker     *link.Linker
	Tokens     *pushtoken.Registry
	Dispatcher *notify.Dispatcher
}

// NewServices wires the core over one store. gateway delivers pushes; cache
// may be nil for an in-process registration cache.
func NewServices(
	store profilesvc.Store,
	gateway notify.Gateway,
	cache pushtoken.Cache,
	inviteOpts []invite.Option,
	notifyOpts []notify.Option,
) Services {
	invites := invite.NewGenerator(store, inviteOpts...)
	tokens := pushtoken.NewRegistry(store, cache)
	return Services{
		Profiles:   store,
		Invites:    invites,
		Linker:     link.NewLinker(store, invites),
		Tokens:     tokens,
		Dispatcher: notify.NewDispatcher(store, gateway, tokens, notifyOpts...),
	}
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, verifier auth.Verifier, svc Services) {
	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	profile.Register(api, svc.Profiles)
	invitehandler.Register(api, svc.Invites)
	linkhandler.Register(api, svc.Linker, svc.Dispatcher)
	tokenhandler.Register(api, svc.Tokens)
	ring.Register(api, svc.Profiles, svc.Dispatcher)
}
