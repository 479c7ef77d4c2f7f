// Package notify delivers partner notifications to every registered device of
// a user and falls back to a local notification when none is reached.
package notify

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/janisto/ringlink/internal/platform/logging"
	"github.com/janisto/ringlink/internal/platform/timeutil"
	"github.com/janisto/ringlink/internal/service/profile"
)

// Defaults for fan-out.
const (
	DefaultSendTimeout    = 10 * time.Second
	DefaultMaxConcurrency = 4
)

// ErrTargetNotFound is returned when the addressee profile does not exist.
var ErrTargetNotFound = errors.New("we could not find your partner profile")

// Message is the content sent to each device.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Push is one gateway request.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Gateway sends a push to a single device token. Implementations wrap
// ErrInvalidToken when the token will never be deliverable again.
type Gateway interface {
	Send(ctx context.Context, push Push) error
}

// LocalNotification is shown on the sender's device without a push round trip.
type LocalNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Presenter displays a local notification.
type Presenter interface {
	Present(ctx context.Context, n LocalNotification) error
}

// TokenPruner removes tokens the gateway rejected as permanently invalid.
type TokenPruner interface {
	Prune(ctx context.Context, userID string, invalid []string) error
}

// Result is the outcome of one dispatch.
type Result struct {
	Delivered int
	Attempted []string
	Invalid   []string
	// Fallback is the local notification presented, if any.
	Fallback *LocalNotification
}

// Dispatcher sends messages to a user's devices.
type Dispatcher struct {
	store          profile.Store
	gateway        Gateway
	presenter      Presenter
	pruner         TokenPruner
	sendTimeout    time.Duration
	maxConcurrency int
	now            func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSendTimeout bounds each gateway call.
func WithSendTimeout(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.sendTimeout = d
		}
	}
}

// WithMaxConcurrency caps the number of in-flight gateway calls per dispatch.
func WithMaxConcurrency(n int) Option {
	return func(x *Dispatcher) {
		if n > 0 {
			x.maxConcurrency = n
		}
	}
}

// WithPresenter sets the local fallback presenter.
func WithPresenter(p Presenter) Option {
	return func(x *Dispatcher) {
		x.presenter = p
	}
}

// NewDispatcher creates a Dispatcher. The pruner is normally the push token registry.
func NewDispatcher(store profile.Store, gateway Gateway, pruner TokenPruner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:          store,
		gateway:        gateway,
		presenter:      LogPresenter{},
		pruner:         pruner,
		sendTimeout:    DefaultSendTimeout,
		maxConcurrency: DefaultMaxConcurrency,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends msg to every token of targetUserID. Per-token failures are not
// returned; they only lower Delivered. When nothing is delivered and fallback
// is non-empty, fallback is presented locally under msg's title.
func (d *Dispatcher) Dispatch(ctx context.Context, targetUserID string, msg Message, fallback string) (*Result, error) {
	target, err := d.target(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, target, msg, fallback), nil
}

func (d *Dispatcher) target(ctx context.Context, userID string) (*profile.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: partner id is required", ErrTargetNotFound)
	}
	p, err := d.store.Get(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, userID)
	}
	return p, err
}

func (d *Dispatcher) dispatch(ctx context.Context, target *profile.Profile, msg Message, fallback string) *Result {
	tokens := target.PushTokens
	res := &Result{Attempted: tokens}
	if len(tokens) == 0 {
		res.Attempted = []string{}
		d.fallback(ctx, res, msg, fallback)
		d.audit(ctx, target.ID, msg, res)
		return res
	}

	data := maps.Clone(msg.Data)
	if data == nil {
		data = make(map[string]string, 1)
	}
	data["timestamp"] = timeutil.UnixMillis(d.now())

	outcomes := make([]error, len(tokens))
	var g errgroup.Group
	g.SetLimit(d.maxConcurrency)
	for i, token := range tokens {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()
			outcomes[i] = d.gateway.Send(sendCtx, Push{
				Token: token,
				Title: msg.Title,
				Body:  msg.Body,
				Data:  data,
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range outcomes {
		switch {
		case err == nil:
			res.Delivered++
		case errors.Is(err, ErrInvalidToken):
			res.Invalid = append(res.Invalid, tokens[i])
			logging.LogWarn(ctx, "push token rejected as invalid",
				zap.String("userId", target.ID),
				zap.String("code", errorCode(err)),
			)
		default:
			logging.LogWarn(ctx, "push send failed",
				zap.String("userId", target.ID),
				zap.String("code", errorCode(err)),
				zap.Error(err),
			)
		}
	}

	if len(res.Invalid) > 0 && d.pruner != nil {
		// The caller's deadline must not cut the cleanup short.
		if err := d.pruner.Prune(context.WithoutCancel(ctx), target.ID, res.Invalid); err != nil {
			logging.LogError(ctx, "failed to prune invalid push tokens", err, zap.String("userId", target.ID))
		}
	}

	if res.Delivered == 0 {
		d.fallback(ctx, res, msg, fallback)
	}
	d.audit(ctx, target.ID, msg, res)
	return res
}

func (d *Dispatcher) fallback(ctx context.Context, res *Result, msg Message, text string) {
	if text == "" {
		return
	}
	n := LocalNotification{Title: msg.Title, Body: text, Data: maps.Clone(msg.Data)}
	res.Fallback = &n
	if d.presenter == nil {
		return
	}
	if err := d.presenter.Present(ctx, n); err != nil {
		logging.LogError(ctx, "failed to present local notification", err)
	}
}

func (d *Dispatcher) audit(ctx context.Context, targetID string, msg Message, res *Result) {
	result := logging.AuditSuccess
	if res.Delivered == 0 {
		result = logging.AuditFailure
	}
	logging.LogAuditEvent(ctx, "notification.dispatch", targetID, "notification", msg.Data["type"], result,
		map[string]any{
			"delivered": res.Delivered,
			"attempted": len(res.Attempted),
			"invalid":   len(res.Invalid),
			"fallback":  res.Fallback != nil,
		})
}

// LogPresenter writes local notifications to the request log. Servers have no
// screen; the HTTP layer returns Result.Fallback for the app to display.
type LogPresenter struct{}

func (LogPresenter) Present(ctx context.Context, n LocalNotification) error {
	logging.LogInfo(ctx, "local notification fallback",
		zap.String("title", n.Title),
		zap.String("type", n.Data["type"]),
	)
	return nil
}
