package pushkit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/florianilch/pushkit/internal/securestore"
	"github.com/florianilch/pushkit/internal/tokenstore"
)

// Client coordinates the token lifecycle: it decides when a registration is
// necessary, performs the network exchange, persists the result, and
// notifies observers. Create one per configuration; replacing configuration
// means creating a new Client.
type Client struct {
	cfg       *Config
	store     *tokenstore.Store
	api       *apiClient
	logger    *slog.Logger
	observers *observerRegistry

	// group coalesces concurrent registrations for the same platform token
	// into a single network call.
	group singleflight.Group

	// generation invalidates in-flight completions across Reset: results
	// from an earlier generation are neither persisted nor observed.
	generation atomic.Int64
}

// Option configures optional Client collaborators.
type Option func(*clientOptions)

type clientOptions struct {
	secureStore securestore.Store
	transport   http.RoundTripper
	logger      *slog.Logger
}

// WithSecureStore overrides the storage backend selected by the
// configuration. Hosts with their own secure storage plug it in here.
func WithSecureStore(store securestore.Store) Option {
	return func(o *clientOptions) {
		o.secureStore = store
	}
}

// WithTransport sets a custom base transport for backend requests.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New creates a Client from the configuration. The configuration is
// validated first: an empty API key or malformed endpoint never produces a
// Client, so no network call can be attempted with one.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	secure := o.secureStore
	if secure == nil {
		var err error
		secure, err = cfg.Storage.NewSecureStore()
		if err != nil {
			return nil, fmt.Errorf("creating secure store: %w", err)
		}
	}

	store, err := tokenstore.New(secure)
	if err != nil {
		return nil, fmt.Errorf("creating token store: %w", err)
	}

	api, err := newAPIClient(cfg, o.logger, o.transport)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:       cfg,
		store:     store,
		api:       api,
		logger:    o.logger,
		observers: newObserverRegistry(),
	}, nil
}

// AddObserver registers an observer for token lifecycle events and returns
// a function that removes it.
func (c *Client) AddObserver(o Observer) (remove func()) {
	return c.observers.add(o)
}

// SetPlatformToken records a platform-issued push token and returns the
// backend token for it.
//
// If the token is unchanged and a backend token is cached, the cached value
// is returned with no network call. Otherwise a registration request is
// issued; on success the new mapping is persisted and observers are
// notified, on failure the error is returned with stored state untouched.
//
// Concurrent calls with the same token share one in-flight registration.
func (c *Client) SetPlatformToken(ctx context.Context, platformToken string) (string, error) {
	if platformToken == "" {
		return "", fmt.Errorf("empty platform token")
	}

	gen := c.generation.Load()
	result, err, _ := c.group.Do(platformToken, func() (any, error) {
		return c.registerToken(ctx, platformToken, gen)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) registerToken(ctx context.Context, platformToken string, gen int64) (string, error) {
	changed, previous, err := c.store.Changed(ctx, platformToken)
	if err != nil {
		return "", err
	}

	// Stale entries must not accumulate or be served for a token that is
	// no longer current.
	if changed && previous != "" {
		if err := c.store.ClearMapping(ctx, previous); err != nil {
			return "", err
		}
	}

	// Fast path: unchanged token with a cached backend token needs no
	// registration traffic.
	if !changed {
		cached, ok, err := c.store.BackendToken(ctx, platformToken)
		if err != nil {
			return "", err
		}
		if ok {
			c.logger.DebugContext(ctx, "platform token unchanged, serving cached backend token")
			return cached, nil
		}
	}

	deviceID, err := c.store.DeviceID(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.api.register(ctx, registerRequest{
		APNSToken:     platformToken,
		DeviceID:      deviceID,
		Platform:      c.cfg.Device.Platform,
		AppVersion:    c.cfg.Device.AppVersion,
		BundleID:      c.cfg.Device.BundleID,
		Timezone:      c.cfg.Device.Timezone,
		Locale:        c.cfg.Device.Locale,
		IsTokenUpdate: changed && previous != "",
		OSVersion:     c.cfg.Device.OSVersion,
		DeviceModel:   c.cfg.Device.DeviceModel,
	})
	if err != nil {
		if c.generation.Load() == gen {
			c.logger.WarnContext(ctx, "token registration failed", "error", err)
			c.observers.notify(func(o Observer) { o.TokenRegistrationFailed(err) })
		}
		return "", err
	}

	// A reset happened while the call was in flight: drop the result
	if c.generation.Load() != gen {
		return "", ErrTokenNotAvailable
	}

	if err := c.store.RecordMapping(ctx, platformToken, resp.Token); err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "token registered", "device_id", deviceID, "token_update", changed && previous != "")
	c.observers.notify(func(o Observer) { o.TokenRegistered(resp.Token) })
	return resp.Token, nil
}

// DeleteToken unregisters backendToken with the backend. On success all
// local token state is cleared; on failure local state is untouched.
func (c *Client) DeleteToken(ctx context.Context, backendToken string) error {
	gen := c.generation.Load()

	if err := c.api.unregister(ctx, unregisterRequest{Token: backendToken}); err != nil {
		return err
	}

	if c.generation.Load() != gen {
		return nil
	}

	if err := c.store.DeleteAll(ctx); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "token deleted")
	c.observers.notify(func(o Observer) { o.TokenDeleted() })
	return nil
}

// CachedToken returns the backend token for the current platform token
// without any network call. Returns ErrTokenNotAvailable if no registration
// has succeeded.
func (c *Client) CachedToken(ctx context.Context) (string, error) {
	token, ok, err := c.store.CurrentBackendToken(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrTokenNotAvailable
	}
	return token, nil
}

// SubscribeTopic subscribes the current registration to a topic.
// Requires a successful registration first.
func (c *Client) SubscribeTopic(ctx context.Context, topic string) error {
	token, err := c.CachedToken(ctx)
	if err != nil {
		return err
	}
	return c.api.subscribeTopic(ctx, topicRequest{Token: token, Topic: topic})
}

// UnsubscribeTopic removes a topic subscription for the current registration.
func (c *Client) UnsubscribeTopic(ctx context.Context, topic string) error {
	token, err := c.CachedToken(ctx)
	if err != nil {
		return err
	}
	return c.api.unsubscribeTopic(ctx, topicRequest{Token: token, Topic: topic})
}

// Track sends an analytics event. Fire-and-forget: failures are logged and
// never surfaced.
func (c *Client) Track(ctx context.Context, event string, properties map[string]any) {
	req := trackRequest{Event: event, Properties: properties}
	if token, ok, err := c.store.CurrentBackendToken(ctx); err == nil && ok {
		req.Token = token
	}

	if err := c.api.track(ctx, req); err != nil {
		c.logger.WarnContext(ctx, "analytics track failed", "event", event, "error", err)
	}
}

// Reset clears all persisted token state (logout). Completions of calls
// already in flight are ignored: they neither persist nor notify observers.
func (c *Client) Reset(ctx context.Context) error {
	c.generation.Add(1)
	return c.store.DeleteAll(ctx)
}
