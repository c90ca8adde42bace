package graphcache

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/riffus/hyperswitch/audit"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// DefaultChannel carries invalidation messages between instances. A message
// is either an identity key ("merchant/connector/version") or a merchant
// wildcard ("merchant/*") that drops every entry for that merchant.
const DefaultChannel = "eligibility:graph:invalidate"

const merchantWildcard = "/*"

// Invalidator publishes invalidation messages so every instance drops its
// copy, not just the one that observed the configuration change.
type Invalidator struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// InvalidatorOption configures an Invalidator.
type InvalidatorOption func(*Invalidator)

// WithInvalidatorChannel overrides the pub/sub channel.
func WithInvalidatorChannel(name string) InvalidatorOption {
	return func(i *Invalidator) {
		if name != "" {
			i.channel = name
		}
	}
}

// WithInvalidatorLogger attaches a logger.
func WithInvalidatorLogger(l *slog.Logger) InvalidatorOption {
	return func(i *Invalidator) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewInvalidator returns a publisher for cache invalidation messages.
func NewInvalidator(client *redis.Client, opts ...InvalidatorOption) (*Invalidator, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "graphcache: nil redis client")
	}
	i := &Invalidator{
		client:  client,
		channel: DefaultChannel,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Invalidate publishes a single-identity invalidation.
func (i *Invalidator) Invalidate(ctx context.Context, id ruleset.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return i.publish(ctx, id.Key())
}

// InvalidateMerchant publishes a merchant-wide invalidation covering every
// connector and version.
func (i *Invalidator) InvalidateMerchant(ctx context.Context, merchantID string) error {
	if merchantID == "" || strings.ContainsRune(merchantID, '/') {
		return dErrors.Newf(dErrors.CodeInvalidInput, "graphcache: invalid merchant id %q", merchantID)
	}
	return i.publish(ctx, merchantID+merchantWildcard)
}

func (i *Invalidator) publish(ctx context.Context, payload string) error {
	if err := i.client.Publish(ctx, i.channel, payload).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "graphcache: publish invalidation")
	}
	i.logger.DebugContext(ctx, "invalidation published", "channel", i.channel, "key", payload)
	return nil
}

// Listener applies invalidation messages from the channel to a local cache.
type Listener struct {
	client  *redis.Client
	cache   *Cache
	channel string
	logger  *slog.Logger
	audit   audit.Emitter
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenerChannel overrides the pub/sub channel.
func WithListenerChannel(name string) ListenerOption {
	return func(l *Listener) {
		if name != "" {
			l.channel = name
		}
	}
}

// WithListenerLogger attaches a logger.
func WithListenerLogger(lg *slog.Logger) ListenerOption {
	return func(l *Listener) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithListenerAudit routes applied invalidations to the audit trail.
func WithListenerAudit(e audit.Emitter) ListenerOption {
	return func(l *Listener) { l.audit = e }
}

// NewListener returns a listener that drops cache entries named by messages
// on the invalidation channel.
func NewListener(client *redis.Client, cache *Cache, opts ...ListenerOption) (*Listener, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "graphcache: nil redis client")
	}
	if cache == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "graphcache: nil cache")
	}
	l := &Listener{
		client:  client,
		cache:   cache,
		channel: DefaultChannel,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run subscribes and applies messages until the context is canceled.
// Malformed messages are logged and skipped, never fatal: a bad producer
// must not take the listener down with it.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	// Confirm the subscription before entering the loop so a dead broker
	// surfaces as an error instead of a silent no-op listener.
	if _, err := sub.Receive(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "graphcache: subscribe")
	}

	ch := sub.Channel()
	l.logger.DebugContext(ctx, "invalidation listener started", "channel", l.channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return dErrors.New(dErrors.CodeInternal, "graphcache: subscription closed")
			}
			l.apply(ctx, msg.Payload)
		}
	}
}

func (l *Listener) apply(ctx context.Context, payload string) {
	if merchant, ok := strings.CutSuffix(payload, merchantWildcard); ok {
		if merchant == "" || strings.ContainsRune(merchant, '/') {
			l.logger.WarnContext(ctx, "invalidation message skipped", "payload", payload)
			return
		}
		n := l.cache.InvalidateMerchant(merchant)
		audit.Log(ctx, l.logger, l.audit, audit.ActionGraphInvalidated,
			"merchant_id", merchant,
			"entries", n,
		)
		return
	}
	id, err := ruleset.ParseKey(payload)
	if err != nil {
		l.logger.WarnContext(ctx, "invalidation message skipped", "payload", payload, "error", err)
		return
	}
	dropped := l.cache.Invalidate(id)
	audit.Log(ctx, l.logger, l.audit, audit.ActionGraphInvalidated,
		"merchant_id", id.MerchantID,
		"connector_id", id.ConnectorID,
		"version", id.Version,
		"dropped", dropped,
	)
}
