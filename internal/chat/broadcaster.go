package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/logger"
)

// Relay carries broadcasts to other server instances.
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
}

// Broadcaster writes a message to every registered client except its origin.
// A failed write affects only that destination.
type Broadcaster struct {
	registry *Registry
	relay    Relay
	log      *zap.Logger
}

// NewBroadcaster returns a Broadcaster over reg.
func NewBroadcaster(reg *Registry, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		registry: reg,
		log:      logger.OrNop(log),
	}
}

// SetRelay attaches a cross-instance relay. Call it before any handler runs.
func (b *Broadcaster) SetRelay(r Relay) {
	b.relay = r
}

// Broadcast delivers payload locally and then hands it to the relay, if any.
// It returns the number of local clients the payload was written to.
func (b *Broadcaster) Broadcast(ctx context.Context, payload []byte, origin *Client) int {
	delivered := b.Deliver(payload, origin)

	if b.relay != nil {
		if err := b.relay.Publish(ctx, payload); err != nil {
			b.log.Warn("relay publish failed", zap.Error(err))
		}
	}
	return delivered
}

// Deliver writes payload to every client in a registry snapshot except origin.
// origin may be nil, as it is for messages arriving from the relay.
func (b *Broadcaster) Deliver(payload []byte, origin *Client) int {
	delivered := 0
	for _, c := range b.registry.Snapshot() {
		if c == origin {
			continue
		}
		if b.safeSend(c, payload) {
			delivered++
		}
	}
	deliveriesTotal.Add(float64(delivered))
	return delivered
}

// safeSend writes payload to one destination. A failing or panicking
// destination is counted and logged; it never affects the others or the sender.
func (b *Broadcaster) safeSend(c *Client, payload []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			deliveryFailuresTotal.Inc()
			b.log.Debug("delivery panicked",
				zap.String("client", c.id),
				zap.String("addr", c.addr),
				zap.Any("panic", r))
			ok = false
		}
	}()

	if err := c.write(payload); err != nil {
		deliveryFailuresTotal.Inc()
		b.log.Debug("delivery failed",
			zap.String("client", c.id),
			zap.String("addr", c.addr),
			zap.Error(err))
		return false
	}
	return true
}
