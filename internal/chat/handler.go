package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/logger"
)

// MinBufferSize is the smallest message buffer a Handler accepts. Smaller
// sizes are raised to it; bufio enforces the same floor for line framing.
const MinBufferSize = 16

// cleanupTimeout bounds presence and relay calls made while a session closes.
const cleanupTimeout = 2 * time.Second

// Presence records which clients are online. Failures are logged, never fatal.
type Presence interface {
	Online(ctx context.Context, id, name string) error
	Offline(ctx context.Context, id string) error
}

// Options tune a Handler.
type Options struct {
	// BufferSize caps the bytes taken by one read, and so one message. It is
	// at least MinBufferSize.
	BufferSize int
	Framing    Framing
	RateLimit  RateLimit
	// IdleTimeout disconnects a client that sends nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration
	// WriteTimeout bounds each write to a destination during a broadcast.
	WriteTimeout time.Duration
}

// DefaultOptions returns the reference behaviour: 1024-byte chunk messages.
func DefaultOptions() Options {
	return Options{
		BufferSize: 1024,
		Framing:    FramingChunk,
		RateLimit: RateLimit{
			Burst:          20,
			RefillInterval: time.Second,
		},
		WriteTimeout: 10 * time.Second,
	}
}

// Handler runs the per-connection session: read the name, join, relay
// messages, leave.
type Handler struct {
	registry    *Registry
	broadcaster *Broadcaster
	presence    Presence
	opts        Options
	log         *zap.Logger

	mu      sync.Mutex
	closing bool
	active  int
	drained chan struct{}
}

// NewHandler returns a Handler that registers clients in reg and broadcasts
// through b.
func NewHandler(reg *Registry, b *Broadcaster, opts Options, log *zap.Logger) *Handler {
	def := DefaultOptions()
	switch {
	case opts.BufferSize <= 0:
		opts.BufferSize = def.BufferSize
	case opts.BufferSize < MinBufferSize:
		opts.BufferSize = MinBufferSize
	}
	if opts.Framing == "" {
		opts.Framing = def.Framing
	}
	return &Handler{
		registry:    reg,
		broadcaster: b,
		opts:        opts,
		log:         logger.OrNop(log),
	}
}

// SetPresence attaches a presence directory. Call it before any session runs.
func (h *Handler) SetPresence(p Presence) {
	h.presence = p
}

// Go serves stream on a new goroutine tracked by Wait. Once Wait has been
// called the stream is closed instead of served.
func (h *Handler) Go(ctx context.Context, stream Stream, transport string) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		if err := stream.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Debug("error closing late connection", zap.Error(err))
		}
		return
	}
	h.active++
	h.mu.Unlock()

	go func() {
		defer h.sessionDone()
		h.Serve(ctx, stream, transport)
	}()
}

func (h *Handler) sessionDone() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active--
	if h.active == 0 && h.drained != nil {
		close(h.drained)
		h.drained = nil
	}
}

// Wait stops Go from starting new sessions and blocks until the running ones
// have finished, or returns context.DeadlineExceeded after timeout.
func (h *Handler) Wait(timeout time.Duration) error {
	h.mu.Lock()
	h.closing = true
	if h.active == 0 {
		h.mu.Unlock()
		return nil
	}
	if h.drained == nil {
		h.drained = make(chan struct{})
	}
	drained := h.drained
	h.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-drained:
		return nil
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

// Serve runs one session to completion on the calling goroutine. It never
// panics and never returns an error: every per-connection failure ends the
// session and nothing else. Cancelling ctx closes the stream, which unblocks
// any pending read.
func (h *Handler) Serve(ctx context.Context, stream Stream, transport string) {
	c := newClient(stream, transport, h.opts.WriteTimeout)
	log := h.log.With(
		zap.String("client", c.id),
		zap.String("addr", c.addr),
		zap.String("transport", transport))
	sessionsTotal.WithLabelValues(transport).Inc()

	defer func() {
		if r := recover(); r != nil {
			log.Error("session panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	defer c.close(log)

	stop := context.AfterFunc(ctx, func() { c.close(log) })
	defer stop()

	msgs := newMessageReader(stream, h.opts.Framing, h.opts.BufferSize)

	if err := c.armReadDeadline(h.opts.IdleTimeout); err != nil {
		log.Debug("setting read deadline failed", zap.Error(err))
		return
	}
	raw, err := msgs.next()
	if err != nil {
		h.logReadEnd(ctx, log, "name read failed", err)
		return
	}
	c.name = displayName(raw)
	log = log.With(zap.String("name", c.name))

	if err := h.registry.Add(c); err != nil {
		log.DPanic("client registered twice", zap.Error(err))
		return
	}
	connectedClients.WithLabelValues(c.transport).Inc()
	defer h.leave(ctx, c, log)

	h.announceJoin(ctx, c, log)
	h.relayMessages(ctx, c, msgs, log)
}

// announceJoin runs after the client is registered, so a failure here still
// ends in leave.
func (h *Handler) announceJoin(ctx context.Context, c *Client, log *zap.Logger) {
	announcement := joinAnnouncement(c.name)
	log.Info(string(announcement), zap.Int("clients", h.registry.Len()))
	h.broadcaster.Broadcast(ctx, h.opts.Framing.encode(announcement), c)

	if h.presence != nil {
		if err := h.presence.Online(ctx, c.id, c.name); err != nil {
			log.Warn("presence update failed", zap.Error(err))
		}
	}
}

// leave is the Closing state. It runs once per joined client, deferred by
// Serve, whatever ended the session.
func (h *Handler) leave(ctx context.Context, c *Client, log *zap.Logger) {
	if !h.registry.Remove(c) {
		return
	}
	connectedClients.WithLabelValues(c.transport).Dec()

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	announcement := leaveAnnouncement(c.name)
	log.Info(string(announcement), zap.Int("clients", h.registry.Len()))
	h.broadcaster.Broadcast(cleanupCtx, h.opts.Framing.encode(announcement), c)

	if h.presence != nil {
		if err := h.presence.Offline(cleanupCtx, c.id); err != nil {
			log.Warn("presence update failed", zap.Error(err))
		}
	}
}

func (h *Handler) relayMessages(ctx context.Context, c *Client, msgs messageReader, log *zap.Logger) {
	limit := newLimiter(h.opts.RateLimit)

	for {
		if err := c.armReadDeadline(h.opts.IdleTimeout); err != nil {
			log.Debug("setting read deadline failed", zap.Error(err))
			return
		}
		msg, err := msgs.next()
		if err != nil {
			h.logReadEnd(ctx, log, "read failed", err)
			return
		}

		if !limit.allow() {
			droppedTotal.Inc()
			log.Warn("rate limit exceeded; discarding message",
				zap.Int("burst", h.opts.RateLimit.Burst),
				zap.Duration("interval", h.opts.RateLimit.RefillInterval))
			continue
		}

		line := chatLine(c.name, msg)
		messagesTotal.Inc()
		log.Info(string(line))
		h.broadcaster.Broadcast(ctx, h.opts.Framing.encode(line), c)
	}
}

// logReadEnd reports why a read ended the session. Cancellation and ordinary
// disconnects are not errors.
func (h *Handler) logReadEnd(ctx context.Context, log *zap.Logger, msg string, err error) {
	switch {
	case ctx.Err() != nil:
		log.Debug("session cancelled", zap.NamedError("cause", err))
	case isExpectedCloseError(err):
		log.Info("client disconnected", zap.String("stage", msg))
	case isTimeout(err):
		log.Info("client idle timeout", zap.Duration("timeout", h.opts.IdleTimeout))
	default:
		log.Warn(msg, zap.Error(err))
	}
}
