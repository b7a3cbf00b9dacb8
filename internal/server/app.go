package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/gochat/internal/chat"
	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/presence"
	"github.com/Tyrowin/gochat/internal/relay"
)

// Run binds the configured addresses and serves until ctx is cancelled or a
// listener fails.
func Run(ctx context.Context, cfg *Config, log *zap.Logger) error {
	c := cfg.Sanitized()

	chatLn, err := chat.Listen(ctx, c.Port)
	if err != nil {
		return err
	}

	var httpLn net.Listener
	if c.HTTPPort != "" {
		var lc net.ListenConfig
		httpLn, err = lc.Listen(ctx, "tcp", c.HTTPPort)
		if err != nil {
			_ = chatLn.Close()
			return errors.Wrapf(err, "listen on %s", c.HTTPPort)
		}
	}

	return Serve(ctx, &c, chatLn, httpLn, log)
}

// Serve runs the chat on chatLn and, when httpLn is not nil, the HTTP surface
// on httpLn. It returns nil after ctx is cancelled and every session has
// ended or the shutdown timeout has passed.
func Serve(ctx context.Context, cfg *Config, chatLn, httpLn net.Listener, log *zap.Logger) error {
	log = logger.OrNop(log)
	c := cfg.Sanitized()

	started := false
	defer func() {
		if started {
			return
		}
		_ = chatLn.Close()
		if httpLn != nil {
			_ = httpLn.Close()
		}
	}()

	opts, err := c.ChatOptions()
	if err != nil {
		return err
	}

	reg := chat.NewRegistry()
	b := chat.NewBroadcaster(reg, log.Named("broadcast"))
	h := chat.NewHandler(reg, b, opts, log.Named("session"))

	if c.NATS.URL != "" {
		r, err := relay.Dial(c.NATS.URL, c.NATS.Subject, c.NodeID, log.Named("relay"))
		if err != nil {
			return err
		}
		defer func() {
			if err := r.Close(); err != nil {
				log.Warn("closing relay", zap.Error(err))
			}
		}()
		if err := r.Subscribe(func(payload []byte) { b.Deliver(payload, nil) }); err != nil {
			return err
		}
		b.SetRelay(r)
	}

	if c.Redis.Addr != "" {
		p, err := presence.NewRedis(ctx, presence.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		}, c.NodeID)
		if err != nil {
			return err
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Warn("closing presence", zap.Error(err))
			}
		}()
		h.SetPresence(p)
	}

	started = true
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return chat.NewServer(h, log.Named("listener")).Serve(gctx, chatLn)
	})

	if httpLn != nil {
		httpLog := log.Named("http")
		gw := NewGateway(gctx, reg, h, c.AllowedOrigins, httpLog)
		srv := CreateServer(httpLn.Addr().String(), SetupRoutes(gw))

		g.Go(func() error {
			return StartServer(srv, httpLn, httpLog)
		})
		g.Go(func() error {
			<-gctx.Done()
			return ShutdownServer(srv, c.ShutdownTimeout, httpLog)
		})
	}

	err = g.Wait()

	if werr := h.Wait(c.ShutdownTimeout); werr != nil {
		log.Warn("sessions still running after shutdown timeout", zap.Int("clients", reg.Len()))
	}
	return err
}
