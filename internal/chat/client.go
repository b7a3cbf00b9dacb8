package chat

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport names used in logs, metrics and the clients listing.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Stream is an open bidirectional byte stream to one peer. net.Conn satisfies it.
type Stream interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Client is one connected peer. The stream is owned by the handler serving it;
// the registry and broadcaster only hold references for writing.
type Client struct {
	id           string
	stream       Stream
	addr         string
	transport    string
	name         string
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func newClient(stream Stream, transport string, writeTimeout time.Duration) *Client {
	addr := ""
	if ra := stream.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Client{
		id:           uuid.NewString(),
		stream:       stream,
		addr:         addr,
		transport:    transport,
		writeTimeout: writeTimeout,
	}
}

// ID returns the identifier assigned when the connection was accepted.
func (c *Client) ID() string { return c.id }

// Name returns the display name. It is empty until the name message is read.
func (c *Client) Name() string { return c.name }

// Addr returns the remote endpoint, for diagnostics.
func (c *Client) Addr() string { return c.addr }

// Transport returns the transport the client connected over.
func (c *Client) Transport() string { return c.transport }

// write sends one chunk to the peer, bounded by the write timeout when the
// stream supports deadlines.
func (c *Client) write(p []byte) error {
	if c.writeTimeout > 0 {
		if d, ok := c.stream.(writeDeadliner); ok {
			if err := d.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return err
			}
		}
	}
	_, err := c.stream.Write(p)
	return err
}

func (c *Client) armReadDeadline(timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	d, ok := c.stream.(readDeadliner)
	if !ok {
		return nil
	}
	return d.SetReadDeadline(time.Now().Add(timeout))
}

// close releases the stream. Safe to call from the cancellation hook and the
// handler's own exit path.
func (c *Client) close(log *zap.Logger) {
	c.closeOnce.Do(func() {
		if err := c.stream.Close(); err != nil && !isExpectedCloseError(err) {
			log.Debug("error closing connection", zap.Error(err))
		}
	})
}
