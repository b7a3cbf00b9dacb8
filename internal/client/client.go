// Package client implements the interactive console side of the chat: it
// sends a display name, prints whatever the server relays and sends each line
// typed by the user.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// Prompt is printed after every received message.
	Prompt = "> "
	// DisconnectedNotice is printed when the server hangs up or the
	// connection fails. A local exit prints nothing.
	DisconnectedNotice = "Disconnected from server."

	readBufferSize = 1024
)

// Run sends name over conn and then relays between the console and the
// server. A blank input line, the end of in, or cancelling ctx ends the
// session; so does the server going away. Run closes conn before returning.
func Run(ctx context.Context, conn net.Conn, name string, in io.Reader, out io.Writer) error {
	defer conn.Close()

	if _, err := conn.Write([]byte(name)); err != nil {
		return errors.Wrap(err, "send name")
	}

	recvCtx, stopReceiving := context.WithCancel(ctx)
	defer stopReceiving()
	stop := context.AfterFunc(recvCtx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	received := make(chan struct{})
	go func() {
		defer close(received)
		receive(recvCtx, conn, out)
	}()

	lines := make(chan string)
	go scanLines(in, lines)

	err := send(ctx, conn, lines, received)
	stopReceiving()
	<-received
	return err
}

func send(ctx context.Context, conn net.Conn, lines <-chan string, received <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-received:
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "" {
				return nil
			}
			if _, err := conn.Write([]byte(line)); err != nil {
				return errors.Wrap(err, "send message")
			}
		}
	}
}

// scanLines feeds lines until in is exhausted. It may outlive Run while
// blocked on a console read.
func scanLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func receive(ctx context.Context, conn net.Conn, out io.Writer) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			fmt.Fprintf(out, "\n%s\n%s", buf[:n], Prompt)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintln(out, DisconnectedNotice)
		return
	}
}
