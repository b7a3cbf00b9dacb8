package chat

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Framing selects how inbound bytes are split into messages.
type Framing string

const (
	// FramingChunk treats whatever one read returns as one message, up to the
	// buffer size. Long messages are split and quick successive writes may
	// arrive merged. Nothing is appended to outbound messages.
	FramingChunk Framing = "chunk"
	// FramingLine splits input on '\n' and terminates every outbound message
	// with '\n'. Lines longer than the buffer size are split.
	FramingLine Framing = "line"
)

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

// ParseFraming converts a configuration value into a Framing.
func ParseFraming(s string) (Framing, error) {
	switch Framing(strings.ToLower(strings.TrimSpace(s))) {
	case "", FramingChunk:
		return FramingChunk, nil
	case FramingLine:
		return FramingLine, nil
	}
	return "", errors.Errorf("unknown framing %q", s)
}

// encode prepares an outbound message for the wire.
func (f Framing) encode(msg []byte) []byte {
	if f != FramingLine {
		return msg
	}
	out := make([]byte, 0, len(msg)+1)
	out = append(out, msg...)
	return append(out, '\n')
}

// messageReader yields inbound messages. The returned slice is only valid
// until the next call.
type messageReader interface {
	next() ([]byte, error)
}

func newMessageReader(r io.Reader, f Framing, size int) messageReader {
	if f == FramingLine {
		return &lineReader{br: bufio.NewReaderSize(r, size)}
	}
	return &chunkReader{r: r, buf: make([]byte, size)}
}

type chunkReader struct {
	r   io.Reader
	buf []byte
	err error
}

func (cr *chunkReader) next() ([]byte, error) {
	if cr.err != nil {
		return nil, cr.err
	}
	for i := 0; i < maxEmptyReads; i++ {
		n, err := cr.r.Read(cr.buf)
		if err != nil {
			cr.err = err
		}
		if n > 0 {
			return cr.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	cr.err = io.ErrNoProgress
	return nil, cr.err
}

type lineReader struct {
	br  *bufio.Reader
	err error
}

func (lr *lineReader) next() ([]byte, error) {
	for lr.err == nil {
		line, err := lr.br.ReadSlice('\n')
		if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
			lr.err = err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			return line, nil
		}
	}
	return nil, lr.err
}
