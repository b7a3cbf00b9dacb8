package chat

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"
)

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

// recordingStream collects writes and optionally fails them.
type recordingStream struct {
	mu            sync.Mutex
	addr          string
	written       bytes.Buffer
	writes        int
	writeErr      error
	writePanic    string
	closed        bool
	writeDeadline time.Time
}

func newRecordingStream(addr string) *recordingStream {
	return &recordingStream{addr: addr}
}

func (s *recordingStream) Read([]byte) (int, error) { return 0, io.EOF }

func (s *recordingStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writePanic != "" {
		panic(s.writePanic)
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writes++
	return s.written.Write(p)
}

func (s *recordingStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingStream) RemoteAddr() net.Addr { return fakeAddr(s.addr) }

func (s *recordingStream) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeDeadline = t
	return nil
}

func (s *recordingStream) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written.String()
}

func (s *recordingStream) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// scriptedStream returns one scripted step per Read; a nil step panics.
type scriptedStream struct {
	recordingStream
	steps []func(p []byte) (int, error)
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	if len(s.steps) == 0 {
		return 0, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step == nil {
		panic("scripted read failure")
	}
	return step(p)
}

func readData(data string) func(p []byte) (int, error) {
	return func(p []byte) (int, error) {
		return copy(p, data), nil
	}
}

type fakeRelay struct {
	mu        sync.Mutex
	published [][]byte
	err       error
}

func (r *fakeRelay) Publish(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, append([]byte(nil), payload...))
	return r.err
}

func (r *fakeRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]string
	events []string
	err    error
	// panicOnline makes Online panic after recording the event.
	panicOnline bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[string]string)}
}

func (p *fakePresence) Online(_ context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "online:"+name)
	p.online[id] = name
	if p.panicOnline {
		panic("presence backend torn down")
	}
	return p.err
}

func (p *fakePresence) Offline(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "offline:"+p.online[id])
	delete(p.online, id)
	return p.err
}

func (p *fakePresence) snapshot() (map[string]string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	online := make(map[string]string, len(p.online))
	for k, v := range p.online {
		online[k] = v
	}
	return online, append([]string(nil), p.events...)
}
