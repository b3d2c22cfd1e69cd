package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/typeduel/typing-duel-backend/internal/wire"
)

type scriptStep struct {
	msg wire.Message
	err error
}

// scriptConn is a Conn fed by the test: inbound messages and failures are
// queued with push/pushErr, outbound traffic lands on the sent channel.
// Pings are answered automatically so the waiting-room poll stays quiet
// unless a test opts out.
type scriptConn struct {
	script   chan scriptStep
	sent     chan wire.Message
	autoPong bool

	mu        sync.Mutex
	open      bool
	stickyErr error
	sendErr   error
}

func newScriptConn() *scriptConn {
	return &scriptConn{
		script:   make(chan scriptStep, 64),
		sent:     make(chan wire.Message, 256),
		autoPong: true,
		open:     true,
	}
}

func (c *scriptConn) push(msg wire.Message) { c.script <- scriptStep{msg: msg} }
func (c *scriptConn) pushErr(err error)     { c.script <- scriptStep{err: err} }

func (c *scriptConn) Send(ctx context.Context, msg wire.Message) error {
	c.mu.Lock()
	err := c.sendErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.sent <- msg
	if msg.Kind == wire.KindPing && c.autoPong {
		c.push(wire.Message{Kind: wire.KindPong})
	}
	return nil
}

func (c *scriptConn) Receive(ctx context.Context, timeout time.Duration) (wire.Message, error) {
	c.mu.Lock()
	sticky := c.stickyErr
	c.mu.Unlock()
	if sticky != nil {
		return wire.Message{}, sticky
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case step := <-c.script:
		if step.err != nil {
			c.mu.Lock()
			c.stickyErr = step.err
			c.open = false
			c.mu.Unlock()
			return wire.Message{}, step.err
		}
		return step.msg, nil
	case <-deadline:
		return wire.Message{}, ErrConnTimeout
	case <-ctx.Done():
		return wire.Message{}, fmt.Errorf("receive aborted: %w", ctx.Err())
	}
}

func (c *scriptConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// awaitKind drains outbound traffic until the wanted kind shows up, so
// tests never hang on an assertion.
func awaitKind(t *testing.T, c *scriptConn, kind wire.Kind) wire.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-c.sent:
			if m.Kind == kind {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", kind)
			return wire.Message{}
		}
	}
}

// drainSent returns everything sent so far without blocking.
func drainSent(c *scriptConn) []wire.Message {
	var msgs []wire.Message
	for {
		select {
		case m := <-c.sent:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func f64Ptr(f float64) *float64 { return &f }

func countKind(msgs []wire.Message, kind wire.Kind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func awaitDone(t *testing.T, room *Room) {
	t.Helper()
	select {
	case <-room.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for room to shut down")
	}
}
