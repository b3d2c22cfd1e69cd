package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/typeduel/typing-duel-backend/internal/game"
	"github.com/typeduel/typing-duel-backend/internal/wire"
)

const defaultWriteTimeout = 5 * time.Second

// Conn adapts a websocket to game.Conn. A single pump goroutine owns all
// reads, so a Receive abandoned by timeout or cancellation leaves the
// socket intact for the next caller.
type Conn struct {
	c            *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	open    atomic.Bool

	inbox   chan wire.Message
	readErr error // set before inbox closes

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(c *websocket.Conn) *Conn {
	conn := &Conn{
		c:            c,
		writeTimeout: defaultWriteTimeout,
		inbox:        make(chan wire.Message, 16),
		closed:       make(chan struct{}),
	}
	conn.open.Store(true)
	go conn.readLoop()
	return conn
}

// readLoop pumps inbound frames until the socket fails or a frame fails to
// decode; a decode failure closes the stream just like a disconnect.
func (c *Conn) readLoop() {
	for {
		_, data, err := c.c.Read(context.Background())
		if err != nil {
			c.readErr = mapReadError(err)
			c.open.Store(false)
			close(c.inbox)
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			c.readErr = err
			c.open.Store(false)
			close(c.inbox)
			return
		}
		select {
		case c.inbox <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) Send(ctx context.Context, msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.c.Write(wctx, websocket.MessageText, data); err != nil {
		c.open.Store(false)
		return fmt.Errorf("%w: %v", game.ErrConnClosed, err)
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context, timeout time.Duration) (wire.Message, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case msg, ok := <-c.inbox:
		if !ok {
			return wire.Message{}, c.readErr
		}
		return msg, nil
	case <-deadline:
		return wire.Message{}, game.ErrConnTimeout
	case <-ctx.Done():
		return wire.Message{}, fmt.Errorf("receive aborted: %w", ctx.Err())
	}
}

func (c *Conn) IsOpen() bool { return c.open.Load() }

// Close tears the socket down; the pump exits on its own.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() { close(c.closed) })
	c.open.Store(false)
	_ = c.c.Close(code, reason)
}

func mapReadError(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return game.ErrConnClosed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return game.ErrConnTimeout
	}
	return fmt.Errorf("%w: %v", game.ErrConnClosed, err)
}
