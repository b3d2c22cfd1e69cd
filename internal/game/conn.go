package game

import (
	"context"
	"errors"
	"time"

	"github.com/typeduel/typing-duel-backend/internal/wire"
)

var ErrConnClosed = errors.New("connection closed")
var ErrConnTimeout = errors.New("connection read timed out")
var ErrUnexpectedKind = errors.New("unexpected message kind")
var ErrRoomFull = errors.New("room is full")

// Conn is a single player's bidirectional message stream. A Room treats
// every Receive failure the same way (the player is removed), so the error
// taxonomy exists for logging, not for branching.
type Conn interface {
	Send(ctx context.Context, msg wire.Message) error

	// Receive blocks for the next inbound message. timeout <= 0 means no
	// read deadline; cancelling ctx aborts the read either way.
	Receive(ctx context.Context, timeout time.Duration) (wire.Message, error)

	IsOpen() bool
}
