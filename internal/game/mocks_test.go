package game

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/typeduel/typing-duel-backend/internal/wire"
)

type MockConn struct {
	mock.Mock
}

func (m *MockConn) Send(ctx context.Context, msg wire.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockConn) Receive(ctx context.Context, timeout time.Duration) (wire.Message, error) {
	args := m.Called(ctx, timeout)
	return args.Get(0).(wire.Message), args.Error(1)
}

func (m *MockConn) IsOpen() bool {
	args := m.Called()
	return args.Bool(0)
}

func kindIs(kind wire.Kind) interface{} {
	return mock.MatchedBy(func(msg wire.Message) bool { return msg.Kind == kind })
}
