package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/typeduel/typing-duel-backend/internal/game"
	"github.com/typeduel/typing-duel-backend/internal/wire"
)

// quietConn answers pings so a lone resident survives the waiting-room
// poll; deadConn never answers, so its room drains and self-removes.
type quietConn struct{ pong chan wire.Message }

func newQuietConn() *quietConn {
	return &quietConn{pong: make(chan wire.Message, 16)}
}

func (c *quietConn) Send(ctx context.Context, msg wire.Message) error {
	if msg.Kind == wire.KindPing {
		c.pong <- wire.Message{Kind: wire.KindPong}
	}
	return nil
}

func (c *quietConn) Receive(ctx context.Context, timeout time.Duration) (wire.Message, error) {
	select {
	case m := <-c.pong:
		return m, nil
	case <-ctx.Done():
		return wire.Message{}, ctx.Err()
	}
}

func (c *quietConn) IsOpen() bool { return true }

type deadConn struct{}

func (deadConn) Send(ctx context.Context, msg wire.Message) error { return nil }
func (deadConn) Receive(ctx context.Context, timeout time.Duration) (wire.Message, error) {
	return wire.Message{}, game.ErrConnTimeout
}
func (deadConn) IsOpen() bool { return true }

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, game.Options{PingInterval: 10 * time.Millisecond, PongWait: 50 * time.Millisecond}, zap.NewNop())
}

func create(t *testing.T, d *Directory, requested string) CreateReply {
	t.Helper()
	reply := make(chan CreateReply, 1)
	d.Inbox() <- Create{RequestedKey: requested, Reply: reply}
	select {
	case rep := <-reply:
		return rep
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for create reply")
		return CreateReply{}
	}
}

func get(t *testing.T, d *Directory, key string) *game.Room {
	t.Helper()
	reply := make(chan *game.Room, 1)
	d.Inbox() <- Get{Key: key, Reply: reply}
	select {
	case room := <-reply:
		return room
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for get reply")
		return nil
	}
}

func list(t *testing.T, d *Directory) []RoomInfo {
	t.Helper()
	reply := make(chan []RoomInfo, 1)
	d.Inbox() <- List{Reply: reply}
	select {
	case infos := <-reply:
		return infos
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for list reply")
		return nil
	}
}

func TestCreateHonorsRequestedKey(t *testing.T) {
	d := testDirectory(t)

	rep := create(t, d, "duel")
	require.Equal(t, "duel", rep.Key)
	require.NotNil(t, rep.Room)
	require.Same(t, rep.Room, get(t, d, "duel"))
}

func TestCreateDeduplicatesWithCounterSuffix(t *testing.T) {
	d := testDirectory(t)

	require.Equal(t, "duel", create(t, d, "duel").Key)
	require.Equal(t, "duel-2", create(t, d, "duel").Key)
	require.Equal(t, "duel-3", create(t, d, "duel").Key)
}

func TestCreateGeneratesUniqueKeys(t *testing.T) {
	d := testDirectory(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rep := create(t, d, "")
		require.Len(t, rep.Key, 6)
		require.False(t, seen[rep.Key], "key %q assigned twice", rep.Key)
		seen[rep.Key] = true
	}
}

func TestGetUnknownKeyIsNil(t *testing.T) {
	d := testDirectory(t)
	require.Nil(t, get(t, d, "nope"))
}

func TestListReportsPlayerCounts(t *testing.T) {
	d := testDirectory(t)

	rep := create(t, d, "busy")
	require.NoError(t, rep.Room.AddPlayer(context.Background(), game.NewPlayer("alice", newQuietConn())))
	create(t, d, "idle")

	infos := list(t, d)
	require.Len(t, infos, 2)
	counts := map[string]int{}
	for _, info := range infos {
		counts[info.RoomKey] = info.PlayerCount
	}
	require.Equal(t, 1, counts["busy"])
	require.Equal(t, 0, counts["idle"])
}

// awaitRemoved polls until the key disappears, so tests never hang on a
// removal that raced the assertion.
func awaitRemoved(t *testing.T, d *Directory, key string, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if get(t, d, key) == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %q was never removed", key)
}

func TestRemoveDropsTheKey(t *testing.T) {
	d := testDirectory(t)

	create(t, d, "fleeting")
	d.Inbox() <- Remove{Key: "fleeting"}
	awaitRemoved(t, d, "fleeting", time.Second)
}

func TestLaunchedRoomSelfRemovesWhenItDrains(t *testing.T) {
	d := testDirectory(t)

	rep := create(t, d, "doomed")
	// a resident that never answers pings drains the room immediately
	require.NoError(t, rep.Room.AddPlayer(context.Background(), game.NewPlayer("alice", deadConn{})))
	d.Inbox() <- Launch{Key: "doomed"}

	awaitRemoved(t, d, "doomed", 2*time.Second)
}
