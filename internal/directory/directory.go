package directory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/typeduel/typing-duel-backend/internal/game"
)

type Msg interface{ isDirMsg() }

// Create registers a new empty room. The caller admits the creator through
// Room.AddPlayer before Launch, keeping all network I/O out of the actor
// loop. RequestedKey may be empty; a colliding requested key gets a numeric
// counter suffix.
type Create struct {
	RequestedKey string
	Reply        chan CreateReply
}

// Launch starts a registered room's run loop; the key is removed
// automatically when the loop exits.
type Launch struct {
	Key string
}

// Get looks a room up by key. The reply is nil when the key is unknown.
type Get struct {
	Key   string
	Reply chan *game.Room
}

type Remove struct {
	Key string
}

type List struct {
	Reply chan []RoomInfo
}

type Shutdown struct{}

func (Create) isDirMsg()   {}
func (Launch) isDirMsg()   {}
func (Get) isDirMsg()      {}
func (Remove) isDirMsg()   {}
func (List) isDirMsg()     {}
func (Shutdown) isDirMsg() {}

type CreateReply struct {
	Room *game.Room
	Key  string
}

type RoomInfo struct {
	RoomKey     string `json:"roomKey"`
	PlayerCount int    `json:"playerCount"`
}

// Directory owns the room-by-key map. It runs as a single goroutine fed by
// a typed inbox; the map is never handed out, and it performs no network
// I/O of its own.
type Directory struct {
	inbox  chan Msg
	rooms  map[string]*game.Room
	opts   game.Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, opts game.Options, log *zap.Logger) *Directory {
	ctx, cancel := context.WithCancel(parent)
	d := &Directory{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]*game.Room),
		opts:   opts,
		log:    log.Named("directory"),
		ctx:    ctx,
		cancel: cancel,
	}
	go d.loop()
	return d
}

func (d *Directory) Inbox() chan<- Msg { return d.inbox }

func (d *Directory) loop() {
	for {
		select {
		case <-d.ctx.Done():
			d.cancel()
			return

		case m := <-d.inbox:
			switch msg := m.(type) {
			case Create:
				key := d.assignKey(msg.RequestedKey)
				room := game.NewRoom(d.ctx, key, d.opts, d.log)
				d.rooms[key] = room
				d.log.Info("room created", zap.String("room", key))
				msg.Reply <- CreateReply{Room: room, Key: key}

			case Launch:
				room := d.rooms[msg.Key]
				if room == nil {
					break
				}
				go func(key string) {
					room.Run()
					d.inbox <- Remove{Key: key}
				}(msg.Key)

			case Get:
				msg.Reply <- d.rooms[msg.Key]

			case Remove:
				if _, ok := d.rooms[msg.Key]; ok {
					delete(d.rooms, msg.Key)
					d.log.Info("room removed", zap.String("room", msg.Key))
				}

			case List:
				infos := make([]RoomInfo, 0, len(d.rooms))
				for key, room := range d.rooms {
					infos = append(infos, RoomInfo{RoomKey: key, PlayerCount: room.PlayerCount()})
				}
				msg.Reply <- infos

			case Shutdown:
				clear(d.rooms)
				d.cancel()
				return
			}
		}
	}
}

// assignKey honors a requested key when free, deduplicates collisions with
// a counter suffix, and otherwise generates a fresh random key.
func (d *Directory) assignKey(requested string) string {
	if requested != "" {
		if _, taken := d.rooms[requested]; !taken {
			return requested
		}
		for n := 2; ; n++ {
			key := fmt.Sprintf("%s-%d", requested, n)
			if _, taken := d.rooms[key]; !taken {
				return key
			}
		}
	}
	for {
		key, err := generateKey()
		if err != nil {
			d.log.Error("key generation failed", zap.Error(err))
			continue
		}
		if _, taken := d.rooms[key]; !taken {
			return key
		}
	}
}

func generateKey() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	key := make([]byte, 6)
	for i := range key {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		key[i] = charset[num.Int64()]
	}
	return string(key), nil
}
