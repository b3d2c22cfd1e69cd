package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/typeduel/typing-duel-backend/internal/directory"
	"github.com/typeduel/typing-duel-backend/internal/game"
)

// CreateHandler upgrades the connection, registers a room with the caller
// as its creator, and parks until the room lets go of the player. The
// created notification goes out during admission, before the run loop can
// say anything else on this connection.
func CreateHandler(d *directory.Directory, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requested := r.URL.Query().Get("roomKey")
		name := playerName(r, "player-1")

		sock, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(sock)
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		reply := make(chan directory.CreateReply, 1)
		d.Inbox() <- directory.Create{RequestedKey: requested, Reply: reply}
		rep := <-reply

		player := game.NewPlayer(name, conn)
		if err := rep.Room.AddPlayer(r.Context(), player); err != nil {
			log.Warn("creator admission failed", zap.String("room", rep.Key), zap.Error(err))
			d.Inbox() <- directory.Remove{Key: rep.Key}
			return
		}
		d.Inbox() <- directory.Launch{Key: rep.Key}

		park(r.Context(), player, rep.Room)
	}
}

// JoinHandler upgrades the connection and admits the caller into an
// existing room. Unknown keys fail before the upgrade; a full room closes
// the fresh socket with a policy violation.
func JoinHandler(d *directory.Directory, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("roomKey")
		if key == "" {
			http.Error(w, "missing roomKey", http.StatusBadRequest)
			return
		}

		reply := make(chan *game.Room, 1)
		d.Inbox() <- directory.Get{Key: key, Reply: reply}
		room := <-reply
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		sock, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(sock)
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		player := game.NewPlayer(playerName(r, "player-2"), conn)
		if err := room.AddPlayer(r.Context(), player); err != nil {
			if errors.Is(err, game.ErrRoomFull) {
				conn.Close(websocket.StatusPolicyViolation, "room full")
				return
			}
			log.Warn("join admission failed", zap.String("room", key), zap.Error(err))
			return
		}

		park(r.Context(), player, room)
	}
}

// park keeps the handler (and with it the websocket) alive until the room
// removed the player, the room exited, or the client went away.
func park(ctx context.Context, player *game.Player, room *game.Room) {
	select {
	case <-player.Gone():
	case <-room.Done():
	case <-ctx.Done():
	}
}

func playerName(r *http.Request, fallback string) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	return fallback
}
