package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/typeduel/typing-duel-backend/internal/directory"
)

// ListRooms returns the directory snapshot for the lobby display.
func ListRooms(d *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []directory.RoomInfo, 1)
		d.Inbox() <- directory.List{Reply: reply}
		rooms := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rooms)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
