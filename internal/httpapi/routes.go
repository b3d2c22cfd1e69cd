package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/typeduel/typing-duel-backend/internal/directory"
	"github.com/typeduel/typing-duel-backend/internal/ws"
)

func SetupRoutes(d *directory.Directory, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/createRoom", ws.CreateHandler(d, log))
	r.Get("/joinRoom", ws.JoinHandler(d, log))
	r.Get("/getRooms", ListRooms(d))
	r.Get("/healthz", Healthz)
	return r
}
