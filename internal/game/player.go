package game

import "sync"

const StartingHealth = 100

// Player is owned by exactly one Room for its lifetime. Health and name are
// only ever touched by the owning Room's goroutine; the gone channel is how
// the HTTP handler parked on the websocket learns the Room let go of it.
type Player struct {
	Name   string
	Health int
	Conn   Conn

	goneOnce sync.Once
	gone     chan struct{}
}

func NewPlayer(name string, conn Conn) *Player {
	return &Player{
		Name:   name,
		Health: StartingHealth,
		Conn:   conn,
		gone:   make(chan struct{}),
	}
}

// Gone is closed once the Room has removed this player. No further
// interaction with the player happens after that.
func (p *Player) Gone() <-chan struct{} { return p.gone }

func (p *Player) markGone() {
	p.goneOnce.Do(func() { close(p.gone) })
}
