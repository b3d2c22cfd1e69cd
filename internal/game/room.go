package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/typeduel/typing-duel-backend/internal/wire"
)

// Options tune a Room's timing and lifecycle policy.
type Options struct {
	// PingInterval is how often a lone resident is pinged while waiting.
	PingInterval time.Duration
	// PongWait bounds how long the resident has to answer a ping.
	PongWait time.Duration
	// TurnTimeout bounds every turn-critical read during a match.
	TurnTimeout time.Duration
	// Rematch keeps the room alive after a match ends: health resets and
	// the session returns to waiting. When false the room tears down after
	// one match.
	Rematch bool
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 500 * time.Millisecond
	}
	if o.PongWait <= 0 {
		o.PongWait = 2 * time.Second
	}
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = 20 * time.Second
	}
	return o
}

// coinFlip picks which slot attacks first. Stubbed in tests.
var coinFlip = func() int { return rand.Intn(2) }

type turnState int

const (
	turnNext turnState = iota // exchange resolved or forfeited, swap roles
	turnOver                  // somebody's health hit zero
	turnAbort                 // a player was removed mid-turn
)

// Room runs one session pairing at most two players. All player and role
// state is owned by the goroutine running Run; the only lock guards the
// player slots, which admission mutates from the outside.
type Room struct {
	Key string

	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	players []*Player

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRoom(parent context.Context, key string, opts Options, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	return &Room{
		Key:     key,
		opts:    opts.withDefaults(),
		log:     log.With(zap.String("room", key)),
		players: make([]*Player, 0, 2),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Done is closed when the run loop has exited; the room is never reused.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// AddPlayer admits a player into a free slot. The created/joined
// notification is sent before the slot becomes visible to the run loop, so
// it is always delivered ahead of any protocol message from this room.
func (r *Room) AddPlayer(ctx context.Context, p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) >= 2 {
		return ErrRoomFull
	}
	kind := wire.KindJoined
	if len(r.players) == 0 {
		kind = wire.KindCreated
	}
	if err := p.Conn.Send(ctx, wire.Message{Kind: kind, RoomKey: &r.Key}); err != nil {
		return err
	}
	r.players = append(r.players, p)
	r.log.Info("player admitted", zap.String("player", p.Name), zap.Int("slot", len(r.players)-1))
	return nil
}

func (r *Room) playerAt(i int) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.players) {
		return nil
	}
	return r.players[i]
}

func (r *Room) removePlayer(p *Player) {
	r.mu.Lock()
	for i, q := range r.players {
		if q == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	p.markGone()
	r.log.Info("player removed", zap.String("player", p.Name))
}

func (r *Room) removeAll() {
	r.mu.Lock()
	players := r.players
	r.players = nil
	r.mu.Unlock()
	for _, p := range players {
		p.markGone()
	}
}

// Run drives the session until no players remain (or, without rematch,
// until one match has been played). Call it exactly once.
func (r *Room) Run() {
	defer close(r.done)
	defer r.cancel()

	r.log.Info("room running")
	for {
		if r.ctx.Err() != nil {
			r.removeAll()
			return
		}
		if !r.waitForPlayers() {
			r.log.Info("no players remain, room shutting down")
			return
		}
		if !r.readyUp() {
			continue
		}
		r.playMatch()
		if !r.opts.Rematch {
			r.removeAll()
			r.log.Info("match over, room shutting down")
			return
		}
	}
}

// waitForPlayers polls until a second player joins, pinging the resident to
// make sure the connection is still alive. Returns false once the room is
// empty or cancelled.
func (r *Room) waitForPlayers() bool {
	if r.PlayerCount() == 1 {
		p := r.playerAt(0)
		if err := p.Conn.Send(r.ctx, wire.Message{Kind: wire.KindWaitingForOpponent}); err != nil {
			r.removePlayer(p)
		}
	}

	ticker := time.NewTicker(r.opts.PingInterval)
	defer ticker.Stop()
	for {
		switch r.PlayerCount() {
		case 0:
			return false
		case 2:
			return true
		}
		select {
		case <-r.ctx.Done():
			r.removeAll()
			return false
		case <-ticker.C:
			p := r.playerAt(0)
			if p == nil {
				continue
			}
			if !r.pingAlive(p) {
				r.log.Info("resident unresponsive", zap.String("player", p.Name))
				r.removePlayer(p)
			}
		}
	}
}

func (r *Room) pingAlive(p *Player) bool {
	if !p.Conn.IsOpen() {
		return false
	}
	if err := p.Conn.Send(r.ctx, wire.Message{Kind: wire.KindPing}); err != nil {
		return false
	}
	msg, err := p.Conn.Receive(r.ctx, r.opts.PongWait)
	if err != nil {
		return false
	}
	return msg.Kind == wire.KindPong
}

// readyUp prompts both players and waits for both acknowledgments
// concurrently; the first failure cancels the sibling wait. On failure the
// failing player is removed, the survivor is told the opponent left, and
// the session returns to waiting.
func (r *Room) readyUp() bool {
	pair := [2]*Player{r.playerAt(0), r.playerAt(1)}
	if pair[0] == nil || pair[1] == nil {
		return false
	}

	for _, p := range pair {
		if err := p.Conn.Send(r.ctx, wire.Message{Kind: wire.KindPromptReadyUp}); err != nil {
			r.removePlayer(p)
			r.notifySurvivor()
			return false
		}
	}

	g, gctx := errgroup.WithContext(r.ctx)
	var waitErr [2]error
	for i, p := range pair {
		i, p := i, p
		g.Go(func() error {
			msg, err := p.Conn.Receive(gctx, 0)
			if err != nil {
				waitErr[i] = err
				return err
			}
			if msg.Kind != wire.KindReadyUp {
				waitErr[i] = fmt.Errorf("%w: want readyUp, got %q", ErrUnexpectedKind, msg.Kind)
				return waitErr[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, p := range pair {
			// A read aborted by the sibling's failure is not this
			// player's fault; their connection is still good.
			if waitErr[i] != nil && !errors.Is(waitErr[i], context.Canceled) {
				r.log.Info("ready-up failed", zap.String("player", p.Name), zap.Error(waitErr[i]))
				r.removePlayer(p)
			}
		}
		r.notifySurvivor()
		return false
	}
	return true
}

func (r *Room) notifySurvivor() {
	if r.PlayerCount() != 1 {
		return
	}
	p := r.playerAt(0)
	if err := p.Conn.Send(r.ctx, wire.Message{Kind: wire.KindOpponentDisconnected}); err != nil {
		r.removePlayer(p)
	}
}

// playMatch runs one match to completion: a defeat, or a player removal.
// Afterwards a lone survivor is notified and health resets for a rematch.
func (r *Room) playMatch() {
	defer r.finishMatch()

	pair := [2]*Player{r.playerAt(0), r.playerAt(1)}
	if pair[0] == nil || pair[1] == nil {
		return
	}
	att, def := 0, 1
	if coinFlip() == 1 {
		att, def = def, att
	}
	r.log.Info("match starting", zap.String("attacker", pair[att].Name))

	for _, p := range pair {
		if err := p.Conn.Send(r.ctx, wire.Message{Kind: wire.KindStart, RoomKey: &r.Key}); err != nil {
			r.removePlayer(p)
			return
		}
	}

	for {
		switch r.playTurn(pair[att], pair[def]) {
		case turnNext:
			att, def = def, att
		case turnOver:
			r.endGame(pair[att], pair[def])
			return
		case turnAbort:
			return
		}
		if r.ctx.Err() != nil {
			return
		}
	}
}

// playTurn runs one attack/defense exchange. Any failed read or send
// removes that player and aborts the match; an empty phrase forfeits the
// turn with no damage.
func (r *Room) playTurn(attacker, defender *Player) turnState {
	if err := attacker.Conn.Send(r.ctx, wire.Message{Kind: wire.KindPromptAttack}); err != nil {
		r.removePlayer(attacker)
		return turnAbort
	}

	// Forward in-progress previews to the defender until the attack lands.
	msg, err := attacker.Conn.Receive(r.ctx, r.opts.TurnTimeout)
	if err != nil {
		r.removePlayer(attacker)
		return turnAbort
	}
	for msg.Kind == wire.KindPendingPhrase {
		preview := wire.Message{Kind: wire.KindPendingPhrase, Phrase: msg.Phrase}
		if err := defender.Conn.Send(r.ctx, preview); err != nil {
			r.removePlayer(defender)
			return turnAbort
		}
		msg, err = attacker.Conn.Receive(r.ctx, r.opts.TurnTimeout)
		if err != nil {
			r.removePlayer(attacker)
			return turnAbort
		}
	}
	if msg.Kind != wire.KindAttackResponse {
		r.log.Info("bad attack message", zap.String("kind", string(msg.Kind)))
		r.removePlayer(attacker)
		return turnAbort
	}
	attack := msg

	if !validPhrase(attack.Phrase) {
		r.log.Debug("blank phrase, turn forfeited", zap.String("player", attacker.Name))
		return turnNext
	}

	if err := defender.Conn.Send(r.ctx, wire.Message{Kind: wire.KindPromptDefense, Phrase: attack.Phrase}); err != nil {
		r.removePlayer(defender)
		return turnAbort
	}

	// Mirror the defender's previews back to the attacker.
	defense, err := defender.Conn.Receive(r.ctx, r.opts.TurnTimeout)
	if err != nil {
		r.removePlayer(defender)
		return turnAbort
	}
	for defense.Kind == wire.KindPendingDefense {
		mirror := wire.Message{Kind: wire.KindPendingDefense, Phrase: defense.Phrase}
		if err := attacker.Conn.Send(r.ctx, mirror); err != nil {
			r.removePlayer(attacker)
			return turnAbort
		}
		defense, err = defender.Conn.Receive(r.ctx, r.opts.TurnTimeout)
		if err != nil {
			r.removePlayer(defender)
			return turnAbort
		}
	}
	if defense.Kind != wire.KindDefenseResponse {
		r.log.Info("bad defense message", zap.String("kind", string(defense.Kind)))
		r.removePlayer(defender)
		return turnAbort
	}

	res := ResolveExchange(elapsed(attack), elapsed(defense))
	attacker.Health += res.AttackerDelta
	defender.Health += res.DefenderDelta
	r.log.Info("exchange resolved",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("attackerHealth", attacker.Health),
		zap.Int("defenderHealth", defender.Health))

	summary := fmt.Sprintf("attacker time: %.2fs, defender time: %.2fs, attack %s",
		elapsed(attack), elapsed(defense), res.Outcome)
	for _, p := range [2]*Player{attacker, defender} {
		result := wire.Message{
			Kind:       wire.KindResult,
			Health:     intPtr(p.Health),
			ResultText: strPtr(summary),
		}
		if err := p.Conn.Send(r.ctx, result); err != nil {
			r.removePlayer(p)
			return turnAbort
		}
	}

	if attacker.Health <= 0 || defender.Health <= 0 {
		return turnOver
	}
	return turnNext
}

func (r *Room) endGame(attacker, defender *Player) {
	winner, loser := decideWinner(attacker, defender)
	r.log.Info("match finished", zap.String("winner", winner.Name))

	texts := map[*Player]string{
		winner: fmt.Sprintf("You win! %s was defeated.", loser.Name),
		loser:  fmt.Sprintf("You lose! %s was victorious.", winner.Name),
	}
	for _, p := range [2]*Player{winner, loser} {
		end := wire.Message{Kind: wire.KindGameEnded, ResultText: strPtr(texts[p])}
		if err := p.Conn.Send(r.ctx, end); err != nil {
			r.removePlayer(p)
		}
	}
}

func (r *Room) finishMatch() {
	r.notifySurvivor()
	r.mu.Lock()
	players := make([]*Player, len(r.players))
	copy(players, r.players)
	r.mu.Unlock()
	for _, p := range players {
		p.Health = StartingHealth
	}
}

// decideWinner picks whoever still has health; a simultaneous defeat goes
// to the defender, whose counter is what felled the attacker.
func decideWinner(attacker, defender *Player) (winner, loser *Player) {
	if attacker.Health > 0 && defender.Health <= 0 {
		return attacker, defender
	}
	return defender, attacker
}

func validPhrase(phrase *string) bool {
	return phrase != nil && strings.TrimSpace(*phrase) != ""
}

func elapsed(m wire.Message) float64 {
	if m.ElapsedSeconds == nil {
		return 0
	}
	return *m.ElapsedSeconds
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
