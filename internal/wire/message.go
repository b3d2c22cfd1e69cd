package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by Decode for bytes that are not a valid message.
// Callers treat it like a dropped connection; it never escalates further.
var ErrMalformed = errors.New("malformed message")

type Kind string

const (
	KindPing                 Kind = "ping"
	KindPong                 Kind = "pong"
	KindCreated              Kind = "created"
	KindJoined               Kind = "joined"
	KindWaitingForOpponent   Kind = "waitingForOpponent"
	KindPromptReadyUp        Kind = "promptReadyUp"
	KindReadyUp              Kind = "readyUp"
	KindStart                Kind = "start"
	KindOpponentDisconnected Kind = "opponentDisconnected"
	KindPromptAttack         Kind = "promptAttack"
	KindPendingPhrase        Kind = "pendingPhrase"
	KindAttackResponse       Kind = "attackResponse"
	KindPromptDefense        Kind = "promptDefense"
	KindPendingDefense       Kind = "pendingDefense"
	KindDefenseResponse      Kind = "defenseResponse"
	KindResult               Kind = "result"
	KindGameEnded            Kind = "gameEnded"
)

var knownKinds = map[Kind]bool{
	KindPing:                 true,
	KindPong:                 true,
	KindCreated:              true,
	KindJoined:               true,
	KindWaitingForOpponent:   true,
	KindPromptReadyUp:        true,
	KindReadyUp:              true,
	KindStart:                true,
	KindOpponentDisconnected: true,
	KindPromptAttack:         true,
	KindPendingPhrase:        true,
	KindAttackResponse:       true,
	KindPromptDefense:        true,
	KindPendingDefense:       true,
	KindDefenseResponse:      true,
	KindResult:               true,
	KindGameEnded:            true,
}

func (k Kind) Valid() bool { return knownKinds[k] }

// Message is the wire vocabulary. Which optional fields are meaningful
// depends on Kind; they are pointers so that an absent field stays absent
// instead of collapsing to a zero value. The JSON keys match the original
// client protocol.
type Message struct {
	Kind           Kind     `json:"type"`
	Phrase         *string  `json:"phrase,omitempty"`
	ElapsedSeconds *float64 `json:"time,omitempty"`
	Health         *int     `json:"health,omitempty"`
	ResultText     *string  `json:"resultMessage,omitempty"`
	RoomKey        *string  `json:"roomName,omitempty"`
}

func Encode(m Message) ([]byte, error) {
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, m.Kind)
	}
	return json.Marshal(m)
}

// Decode tolerates unknown extra fields but rejects a missing or unknown
// kind, so a stale client cannot smuggle an unhandled message past a Room.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !m.Kind.Valid() {
		return Message{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, m.Kind)
	}
	return m, nil
}
