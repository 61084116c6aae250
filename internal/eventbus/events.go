package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы игровых событий.
const (
	TypePlayerJoined = "PlayerJoined"
	TypePlayerLeft   = "PlayerLeft"
	TypeChatPosted   = "ChatPosted"
	TypeBlockPlaced  = "BlockPlaced"
)

// GameEvent полезная нагрузка, которую можно завернуть в Envelope.
type GameEvent interface {
	EventType() string
	MapName() string
}

type PlayerJoined struct {
	Map      string `json:"map"`
	PlayerID uint8  `json:"player_id"`
	Username string `json:"username"`
	Remote   string `json:"remote,omitempty"`
}

type PlayerLeft struct {
	Map      string `json:"map"`
	PlayerID uint8  `json:"player_id"`
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}

type ChatPosted struct {
	Map      string `json:"map"`
	PlayerID uint8  `json:"player_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type BlockPlaced struct {
	Map      string `json:"map"`
	PlayerID uint8  `json:"player_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Old      uint8  `json:"old"`
	New      uint8  `json:"new"`
}

func (e PlayerJoined) EventType() string { return TypePlayerJoined }
func (e PlayerLeft) EventType() string   { return TypePlayerLeft }
func (e ChatPosted) EventType() string   { return TypeChatPosted }
func (e BlockPlaced) EventType() string  { return TypeBlockPlaced }

func (e PlayerJoined) MapName() string { return e.Map }
func (e PlayerLeft) MapName() string   { return e.Map }
func (e ChatPosted) MapName() string   { return e.Map }
func (e BlockPlaced) MapName() string  { return e.Map }

// Wrap сериализует событие в новый Envelope.
// Вход/выход игроков публикуются с высоким приоритетом, чат и блоки могут быть отброшены.
func Wrap(source string, ev GameEvent) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("eventbus: сериализация %s: %w", ev.EventType(), err)
	}
	prio := 1
	switch ev.(type) {
	case PlayerJoined, PlayerLeft:
		prio = 5
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: ev.EventType(),
		Map:       ev.MapName(),
		Priority:  prio,
		Payload:   payload,
	}, nil
}

// Decode восстанавливает типизированное событие из Envelope.
func Decode(env *Envelope) (GameEvent, error) {
	var ev GameEvent
	switch env.EventType {
	case TypePlayerJoined:
		var e PlayerJoined
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypePlayerLeft:
		var e PlayerLeft
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeChatPosted:
		var e ChatPosted
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeBlockPlaced:
		var e BlockPlaced
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	default:
		return nil, fmt.Errorf("eventbus: неизвестный тип события %q", env.EventType)
	}
	return ev, nil
}
