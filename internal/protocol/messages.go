// Package protocol описывает сообщения игрового протокола и их бинарное кодирование.
package protocol

import (
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/annel0/bricklayer/internal/world/block"
)

// MsgType определяет тип сообщения, первый байт кадра
type MsgType uint8

// Определение констант для типов сообщений
const (
	MsgUnknown      MsgType = 0
	MsgLogin        MsgType = 1
	MsgInit         MsgType = 2
	MsgPlayerJoin   MsgType = 3
	MsgPlayerLeave  MsgType = 4
	MsgPlayerState  MsgType = 5
	MsgPlayerSmiley MsgType = 6
	MsgPlayerMode   MsgType = 7
	MsgBlock        MsgType = 8
	MsgChat         MsgType = 9
)

var msgTypeNames = map[MsgType]string{
	MsgLogin:        "login",
	MsgInit:         "init",
	MsgPlayerJoin:   "player_join",
	MsgPlayerLeave:  "player_leave",
	MsgPlayerState:  "player_state",
	MsgPlayerSmiley: "player_smiley",
	MsgPlayerMode:   "player_mode",
	MsgBlock:        "block",
	MsgChat:         "chat",
}

// String возвращает имя типа для логов и метрик
func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Reliability класс доставки сообщения
type Reliability uint8

const (
	Unreliable      Reliability = iota // последнее побеждает, может потеряться
	Reliable                           // доставка гарантирована
	ReliableOrdered                    // доставка и порядок гарантированы
)

// ReliabilityOf возвращает класс доставки для типа сообщения
func ReliabilityOf(t MsgType) Reliability {
	switch t {
	case MsgPlayerState:
		return Unreliable
	case MsgBlock:
		return ReliableOrdered
	default:
		return Reliable
	}
}

// Ограничения длины строк (в символах)
const (
	MaxChatLength     = 80
	MaxUsernameLength = 20
)

// Message любое сообщение протокола
type Message interface {
	Type() MsgType
}

// Login первое сообщение клиента, обрабатывается при одобрении подключения
type Login struct {
	Username string
	Color    world.Color
}

// Init полный снимок карты для нового игрока
type Init struct {
	Width  int
	Height int
	Spawn  vec.Vec2Float
	// Tiles в порядке слой, строка, столбец (см. world.TileGrid.Tiles)
	Tiles []byte
}

// PlayerJoin уведомление о входе игрока
type PlayerJoin struct {
	Username string
	ID       uint8
	IsSelf   bool
	Color    world.Color
}

// PlayerLeave уведомление о выходе игрока
type PlayerLeave struct {
	ID uint8
}

// PlayerState кинематическое состояние игрока
type PlayerState struct {
	ID        uint8
	Position  vec.Vec2Float
	Velocity  vec.Vec2Float
	Movement  vec.Vec2Float
	IsJumping bool
}

// PlayerSmiley смена смайлика
type PlayerSmiley struct {
	ID     uint8
	Smiley block.SmileyID
}

// PlayerMode смена режима передвижения
type PlayerMode struct {
	ID   uint8
	Mode physics.Mode
}

// Block правка одной ячейки сетки
type Block struct {
	X, Y  int
	Layer int
	Block block.BlockID
}

// Chat сообщение в чат
type Chat struct {
	ID      uint8
	Message string
}

func (Login) Type() MsgType        { return MsgLogin }
func (Init) Type() MsgType         { return MsgInit }
func (PlayerJoin) Type() MsgType   { return MsgPlayerJoin }
func (PlayerLeave) Type() MsgType  { return MsgPlayerLeave }
func (PlayerState) Type() MsgType  { return MsgPlayerState }
func (PlayerSmiley) Type() MsgType { return MsgPlayerSmiley }
func (PlayerMode) Type() MsgType   { return MsgPlayerMode }
func (Block) Type() MsgType        { return MsgBlock }
func (Chat) Type() MsgType         { return MsgChat }

// StateOf собирает PlayerState из тела игрока
func StateOf(id uint8, b *physics.Body) PlayerState {
	return PlayerState{
		ID:        id,
		Position:  b.Simulation.Position,
		Velocity:  b.Simulation.Velocity,
		Movement:  b.Simulation.Movement,
		IsJumping: b.IsJumping,
	}
}

// Kinematics возвращает кинематику из состояния
func (s PlayerState) Kinematics() physics.Kinematics {
	return physics.Kinematics{
		Position: s.Position,
		Velocity: s.Velocity,
		Movement: s.Movement,
	}
}

// JoinOf собирает PlayerJoin для игрока
func JoinOf(p *world.Player, isSelf bool) PlayerJoin {
	return PlayerJoin{
		Username: p.Username,
		ID:       p.ID,
		IsSelf:   isSelf,
		Color:    p.Color,
	}
}

// InitOf собирает снимок карты
func InitOf(m *world.Map) Init {
	return Init{
		Width:  m.Grid.Width(),
		Height: m.Grid.Height(),
		Spawn:  m.Spawn,
		Tiles:  m.Grid.Tiles(),
	}
}

// TruncateRunes обрезает строку до max символов
func TruncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
