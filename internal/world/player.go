package world

import (
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Color цвет игрока
type Color struct {
	R, G, B uint8
}

// Player игрок на карте
type Player struct {
	ID       uint8
	Index    int    // плотный порядковый номер на карте
	ConnID   string // пустой на клиенте
	Username string
	Color    Color
	Smiley   block.SmileyID
	Body     *physics.Body
}

// NewPlayer создаёт игрока в позиции spawn
func NewPlayer(id uint8, username string, color Color, spawn vec.Vec2Float, owned bool) *Player {
	return &Player{
		ID:       id,
		Username: username,
		Color:    color,
		Smiley:   block.DefaultSmiley,
		Body:     physics.NewBody(spawn, owned),
	}
}

// Mode текущий режим передвижения
func (p *Player) Mode() physics.Mode {
	return p.Body.Mode
}

// Position текущая симулируемая позиция
func (p *Player) Position() vec.Vec2Float {
	return p.Body.Simulation.Position
}
