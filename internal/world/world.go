package world

import (
	"fmt"
	"math"

	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Map карта: сетка тайлов, точка появления и игроки в порядке входа.
// Не потокобезопасна, принадлежит одному игровому циклу.
type Map struct {
	Name  string
	Grid  *TileGrid
	Spawn vec.Vec2Float

	// Dirty выставляется при изменении сетки, сбрасывается после сохранения
	Dirty bool

	players []*Player
}

// NewMap создаёт карту
func NewMap(name string, grid *TileGrid, spawn vec.Vec2Float) *Map {
	return &Map{
		Name:  name,
		Grid:  grid,
		Spawn: spawn,
	}
}

// AddPlayer добавляет игрока в конец списка
func (m *Map) AddPlayer(p *Player) {
	p.Index = len(m.players)
	m.players = append(m.players, p)
}

// RemovePlayer удаляет игрока и перенумеровывает оставшихся
func (m *Map) RemovePlayer(id uint8) (*Player, bool) {
	for i, p := range m.players {
		if p.ID != id {
			continue
		}
		m.players = append(m.players[:i], m.players[i+1:]...)
		for j := i; j < len(m.players); j++ {
			m.players[j].Index = j
		}
		return p, true
	}
	return nil, false
}

// PlayerByID ищет игрока по идентификатору
func (m *Map) PlayerByID(id uint8) (*Player, bool) {
	for _, p := range m.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Players возвращает копию списка игроков в порядке Index
func (m *Map) Players() []*Player {
	out := make([]*Player, len(m.players))
	copy(out, m.players)
	return out
}

// PlayerCount количество игроков на карте
func (m *Map) PlayerCount() int {
	return len(m.players)
}

// InBounds проверяет ячейку сетки
func (m *Map) InBounds(x, y, z int) bool {
	return m.Grid.InBounds(x, y, z)
}

// ClampToWorld ограничивает позицию внутренней областью мира (без рамки)
func (m *Map) ClampToWorld(pos vec.Vec2Float) vec.Vec2Float {
	maxX := float64(m.Grid.Width()*TileWidth - 2*TileWidth)
	maxY := float64(m.Grid.Height()*TileHeight - 2*TileHeight)
	return vec.Vec2Float{
		X: vec.Clamp(nanToZero(pos.X), TileWidth, math.Max(maxX, TileWidth)),
		Y: vec.Clamp(nanToZero(pos.Y), TileHeight, math.Max(maxY, TileHeight)),
	}
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// PlaceBlock применяет правку сетки. Повторная установка того же блока
// возвращает ErrNoChange.
func (m *Map) PlaceBlock(x, y, z int, id block.BlockID) (BlockChange, error) {
	old, err := m.Grid.ID(x, y, z)
	if err != nil {
		return BlockChange{}, err
	}
	if old == id {
		return BlockChange{}, fmt.Errorf("%w: (%d,%d,%d)=%d", ErrNoChange, x, y, z, id)
	}
	if err := m.Grid.Set(x, y, z, id); err != nil {
		return BlockChange{}, err
	}
	m.Dirty = true
	return BlockChange{Position: vec.Vec3{X: x, Y: y, Z: z}, Old: old, New: id}, nil
}

// Tick продвигает счётчики простоя игроков, чьё состояние не менялось
func (m *Map) Tick(elapsed float64) {
	for _, p := range m.players {
		p.Body.IdleTime += elapsed
	}
}
