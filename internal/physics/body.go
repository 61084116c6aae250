// Package physics реализует детерминированный шаг движения игрока
// по сетке тайлов: интегратор, разрешение столкновений и прыжок.
package physics

import (
	"math"

	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Mode режим передвижения игрока
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeGod
)

// IsValid проверяет, что режим известен
func (m Mode) IsValid() bool {
	return m == ModeNormal || m == ModeGod
}

// String возвращает имя режима
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeGod:
		return "god"
	default:
		return "unknown"
	}
}

// Facing направление взгляда (подсказка для отрисовки)
type Facing uint8

const (
	FacingRight Facing = iota
	FacingLeft
)

// Axis ось движения
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

// Kinematics кинематическое состояние тела в один момент времени
type Kinematics struct {
	Position vec.Vec2Float
	Velocity vec.Vec2Float
	// Movement намерение движения, компоненты из {-1, 0, 1}
	Movement vec.Vec2Float
}

// Body агрегат физического состояния одного игрока
type Body struct {
	Simulation Kinematics // текущий (предсказанный или авторитетный) тик
	Previous   Kinematics // предыдущий тик, для проверок пересечения земли
	Display    Kinematics // отображаемое состояние, сглаживается для чужих игроков

	Width  int
	Height int

	Mode    Mode
	Gravity block.Direction

	IsJumping     bool
	WasJumping    bool
	JumpTime      float64
	JumpDirection block.Direction
	IsOnGround    bool
	IdleTime      float64
	Facing        Facing

	// Owned — тело принадлежит локальному клиенту; только такие тела порождают события
	Owned bool
}

// NewBody создаёт тело в указанной позиции
func NewBody(position vec.Vec2Float, owned bool) *Body {
	k := Kinematics{Position: position}
	return &Body{
		Simulation: k,
		Previous:   k,
		Display:    k,
		Width:      BodyWidth,
		Height:     BodyHeight,
		Owned:      owned,
	}
}

// Bounds возвращает ограничивающий прямоугольник текущего состояния
func (b *Body) Bounds() Rect {
	return b.boundsAt(b.Simulation.Position)
}

// PreviousBounds возвращает прямоугольник предыдущего тика
func (b *Body) PreviousBounds() Rect {
	return b.boundsAt(b.Previous.Position)
}

func (b *Body) boundsAt(p vec.Vec2Float) Rect {
	return Rect{
		X:      int(math.Round(p.X)),
		Y:      int(math.Round(p.Y)),
		Width:  b.Width,
		Height: b.Height,
	}
}

// Teleport переносит тело в позицию, сбрасывая скорость и сглаживание
func (b *Body) Teleport(position vec.Vec2Float) {
	b.Simulation.Position = position
	b.Simulation.Velocity = vec.Zero
	b.Previous = b.Simulation
	b.Display = b.Simulation
}

func component(v vec.Vec2Float, axis Axis) float64 {
	if axis == AxisX {
		return v.X
	}
	return v.Y
}

func setComponent(v *vec.Vec2Float, axis Axis, value float64) {
	if axis == AxisX {
		v.X = value
	} else {
		v.Y = value
	}
}
