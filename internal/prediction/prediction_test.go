package prediction

import (
	"testing"

	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
	"github.com/stretchr/testify/assert"
)

const tick = 1.0 / 60

func TestTracker_PressAndReleaseSendTwice(t *testing.T) {
	b := physics.NewBody(vec.Vec2Float{X: 32, Y: 32}, true)
	var tr Tracker

	sends := 0
	inputs := []Input{{Right: true}, {}, {}, {}, {}}
	for _, in := range inputs {
		if tr.Apply(b, in) {
			sends++
		}
	}
	assert.Equal(t, 2, sends, "отправляются только фронты нажатия и отпускания")
}

func TestTracker_HoldDoesNotResend(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	var tr Tracker

	assert.True(t, tr.Apply(b, Input{Left: true}))
	for i := 0; i < 10; i++ {
		assert.False(t, tr.Apply(b, Input{Left: true}), "удержание клавиши не порождает отправок")
	}
	assert.Equal(t, -1.0, b.Simulation.Movement.X)
	assert.True(t, tr.Apply(b, Input{Right: true}), "смена направления отправляется")
}

func TestTracker_LeftAndRightMeansRight(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	var tr Tracker

	assert.True(t, tr.Apply(b, Input{Left: true, Right: true}))
	assert.Equal(t, vec.Vec2Float{X: 1}, b.Simulation.Movement, "одновременное нажатие трактуется как движение вправо")
}

func TestTracker_OppositeKeyWhileHeldIsSent(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	var tr Tracker

	assert.True(t, tr.Apply(b, Input{Right: true}))
	assert.False(t, tr.Apply(b, Input{Right: true}))
	assert.True(t, tr.Apply(b, Input{Right: true, Left: true}), "нажатие влево при зажатом вправо отправляется")
	assert.Equal(t, vec.Vec2Float{X: 1}, b.Simulation.Movement, "движение остаётся вправо")
	assert.False(t, tr.Apply(b, Input{Right: true, Left: true}), "удержание обеих клавиш не порождает отправок")
	assert.True(t, tr.Apply(b, Input{Right: true}), "отпускание влево тоже фронт")
	assert.Equal(t, vec.Vec2Float{X: 1}, b.Simulation.Movement)

	tr.Reset()
	assert.True(t, tr.Apply(b, Input{Right: true}), "после Reset зажатая клавиша отправляется заново")
}

func TestTracker_JumpKeysFollowGravity(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	var tr Tracker

	tr.Apply(b, Input{Up: true})
	assert.True(t, b.IsJumping, "при обычной гравитации вверх — прыжок")

	b.Gravity = block.DirLeft
	tr.Apply(b, Input{Right: true, Down: true})
	assert.True(t, b.IsJumping, "при гравитации влево прыжок вправо")
	assert.Equal(t, vec.Vec2Float{Y: 1}, b.Simulation.Movement, "боковая ось становится вертикальной")

	b.Gravity = block.DirRight
	tr.Apply(b, Input{Right: true})
	assert.False(t, b.IsJumping)
	tr.Apply(b, Input{Left: true})
	assert.True(t, b.IsJumping)
}

func TestTracker_GodMode(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	b.Mode = physics.ModeGod
	var tr Tracker

	assert.True(t, tr.Apply(b, Input{Up: true, Left: true, Jump: true}))
	assert.Equal(t, vec.Vec2Float{X: -1, Y: -1}, b.Simulation.Movement)
	assert.False(t, b.IsJumping, "в режиме бога прыжка нет")
}

func TestTracker_SuspendedStopsMovement(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	var tr Tracker

	tr.Apply(b, Input{Right: true, Jump: true})
	assert.True(t, tr.Apply(b, Input{Right: true, Jump: true, Suspended: true}), "при открытии чата отправляется финальное состояние")
	assert.Equal(t, vec.Zero, b.Simulation.Movement)
	assert.False(t, b.IsJumping)
	assert.False(t, tr.Apply(b, Input{Right: true, Suspended: true}))
}

func TestInterpolate_NormalMode(t *testing.T) {
	b := physics.NewBody(vec.Zero, false)
	b.Simulation.Position = vec.Vec2Float{X: 100, Y: 52}
	b.Display.Position = vec.Vec2Float{X: 10, Y: 50}

	Interpolate(b, tick)
	assert.Equal(t, vec.Vec2Float{X: 100, Y: 52}, b.Display.Position, "X прыгает сразу, Y в пределах 3px тоже")

	b.Simulation.Position.Y = 80
	Interpolate(b, tick)
	assert.InDelta(t, 52+28*0.5, b.Display.Position.Y, 1e-9, "Y догоняет наполовину за тик")

	Interpolate(b, 10)
	assert.Equal(t, 80.0, b.Display.Position.Y, "сглаживание не перескакивает цель")
}

func TestInterpolate_GodMode(t *testing.T) {
	b := physics.NewBody(vec.Zero, false)
	b.Mode = physics.ModeGod
	b.Simulation.Position = vec.Vec2Float{X: 110, Y: 60}
	b.Display.Position = vec.Vec2Float{X: 10, Y: 60}

	Interpolate(b, tick)
	assert.InDelta(t, 20.0, b.Display.Position.X, 1e-9)

	b.Display.Position = vec.Vec2Float{X: 108, Y: 62}
	Interpolate(b, tick)
	assert.Equal(t, b.Simulation.Position, b.Display.Position)
}

func TestInterpolate_OwnedShowsSimulation(t *testing.T) {
	b := physics.NewBody(vec.Zero, true)
	b.Simulation.Position = vec.Vec2Float{X: 300, Y: 300}

	Interpolate(b, tick)
	assert.Equal(t, b.Simulation, b.Display)
}

type box struct{ max float64 }

func (bx box) ClampToWorld(p vec.Vec2Float) vec.Vec2Float {
	return vec.Vec2Float{X: vec.Clamp(p.X, 16, bx.max), Y: vec.Clamp(p.Y, 16, bx.max)}
}

func TestClampState(t *testing.T) {
	k := physics.Kinematics{
		Position: vec.Vec2Float{X: -100, Y: 5000},
		Velocity: vec.Vec2Float{X: 1e6, Y: -1e6},
		Movement: vec.Vec2Float{X: 7, Y: -0.5},
	}

	got := ClampState(k, box{max: 500})
	assert.Equal(t, vec.Vec2Float{X: 16, Y: 500}, got.Position)
	assert.Equal(t, vec.Vec2Float{X: physics.MaxVelocity, Y: -physics.MaxVelocity}, got.Velocity)
	assert.Equal(t, vec.Vec2Float{X: 1, Y: -1}, got.Movement)
}
