package physics

import (
	"math"

	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Step продвигает тело на один тик длительностью elapsed секунд.
// Для чужих тел (Owned == false) события не порождаются.
func Step(b *Body, g Grid, elapsed float64) []Event {
	b.Previous = b.Simulation
	switch {
	case b.Simulation.Movement.X > 0:
		b.Facing = FacingRight
	case b.Simulation.Movement.X < 0:
		b.Facing = FacingLeft
	}

	var events []Event
	if b.Mode == ModeGod {
		stepGod(b, g, elapsed)
	} else {
		events = stepNormal(b, g, elapsed)
	}

	if b.Simulation.Position == b.Previous.Position {
		b.IdleTime += elapsed
	} else {
		b.IdleTime = 0
	}
	return events
}

// gravityAcceleration ускорение вдоль оси гравитации со знаком
func gravityAcceleration(d block.Direction) float64 {
	switch d {
	case block.DirDown:
		return GravityAcceleration * DownArrowGravityScale
	case block.DirUp, block.DirLeft:
		return -GravityAcceleration
	default:
		return GravityAcceleration
	}
}

func stepNormal(b *Body, g Grid, elapsed float64) []Event {
	sim := &b.Simulation
	gravity := b.Gravity
	fall := GravityAxis(gravity)
	lateral := AxisX
	if fall == AxisX {
		lateral = AxisY
	}

	// боковая ось
	lv := component(sim.Velocity, lateral)
	if mv := component(sim.Movement, lateral); mv != 0 {
		lv += mv * MoveSpeed
	} else {
		lv = vec.Lerp(lv, 0, MoveSlowDownFactor)
	}
	lv = vec.Clamp(lv, -MaxVelocity, MaxVelocity)

	// ось гравитации: два подшага до прыжка, один после
	gravityStep := gravityAcceleration(gravity) * GravitySubStep
	fv := component(sim.Velocity, fall)
	fv = vec.Clamp(fv+gravityStep, -MaxFallSpeed, MaxFallSpeed)
	fv = vec.Clamp(fv+gravityStep, -MaxFallSpeed, MaxFallSpeed)
	fv, events := ApplyJump(b, fv, elapsed)
	fv = vec.Clamp(fv+gravityStep, -MaxFallSpeed, MaxFallSpeed)

	if b.IsOnGround {
		lv *= GroundDragFactor
	} else {
		lv *= AirDragFactor
	}

	setComponent(&sim.Velocity, lateral, lv)
	setComponent(&sim.Velocity, fall, fv)

	// направление гравитации держится только пока тело касается стрелки
	b.Gravity = block.DirDefault
	first, second := AxisX, AxisY
	if fall == AxisX {
		first, second = AxisY, AxisX
	}
	for _, axis := range [2]Axis{first, second} {
		res := moveAxis(b, g, axis, fall, elapsed)
		if res.Redirected {
			b.Gravity = res.Redirect
		}
	}

	sim.Position.X = math.Max(sim.Position.X, 0)
	sim.Position.Y = math.Max(sim.Position.Y, 0)
	return events
}

func moveAxis(b *Body, g Grid, axis, gravityAxis Axis, elapsed float64) Resolution {
	sim := &b.Simulation
	tileSize := float64(TileWidth)
	if axis == AxisY {
		tileSize = TileHeight
	}

	change := vec.Clamp(component(sim.Velocity, axis)*elapsed, -tileSize, tileSize)
	setComponent(&sim.Position, axis, math.Round(component(sim.Position, axis)+change))

	res := ResolveAxis(b, g, axis, gravityAxis)

	if component(sim.Position, axis) == component(b.Previous.Position, axis) {
		setComponent(&sim.Velocity, axis, 0)
	}
	return res
}

func stepGod(b *Body, g Grid, elapsed float64) {
	sim := &b.Simulation
	delta := elapsed * 60
	width, height := g.Size()

	limits := [2][2]float64{
		{TileWidth, float64(width*TileWidth - 2*TileWidth)},
		{TileHeight, float64(height*TileHeight - 2*TileHeight)},
	}

	for i, axis := range [2]Axis{AxisX, AxisY} {
		v := component(sim.Velocity, axis)
		if mv := component(sim.Movement, axis); mv != 0 {
			v += mv * GodMoveSpeed
		} else {
			v = vec.Lerp(v, 0, GodMoveSlowDownFactor)
		}
		v = vec.Clamp(v, -MaxGodVelocity, MaxGodVelocity)
		v *= delta

		change := vec.Clamp(v*GravitySubStep, -GodMaxStep, GodMaxStep)
		pos := math.Round(component(sim.Position, axis) + change)

		lo, hi := limits[i][0], limits[i][1]
		if pos < lo || pos > hi {
			v = 0
			pos = vec.Clamp(pos, lo, hi)
		}

		setComponent(&sim.Velocity, axis, v)
		setComponent(&sim.Position, axis, pos)
	}

	// в режиме бога гравитация и прыжок не действуют
	b.Gravity = block.DirDefault
	b.IsOnGround = false
	b.JumpTime = 0
}
