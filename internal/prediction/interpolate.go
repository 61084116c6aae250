package prediction

import (
	"math"

	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
)

const (
	// SnapDistance в пределах этого расстояния отображение прыгает сразу к симуляции
	SnapDistance = 3.0

	normalBlend = 0.5
	godBlend    = 0.1
)

// Interpolate сглаживает отображаемую позицию тела. Свои тела
// показываются как есть, чужие догоняют симуляцию.
func Interpolate(b *physics.Body, elapsed float64) {
	if b.Owned {
		b.Display = b.Simulation
		clampDisplay(b)
		return
	}

	delta := elapsed * 60
	sim := b.Simulation.Position
	disp := b.Display.Position

	switch b.Mode {
	case physics.ModeGod:
		if sim.DistanceTo(disp) <= SnapDistance {
			disp = sim
		} else {
			disp = disp.Add(sim.Sub(disp).Mul(blendFactor(delta, godBlend)))
		}
	default:
		disp.X = sim.X
		if math.Abs(sim.Y-disp.Y) <= SnapDistance {
			disp.Y = sim.Y
		} else {
			disp.Y += (sim.Y - disp.Y) * blendFactor(delta, normalBlend)
		}
	}

	b.Display.Position = disp
	b.Display.Velocity = b.Simulation.Velocity
	b.Display.Movement = b.Simulation.Movement
	clampDisplay(b)
}

// blendFactor не даёт сглаживанию перескочить цель при больших elapsed
func blendFactor(delta, k float64) float64 {
	return math.Min(delta*k, 1)
}

func clampDisplay(b *physics.Body) {
	b.Display.Position.X = math.Max(0, b.Display.Position.X)
	b.Display.Position.Y = math.Max(0, b.Display.Position.Y)
}

// Bounds область мира, в которую сервер вписывает принятые состояния
type Bounds interface {
	ClampToWorld(pos vec.Vec2Float) vec.Vec2Float
}

// ClampState приводит присланное клиентом состояние к допустимому:
// позиция внутри мира, скорость в пределах физики, намерение из {-1, 0, 1}.
func ClampState(k physics.Kinematics, bounds Bounds) physics.Kinematics {
	k.Position = bounds.ClampToWorld(k.Position)
	k.Velocity = vec.Vec2Float{
		X: vec.Clamp(finite(k.Velocity.X), -physics.MaxVelocity, physics.MaxVelocity),
		Y: vec.Clamp(finite(k.Velocity.Y), -physics.MaxVelocity, physics.MaxVelocity),
	}
	k.Movement = vec.Vec2Float{X: sign(k.Movement.X), Y: sign(k.Movement.Y)}
	return k
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
