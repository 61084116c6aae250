package physics

import (
	"math"

	"github.com/annel0/bricklayer/internal/world/block"
)

// Event событие движения локального игрока
type Event uint8

const (
	EventJumpStarted Event = iota + 1
	EventJumpStopped
	EventLanded
)

// String возвращает имя события
func (e Event) String() string {
	switch e {
	case EventJumpStarted:
		return "jump_started"
	case EventJumpStopped:
		return "jump_stopped"
	case EventLanded:
		return "landed"
	default:
		return "unknown"
	}
}

// JumpCurve скорость подъёма в момент t после начала прыжка
func JumpCurve(t float64) float64 {
	return JumpLaunchVelocity * (1 - math.Pow(t/MaxJumpTime, JumpControlPower))
}

// jumpSign знак прыжка относительно направления гравитации
func jumpSign(d block.Direction) float64 {
	if d == block.DirUp || d == block.DirLeft {
		return -1
	}
	return 1
}

// ApplyJump продвигает контроллер прыжка на elapsed секунд и возвращает
// скорость по оси гравитации. Пока идёт подъём, скорость заменяется кривой прыжка.
func ApplyJump(b *Body, velocity, elapsed float64) (float64, []Event) {
	var events []Event
	emit := func(e Event) {
		if b.Owned {
			events = append(events, e)
		}
	}

	if b.IsJumping {
		if (!b.WasJumping && b.IsOnGround) || b.JumpTime > 0 {
			if b.JumpTime == 0 {
				b.JumpDirection = b.Gravity
				emit(EventJumpStarted)
			}
			b.JumpTime += elapsed
		}

		if b.JumpTime > 0 && b.JumpTime <= MaxJumpTime {
			velocity = jumpSign(b.JumpDirection) * JumpCurve(b.JumpTime)
		} else {
			if b.JumpTime > 0 {
				emit(EventJumpStopped)
			}
			b.JumpTime = 0
			b.IsJumping = false
		}
	} else {
		if b.JumpTime > 0 {
			emit(EventLanded)
		}
		b.JumpTime = 0
	}

	b.WasJumping = b.IsJumping
	return velocity, events
}
