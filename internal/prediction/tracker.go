// Package prediction отвечает за согласование состояния между клиентом и сервером:
// какие изменения ввода отправлять, как сглаживать чужих игроков и как
// сервер ограничивает принятое состояние.
package prediction

import (
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Input логические кнопки игрока на текущем тике
type Input struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
	Jump  bool
	// Suspended — ввод перехвачен (например, открыт чат): движение и прыжок отключены
	Suspended bool
}

// Tracker запоминает последнее отправленное намерение локального игрока
type Tracker struct {
	lastMovement vec.Vec2Float
	lastKeys     directionKeys
}

// directionKeys зажатые стрелки; Jump отслеживается через IsJumping тела
type directionKeys struct {
	up, down, left, right bool
}

func keysOf(in Input) directionKeys {
	if in.Suspended {
		return directionKeys{}
	}
	return directionKeys{up: in.Up, down: in.Down, left: in.Left, right: in.Right}
}

// axisIntent переводит пару кнопок в -1/0/1; обе сразу дают +1
func axisIntent(negative, positive bool) float64 {
	switch {
	case positive:
		return 1
	case negative:
		return -1
	default:
		return 0
	}
}

// Intent вычисляет намерение движения и прыжка для режима и гравитации тела
func Intent(b *physics.Body, in Input) (movement vec.Vec2Float, jumping bool) {
	if in.Suspended {
		return vec.Zero, false
	}

	if b.Mode == physics.ModeGod {
		return vec.Vec2Float{
			X: axisIntent(in.Left, in.Right),
			Y: axisIntent(in.Up, in.Down),
		}, false
	}

	switch b.Gravity {
	case block.DirLeft:
		// тянет влево: прыгаем вправо, ходим вверх-вниз
		return vec.Vec2Float{Y: axisIntent(in.Up, in.Down)}, in.Jump || in.Right
	case block.DirRight:
		return vec.Vec2Float{Y: axisIntent(in.Up, in.Down)}, in.Jump || in.Left
	default:
		return vec.Vec2Float{X: axisIntent(in.Left, in.Right)}, in.Jump || in.Up
	}
}

// Apply переносит ввод в тело и сообщает, изменилось ли намерение движения
// или набор зажатых стрелок с прошлого вызова. Нажатие второй клавиши оси
// (влево при зажатом вправо) тоже изменение, хотя движение остаётся +1.
// Только такие изменения (и события прыжка) стоит отправлять.
func (t *Tracker) Apply(b *physics.Body, in Input) (changed bool) {
	wasJumping := b.IsJumping
	movement, jumping := Intent(b, in)
	keys := keysOf(in)

	b.Simulation.Movement = movement
	b.IsJumping = jumping

	changed = movement != t.lastMovement || keys != t.lastKeys
	// при захвате ввода одна финальная отправка, если прыжок был зажат
	if in.Suspended && wasJumping {
		changed = true
	}
	t.lastMovement = movement
	t.lastKeys = keys
	return changed
}

// Reset забывает последнее намерение (после смены карты или переподключения)
func (t *Tracker) Reset() {
	t.lastMovement = vec.Zero
	t.lastKeys = directionKeys{}
}
