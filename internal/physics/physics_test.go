package physics

import (
	"testing"

	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

// stubGrid сетка с рамкой из непроходимых блоков
type stubGrid struct {
	width, height int
	cells         map[vec.Vec2]block.BlockID
}

func newStubGrid(width, height int) *stubGrid {
	g := &stubGrid{width: width, height: height, cells: make(map[vec.Vec2]block.BlockID)}
	for x := 0; x < width; x++ {
		g.set(x, 0, block.DefaultBlockID)
		g.set(x, height-1, block.DefaultBlockID)
	}
	for y := 0; y < height; y++ {
		g.set(0, y, block.DefaultBlockID)
		g.set(width-1, y, block.DefaultBlockID)
	}
	return g
}

func (g *stubGrid) set(x, y int, id block.BlockID) {
	g.cells[vec.Vec2{X: x, Y: y}] = id
}

func (g *stubGrid) Size() (int, int) { return g.width, g.height }

func (g *stubGrid) Collision(x, y int) (block.Collision, block.Direction) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return block.Impassable, block.DirDefault
	}
	bt, ok := block.FromID(g.cells[vec.Vec2{X: x, Y: y}])
	if !ok {
		return block.Passable, block.DirDefault
	}
	return bt.Collision, bt.Redirect
}

func run(b *Body, g Grid, ticks int) []Event {
	var events []Event
	for i := 0; i < ticks; i++ {
		events = append(events, Step(b, g, tick)...)
	}
	return events
}

func TestRect_Depth(t *testing.T) {
	body := Rect{X: 10, Y: 0, Width: 16, Height: 16}
	tile := TileBounds(1, 0)

	assert.Equal(t, -10.0, body.HorizontalDepth(tile), "тело слева от тайла выталкивается влево")
	assert.Equal(t, 0.0, body.VerticalDepth(TileBounds(0, 1)), "касание не является пересечением")

	below := Rect{X: 16, Y: 12, Width: 16, Height: 16}
	assert.Equal(t, -12.0, below.VerticalDepth(TileBounds(1, 1)), "тело сверху выталкивается вверх")
	assert.True(t, below.Intersects(TileBounds(1, 1)))
	assert.False(t, Rect{X: 0, Y: 0, Width: 16, Height: 16}.Intersects(TileBounds(1, 0)))
}

func TestStep_FreeFallLandsOnFloor(t *testing.T) {
	g := newStubGrid(10, 10)
	b := NewBody(vec.Vec2Float{X: 32, Y: 32}, false)

	run(b, g, 300)

	floorTop := float64((10 - 1) * TileHeight)
	assert.Equal(t, floorTop-BodyHeight, b.Simulation.Position.Y, "тело должно лежать на полу")
	assert.Equal(t, 32.0, b.Simulation.Position.X, "без ввода X не меняется")
	assert.True(t, b.IsOnGround, "тело должно стоять на земле")
	assert.Equal(t, 0.0, b.Simulation.Velocity.Y, "скорость падения обнуляется на земле")
	assert.Greater(t, b.IdleTime, 0.0, "стоящее тело накапливает время простоя")
}

func TestStep_Deterministic(t *testing.T) {
	g := newStubGrid(20, 20)
	g.set(8, 15, block.WoodBlockID)
	g.set(12, 10, block.RedBlockID)

	a := NewBody(vec.Vec2Float{X: 48, Y: 48}, true)
	b := NewBody(vec.Vec2Float{X: 48, Y: 48}, true)
	for i := 0; i < 240; i++ {
		move := vec.Vec2Float{X: 1}
		if i%90 > 60 {
			move.X = -1
		}
		jump := i%50 == 0
		for _, body := range []*Body{a, b} {
			body.Simulation.Movement = move
			if jump {
				body.IsJumping = true
			}
		}
		ea := Step(a, g, tick)
		eb := Step(b, g, tick)
		require.Equal(t, ea, eb, "события должны совпадать на тике %d", i)
	}

	assert.Equal(t, a.Simulation, b.Simulation, "одинаковый ввод даёт одинаковое состояние")
	assert.Equal(t, a.Gravity, b.Gravity)
}

func TestStep_WallStopsMovement(t *testing.T) {
	g := newStubGrid(10, 30)
	b := NewBody(vec.Vec2Float{X: 32, Y: 448}, false)
	b.Simulation.Movement = vec.Vec2Float{X: 1}

	run(b, g, 200)

	assert.Equal(t, float64(9*TileWidth-BodyWidth), b.Simulation.Position.X, "стена останавливает тело")
	assert.Equal(t, 0.0, b.Simulation.Velocity.X, "скорость у стены обнуляется")
	assert.Equal(t, FacingRight, b.Facing)

	b.Simulation.Movement = vec.Vec2Float{X: -1}
	Step(b, g, tick)
	assert.Equal(t, FacingLeft, b.Facing)
}

func TestStep_JumpHeldEmitsStartAndStop(t *testing.T) {
	g := newStubGrid(10, 30)
	b := NewBody(vec.Vec2Float{X: 32, Y: 448}, true)
	run(b, g, 10)
	require.True(t, b.IsOnGround, "тело должно стоять на полу перед прыжком")

	b.IsJumping = true
	startY := b.Simulation.Position.Y
	events := Step(b, g, tick)
	require.Equal(t, []Event{EventJumpStarted}, events)
	assert.Less(t, b.Simulation.Position.Y, startY, "прыжок поднимает тело")
	assert.Equal(t, block.DirDefault, b.JumpDirection)

	events = run(b, g, 30)
	assert.Contains(t, events, EventJumpStopped, "подъём заканчивается после MaxJumpTime")
	assert.False(t, b.IsJumping)
	assert.Equal(t, 0.0, b.JumpTime)
}

func TestStep_JumpReleasedEmitsLanded(t *testing.T) {
	g := newStubGrid(10, 30)
	b := NewBody(vec.Vec2Float{X: 32, Y: 448}, true)
	run(b, g, 10)

	b.IsJumping = true
	run(b, g, 3)
	require.Greater(t, b.JumpTime, 0.0)

	b.IsJumping = false
	events := Step(b, g, tick)
	assert.Equal(t, []Event{EventLanded}, events)
	assert.Equal(t, 0.0, b.JumpTime)
}

func TestStep_RemoteBodyEmitsNoEvents(t *testing.T) {
	g := newStubGrid(10, 30)
	b := NewBody(vec.Vec2Float{X: 32, Y: 448}, false)
	run(b, g, 10)

	b.IsJumping = true
	events := run(b, g, 40)
	assert.Empty(t, events, "чужие тела не порождают событий")
	assert.Less(t, b.Simulation.Position.Y, 448.0+1, "прыжок всё равно симулируется")
}

func TestStep_JumpWithoutGroundDoesNotStart(t *testing.T) {
	g := newStubGrid(10, 30)
	b := NewBody(vec.Vec2Float{X: 32, Y: 64}, true)

	b.IsJumping = true
	events := Step(b, g, tick)
	assert.Empty(t, events, "в воздухе прыжок не начинается")
	assert.Equal(t, 0.0, b.JumpTime)
}

func TestJumpCurve(t *testing.T) {
	assert.Equal(t, JumpLaunchVelocity, JumpCurve(0), "в момент старта скорость равна стартовой")
	assert.InDelta(t, 0.0, JumpCurve(MaxJumpTime), 1e-9, "в конце подъёма скорость равна нулю")
	assert.Less(t, JumpCurve(0.05), JumpCurve(0.2), "подъём замедляется")
}

func TestApplyJump_DirectionFollowsGravity(t *testing.T) {
	b := NewBody(vec.Zero, true)
	b.IsOnGround = true
	b.IsJumping = true
	b.Gravity = block.DirUp

	v, events := ApplyJump(b, 0, tick)
	assert.Equal(t, []Event{EventJumpStarted}, events)
	assert.Greater(t, v, 0.0, "при гравитации вверх прыжок направлен вниз")
	assert.Equal(t, block.DirUp, b.JumpDirection)
	assert.True(t, b.WasJumping)
}

func TestResolveAxis_PlatformFromAbove(t *testing.T) {
	g := newStubGrid(10, 10)
	g.set(3, 5, block.WoodBlockID)

	b := NewBody(vec.Vec2Float{X: 48, Y: 60}, false)
	b.Simulation.Position.Y = 68

	res := ResolveAxis(b, g, AxisY, AxisY)
	assert.Equal(t, -4.0, res.Displacement)
	assert.True(t, res.Ground)
	assert.True(t, b.IsOnGround)
	assert.Equal(t, 64.0, b.Simulation.Position.Y, "тело стоит на платформе")
}

func TestResolveAxis_PlatformPassableFromBelow(t *testing.T) {
	g := newStubGrid(10, 10)
	g.set(3, 5, block.WoodBlockID)

	b := NewBody(vec.Vec2Float{X: 48, Y: 90}, false)
	b.Simulation.Position.Y = 85

	res := ResolveAxis(b, g, AxisY, AxisY)
	assert.Equal(t, 0.0, res.Displacement, "снизу платформа проходима")
	assert.False(t, b.IsOnGround)
	assert.Equal(t, 85.0, b.Simulation.Position.Y)

	b.Simulation.Position = vec.Vec2Float{X: 40, Y: 80}
	b.Previous.Position = vec.Vec2Float{X: 40, Y: 80}
	res = ResolveAxis(b, g, AxisX, AxisY)
	assert.Equal(t, 0.0, res.Displacement, "по горизонтали платформа проходима")
}

func TestResolveAxis_CeilingCancelsJump(t *testing.T) {
	g := newStubGrid(10, 10)
	b := NewBody(vec.Vec2Float{X: 48, Y: 20}, true)
	b.Simulation.Position.Y = 12
	b.IsJumping = true
	b.JumpTime = 0.1

	ResolveAxis(b, g, AxisY, AxisY)
	assert.Equal(t, 16.0, b.Simulation.Position.Y)
	assert.False(t, b.IsJumping, "удар о потолок обрывает прыжок")
	assert.Equal(t, 0.0, b.JumpTime)
}

func TestResolveAxis_WallKeepsJump(t *testing.T) {
	g := newStubGrid(10, 10)
	b := NewBody(vec.Vec2Float{X: 20, Y: 64}, true)
	b.Simulation.Position.X = 12
	b.IsJumping = true
	b.JumpTime = 0.1

	ResolveAxis(b, g, AxisX, AxisY)
	assert.Equal(t, 16.0, b.Simulation.Position.X)
	assert.True(t, b.IsJumping, "стена не обрывает прыжок при вертикальной гравитации")
}

func TestStep_ArrowRedirectsGravity(t *testing.T) {
	g := newStubGrid(10, 10)
	g.set(3, 3, block.UpArrowBlockID)

	b := NewBody(vec.Vec2Float{X: 48, Y: 48}, false)
	Step(b, g, tick)
	assert.Equal(t, block.DirUp, b.Gravity, "стрелка задаёт направление гравитации")

	b.Teleport(vec.Vec2Float{X: 100, Y: 100})
	Step(b, g, tick)
	assert.Equal(t, block.DirDefault, b.Gravity, "вне стрелки гравитация сбрасывается")
}

func TestStep_DownArrowPullsHarder(t *testing.T) {
	g := newStubGrid(10, 10)
	normal := NewBody(vec.Vec2Float{X: 48, Y: 48}, false)
	arrow := NewBody(vec.Vec2Float{X: 48, Y: 48}, false)
	arrow.Gravity = block.DirDown

	Step(normal, g, tick)
	Step(arrow, g, tick)
	assert.Greater(t, arrow.Simulation.Velocity.Y, normal.Simulation.Velocity.Y)
}

func TestStep_GodModeClampedToWorld(t *testing.T) {
	g := newStubGrid(10, 10)
	b := NewBody(vec.Vec2Float{X: 80, Y: 80}, false)
	b.Mode = ModeGod

	b.Simulation.Movement = vec.Vec2Float{X: -1, Y: -1}
	run(b, g, 300)
	assert.Equal(t, vec.Vec2Float{X: TileWidth, Y: TileHeight}, b.Simulation.Position)

	b.Simulation.Movement = vec.Vec2Float{X: 1, Y: 1}
	run(b, g, 300)
	assert.Equal(t, vec.Vec2Float{X: 10*TileWidth - 2*TileWidth, Y: 10*TileHeight - 2*TileHeight}, b.Simulation.Position)
}

func TestStep_GodModeIgnoresGravity(t *testing.T) {
	g := newStubGrid(10, 10)
	b := NewBody(vec.Vec2Float{X: 80, Y: 80}, false)
	b.Mode = ModeGod

	run(b, g, 60)
	assert.Equal(t, vec.Vec2Float{X: 80, Y: 80}, b.Simulation.Position, "без ввода тело висит на месте")
	assert.False(t, b.IsOnGround)
}

func TestStep_FallAccelerationOnOpenGrid(t *testing.T) {
	g := &stubGrid{width: 20, height: 2000, cells: make(map[vec.Vec2]block.BlockID)}
	b := NewBody(vec.Vec2Float{X: 64, Y: 64}, false)

	prev := 0.0
	for i := 0; i < 120; i++ {
		Step(b, g, tick)
		v := b.Simulation.Velocity.Y
		if prev < MaxFallSpeed {
			assert.Greater(t, v, prev, "скорость падения растёт на тике %d", i)
		} else {
			assert.Equal(t, MaxFallSpeed, v, "скорость падения ограничена")
		}
		assert.False(t, b.IsOnGround, "в пустой сетке земли нет")
		prev = v
	}
}

func TestResolveAxis_Idempotent(t *testing.T) {
	g := newStubGrid(10, 10)
	g.set(4, 3, block.BlueBlockID)

	b := NewBody(vec.Vec2Float{X: 60, Y: 48}, false)
	b.Simulation.Position.X = 60

	first := ResolveAxis(b, g, AxisX, AxisY)
	require.NotZero(t, first.Displacement, "первый проход выталкивает тело")

	second := ResolveAxis(b, g, AxisX, AxisY)
	assert.Zero(t, second.Displacement, "повторное разрешение не сдвигает тело")
	assert.Equal(t, 48.0, b.Simulation.Position.X)
}
