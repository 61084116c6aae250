package physics

import (
	"math"

	"github.com/annel0/bricklayer/internal/world/block"
)

// Rect прямоугольник в пикселях, левый верхний угол в (X, Y)
type Rect struct {
	X, Y          int
	Width, Height int
}

// TileBounds возвращает прямоугольник тайла (x, y)
func TileBounds(x, y int) Rect {
	return Rect{X: x * TileWidth, Y: y * TileHeight, Width: TileWidth, Height: TileHeight}
}

func (r Rect) Left() int   { return r.X }
func (r Rect) Right() int  { return r.X + r.Width }
func (r Rect) Top() int    { return r.Y }
func (r Rect) Bottom() int { return r.Y + r.Height }

// Intersects проверяет пересечение двух прямоугольников (касание не считается)
func (r Rect) Intersects(other Rect) bool {
	return r.Left() < other.Right() &&
		other.Left() < r.Right() &&
		r.Top() < other.Bottom() &&
		other.Top() < r.Bottom()
}

// HorizontalDepth возвращает знаковую глубину проникновения по X.
// Сдвиг r на это значение выталкивает его из other; 0 если пересечения нет.
func (r Rect) HorizontalDepth(other Rect) float64 {
	return depth(float64(r.X), float64(r.Width), float64(other.X), float64(other.Width))
}

// VerticalDepth то же по оси Y
func (r Rect) VerticalDepth(other Rect) float64 {
	return depth(float64(r.Y), float64(r.Height), float64(other.Y), float64(other.Height))
}

// DepthAlong возвращает глубину по указанной оси
func (r Rect) DepthAlong(other Rect, axis Axis) float64 {
	if axis == AxisX {
		return r.HorizontalDepth(other)
	}
	return r.VerticalDepth(other)
}

func depth(startA, sizeA, startB, sizeB float64) float64 {
	halfA := sizeA / 2
	halfB := sizeB / 2
	distance := (startA + halfA) - (startB + halfB)
	minDistance := halfA + halfB

	if math.Abs(distance) >= minDistance {
		return 0
	}
	if distance > 0 {
		return minDistance - distance
	}
	return -minDistance - distance
}

// Grid сетка тайлов, с которой сталкивается тело
type Grid interface {
	// Size возвращает размер сетки в тайлах
	Size() (width, height int)
	// Collision возвращает класс столкновения переднего слоя и направление
	// гравитации для стрелок. Клетки за пределами сетки непроходимы.
	Collision(x, y int) (block.Collision, block.Direction)
}

// Resolution итог разрешения столкновений по одной оси
type Resolution struct {
	Displacement float64 // суммарный сдвиг тела по оси
	Ground       bool
	Redirected   bool
	Redirect     block.Direction
}

// GravityAxis возвращает ось, вдоль которой действует гравитация
func GravityAxis(d block.Direction) Axis {
	if d.IsHorizontal() {
		return AxisX
	}
	return AxisY
}

// ResolveAxis выталкивает тело из тайлов, пересекаемых по одной оси.
// Клетки перебираются построчно сверху вниз, слева направо. Касание
// стрелки гравитации прерывает перебор. Контакт по оси гравитации
// обрывает прыжок.
func ResolveAxis(b *Body, g Grid, axis Axis, gravityAxis Axis) Resolution {
	var res Resolution
	b.IsOnGround = false

	bounds := b.Bounds()
	previous := b.PreviousBounds()

	left := floorDiv(bounds.Left(), TileWidth)
	right := ceilDiv(bounds.Right(), TileWidth) - 1
	top := floorDiv(bounds.Top(), TileHeight)
	bottom := ceilDiv(bounds.Bottom(), TileHeight) - 1

	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			collision, redirect := g.Collision(x, y)
			if collision == block.Passable {
				continue
			}

			tile := TileBounds(x, y)
			current := b.Bounds()
			if !current.Intersects(tile) {
				continue
			}
			d := current.DepthAlong(tile, axis)
			if d == 0 {
				continue
			}

			switch collision {
			case block.Gravity:
				res.Redirected = true
				res.Redirect = redirect
				return res
			case block.Platform:
				// платформа держит только сверху
				if axis != AxisY || previous.Bottom() > tile.Top() {
					continue
				}
			}

			pos := component(b.Simulation.Position, axis)
			setComponent(&b.Simulation.Position, axis, pos+d)
			res.Displacement += d
			res.Ground = true
			b.IsOnGround = true

			if axis == gravityAxis {
				b.IsJumping = false
				b.JumpTime = 0
			}
		}
	}

	return res
}

func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}

func ceilDiv(a, b int) int {
	return int(math.Ceil(float64(a) / float64(b)))
}
