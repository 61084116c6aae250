package world

import (
	"errors"
	"fmt"

	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Размер тайла в пикселях
const (
	TileWidth  = physics.TileWidth
	TileHeight = physics.TileHeight
)

// MaxDimension наибольшая ширина и высота карты в тайлах
const MaxDimension = 4096

var (
	ErrOutOfBounds  = errors.New("world: coordinates out of bounds")
	ErrUnknownBlock = errors.New("world: unknown block id")
	ErrWrongLayer   = errors.New("world: block not allowed on layer")
	ErrNoChange     = errors.New("world: block already set")
	ErrBadTiles     = errors.New("world: tile data size mismatch")
)

// TileGrid двухслойная сетка идентификаторов блоков W×H
type TileGrid struct {
	width  int
	height int
	// cells[(z*height+y)*width+x]
	cells []block.BlockID
}

// NewTileGrid создаёт пустую сетку
func NewTileGrid(width, height int) *TileGrid {
	return &TileGrid{
		width:  width,
		height: height,
		cells:  make([]block.BlockID, width*height*LayerCount),
	}
}

// Size возвращает размер сетки в тайлах
func (g *TileGrid) Size() (int, int) {
	return g.width, g.height
}

// Width ширина сетки в тайлах
func (g *TileGrid) Width() int { return g.width }

// Height высота сетки в тайлах
func (g *TileGrid) Height() int { return g.height }

// InBounds проверяет, что ячейка существует
func (g *TileGrid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.width && y < g.height && z < LayerCount
}

func (g *TileGrid) index(x, y, z int) int {
	return (z*g.height+y)*g.width + x
}

// ID возвращает идентификатор блока в ячейке
func (g *TileGrid) ID(x, y, z int) (block.BlockID, error) {
	if !g.InBounds(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, x, y, z)
	}
	return g.cells[g.index(x, y, z)], nil
}

// Get возвращает тип блока в ячейке
func (g *TileGrid) Get(x, y, z int) (block.BlockType, error) {
	id, err := g.ID(x, y, z)
	if err != nil {
		return block.BlockType{}, err
	}
	bt, ok := block.FromID(id)
	if !ok {
		return block.BlockType{}, fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	return bt, nil
}

// Set записывает блок в ячейку. Координаты не обрезаются.
func (g *TileGrid) Set(x, y, z int, id block.BlockID) error {
	if !g.InBounds(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d)", ErrOutOfBounds, x, y, z)
	}
	bt, ok := block.FromID(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	if !bt.AllowedOn(z) {
		return fmt.Errorf("%w: %s on %d", ErrWrongLayer, bt.Name, z)
	}
	g.cells[g.index(x, y, z)] = id
	return nil
}

// Collision реализует physics.Grid: класс столкновения переднего слоя.
// Клетки за границей мира непроходимы.
func (g *TileGrid) Collision(x, y int) (block.Collision, block.Direction) {
	if !g.InBounds(x, y, LayerIndexForeground) {
		return block.Impassable, block.DirDefault
	}
	bt, ok := block.FromID(g.cells[g.index(x, y, LayerIndexForeground)])
	if !ok {
		return block.Passable, block.DirDefault
	}
	return bt.Collision, bt.Redirect
}

// Tiles возвращает содержимое сетки: слой, затем строка, затем столбец
func (g *TileGrid) Tiles() []byte {
	out := make([]byte, len(g.cells))
	for i, id := range g.cells {
		out[i] = byte(id)
	}
	return out
}

// LoadTiles восстанавливает сетку из Tiles(). Неизвестные блоки заменяются пустыми.
func LoadTiles(width, height int, data []byte) (*TileGrid, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: size %dx%d", ErrBadTiles, width, height)
	}
	g := NewTileGrid(width, height)
	if len(data) != len(g.cells) {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadTiles, len(data), len(g.cells))
	}
	for i, b := range data {
		id := block.BlockID(b)
		if block.IsValidBlockID(id) {
			g.cells[i] = id
		}
	}
	return g, nil
}

// Fill заполняет прямоугольник слоя z одним блоком, выходящие за границу клетки пропускаются
func (g *TileGrid) Fill(x0, y0, x1, y1, z int, id block.BlockID) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if g.InBounds(x, y, z) {
				_ = g.Set(x, y, z, id)
			}
		}
	}
}
