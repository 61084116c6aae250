package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/bricklayer/internal/util"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// Имена генераторов карт
const (
	GeneratorBordered = "bordered"
	GeneratorPerlin   = "perlin"
)

// Параметры генерации рельефа
const (
	terrainNoiseScale = 0.05 // сглаженность линии поверхности
	caveNoiseScale    = 0.12
	caveThreshold     = 0.72 // выше — пещера
	platformChance    = 0.04
	arrowChance       = 0.01
)

// Generate строит сетку выбранным генератором и возвращает точку появления
func Generate(kind string, width, height int, seed int64) (*TileGrid, vec.Vec2Float, error) {
	if width < 3 || height < 3 {
		return nil, vec.Zero, fmt.Errorf("world: map %dx%d is too small", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, vec.Zero, fmt.Errorf("world: map %dx%d is too large", width, height)
	}

	switch kind {
	case "", GeneratorBordered:
		return Bordered(width, height), DefaultSpawn(), nil
	case GeneratorPerlin:
		g := NewPerlinGenerator(seed)
		grid, spawn := g.Generate(width, height)
		return grid, spawn, nil
	default:
		return nil, vec.Zero, fmt.Errorf("world: unknown generator %q", kind)
	}
}

// DefaultSpawn левый верхний угол внутри рамки
func DefaultSpawn() vec.Vec2Float {
	return vec.Vec2Float{X: TileWidth, Y: TileHeight}
}

// Bordered пустая карта с рамкой толщиной в один тайл
func Bordered(width, height int) *TileGrid {
	g := NewTileGrid(width, height)
	z := LayerIndexForeground
	g.Fill(0, 0, width-1, 0, z, block.DefaultBlockID)
	g.Fill(0, height-1, width-1, height-1, z, block.DefaultBlockID)
	g.Fill(0, 0, 0, height-1, z, block.DefaultBlockID)
	g.Fill(width-1, 0, width-1, height-1, z, block.DefaultBlockID)
	return g
}

// PerlinGenerator рельеф из шума Перлина внутри рамки
type PerlinGenerator struct {
	Seed    int64
	surface *util.Noise
	caves   *util.Noise
}

// NewPerlinGenerator создаёт генератор с указанным сидом
func NewPerlinGenerator(seed int64) *PerlinGenerator {
	return &PerlinGenerator{
		Seed:    seed,
		surface: util.NewNoise(seed, terrainNoiseScale),
		caves:   util.NewNoise(seed+1, caveNoiseScale),
	}
}

// surfaceRow строка поверхности в столбце x
func (pg *PerlinGenerator) surfaceRow(x, height int) int {
	base := height / 2
	amplitude := float64(height) / 3
	row := base + int((pg.surface.Noise1D(x)-0.5)*amplitude)
	if row < 3 {
		row = 3
	}
	if row > height-2 {
		row = height - 2
	}
	return row
}

// layerBlock выбирает блок по глубине под поверхностью
func layerBlock(depth int) block.BlockID {
	switch {
	case depth == 0:
		return block.GreenBlockID
	case depth < 3:
		return block.YellowBlockID
	case depth < 6:
		return block.OrangeBlockID
	case depth < 10:
		return block.RedBlockID
	default:
		return block.GreyBlockID
	}
}

// Generate заполняет сетку width×height
func (pg *PerlinGenerator) Generate(width, height int) (*TileGrid, vec.Vec2Float) {
	g := Bordered(width, height)
	// Локальный генератор случайных чисел для детерминированности
	rng := rand.New(rand.NewSource(pg.Seed))

	for x := 1; x < width-1; x++ {
		surface := pg.surfaceRow(x, height)
		for y := surface; y < height-1; y++ {
			_ = g.Set(x, y, LayerIndexBackground, block.StoneBackgroundBlockID)
			if y > surface+1 && pg.caves.At(x, y) > caveThreshold {
				continue
			}
			_ = g.Set(x, y, LayerIndexForeground, layerBlock(y-surface))
		}

		// над поверхностью: платформы и редкие стрелки
		for y := 2; y < surface-2; y++ {
			r := rng.Float64()
			switch {
			case r < arrowChance:
				arrows := []block.BlockID{
					block.UpArrowBlockID, block.DownArrowBlockID,
					block.LeftArrowBlockID, block.RightArrowBlockID,
				}
				_ = g.Set(x, y, LayerIndexForeground, arrows[rng.Intn(len(arrows))])
			case r < arrowChance+platformChance:
				_ = g.Set(x, y, LayerIndexForeground, block.WoodBlockID)
				_ = g.Set(x, y, LayerIndexBackground, block.BrickBackgroundBlockID)
			}
		}
	}

	// точка появления над поверхностью первого столбца, клетка расчищается
	spawnRow := pg.surfaceRow(1, height) - 1
	_ = g.Set(1, spawnRow, LayerIndexForeground, block.EmptyBlockID)
	spawn := vec.Vec2{X: 1, Y: spawnRow}.ToPixels(TileWidth, TileHeight)
	return g, spawn
}
