package world

import (
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world/block"
)

// BlockChange описывает применённое изменение ячейки
type BlockChange struct {
	Position vec.Vec3 // X, Y и слой Z
	Old      block.BlockID
	New      block.BlockID
}
