package vec

// Vec3 адресует ячейку сетки тайлов: X, Y и слой Z
type Vec3 struct {
	X int
	Y int
	Z int
}

// Tile координаты ячейки без слоя
func (v Vec3) Tile() Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}
