package vec

// Vec2 координаты тайла в сетке
type Vec2 struct {
	X, Y int
}

// ToPixels переводит координаты тайла в пиксели левого верхнего угла
func (v Vec2) ToPixels(tileWidth, tileHeight int) Vec2Float {
	return Vec2Float{X: float64(v.X * tileWidth), Y: float64(v.Y * tileHeight)}
}
