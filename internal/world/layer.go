package world

// Индексы слоёв сетки тайлов.
// Фон только рисуется, столкновения считаются по переднему плану.
const (
	LayerIndexBackground = iota
	LayerIndexForeground

	LayerCount // всегда последний: количество слоёв
)
