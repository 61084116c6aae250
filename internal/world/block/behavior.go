package block

// Collision классифицирует поведение блока при столкновении с игроком
type Collision uint8

const (
	// Passable не мешает движению
	Passable Collision = iota
	// Impassable выталкивает тело на границу тайла по любой оси
	Impassable
	// Platform — односторонняя опора: держит только при подходе сверху
	Platform
	// Gravity не блокирует движение, а меняет направление гравитации
	Gravity
)

// String возвращает имя класса столкновения
func (c Collision) String() string {
	switch c {
	case Passable:
		return "passable"
	case Impassable:
		return "impassable"
	case Platform:
		return "platform"
	case Gravity:
		return "gravity"
	default:
		return "unknown"
	}
}

// Direction направление гравитации.
// DirDefault и DirDown обе направлены вниз, но стрелка DirDown тянет сильнее.
type Direction uint8

const (
	DirDefault Direction = iota
	DirDown
	DirUp
	DirLeft
	DirRight
)

// String возвращает имя направления
func (d Direction) String() string {
	switch d {
	case DirDefault:
		return "default"
	case DirDown:
		return "down"
	case DirUp:
		return "up"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "unknown"
	}
}

// IsVertical сообщает, что гравитация действует по оси Y
func (d Direction) IsVertical() bool {
	return d == DirDefault || d == DirDown || d == DirUp
}

// IsHorizontal сообщает, что гравитация действует по оси X
func (d Direction) IsHorizontal() bool {
	return d == DirLeft || d == DirRight
}

// Layer определяет, на каком слое блок может стоять
type Layer uint8

const (
	LayerBackground Layer = iota
	LayerForeground
	LayerAll
)

// BlockType неизменяемая запись каталога блоков
type BlockType struct {
	ID        BlockID
	Name      string
	Collision Collision
	Layer     Layer
	// Redirect задан только для стрелок гравитации
	Redirect Direction
}

// AllowedOn проверяет, может ли блок стоять на слое с индексом z (0 — фон, 1 — передний план)
func (b BlockType) AllowedOn(z int) bool {
	switch b.Layer {
	case LayerAll:
		return true
	case LayerBackground:
		return z == 0
	case LayerForeground:
		return z == 1
	}
	return false
}
