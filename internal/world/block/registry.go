package block

import "sort"

var registry = make(map[BlockID]BlockType)

// Register добавляет тип блока в каталог
func Register(bt BlockType) {
	registry[bt.ID] = bt
}

// FromID возвращает тип блока для указанного ID
func FromID(id BlockID) (BlockType, bool) {
	bt, exists := registry[id]
	return bt, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все зарегистрированные типы, отсортированные по ID
func All() []BlockType {
	types := make([]BlockType, 0, len(registry))
	for _, bt := range registry {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

// BlockID представляет идентификатор блока (один байт на проводе)
type BlockID uint8

// Константы ID блоков
const (
	EmptyBlockID   BlockID = iota // 0
	DefaultBlockID                // 1 - рамка карты
	GreyBlockID
	RedBlockID
	OrangeBlockID
	YellowBlockID
	GreenBlockID
	BlueBlockID
	PurpleBlockID
	GlassBlockID
	WoodBlockID // 10 - платформа
	UpArrowBlockID
	DownArrowBlockID
	LeftArrowBlockID
	RightArrowBlockID
	StoneBackgroundBlockID // 15
	BrickBackgroundBlockID
)

func init() {
	solid := []struct {
		id    BlockID
		name  string
		layer Layer
	}{
		{DefaultBlockID, "default", LayerForeground},
		{GreyBlockID, "grey", LayerAll},
		{RedBlockID, "red", LayerAll},
		{OrangeBlockID, "orange", LayerAll},
		{YellowBlockID, "yellow", LayerAll},
		{GreenBlockID, "green", LayerAll},
		{BlueBlockID, "blue", LayerAll},
		{PurpleBlockID, "purple", LayerAll},
		{GlassBlockID, "glass", LayerForeground},
	}

	Register(BlockType{ID: EmptyBlockID, Name: "empty", Collision: Passable, Layer: LayerAll})
	for _, s := range solid {
		Register(BlockType{ID: s.id, Name: s.name, Collision: Impassable, Layer: s.layer})
	}
	Register(BlockType{ID: WoodBlockID, Name: "wood", Collision: Platform, Layer: LayerForeground})

	// Стрелки гравитации
	Register(BlockType{ID: UpArrowBlockID, Name: "up_arrow", Collision: Gravity, Layer: LayerForeground, Redirect: DirUp})
	Register(BlockType{ID: DownArrowBlockID, Name: "down_arrow", Collision: Gravity, Layer: LayerForeground, Redirect: DirDown})
	Register(BlockType{ID: LeftArrowBlockID, Name: "left_arrow", Collision: Gravity, Layer: LayerForeground, Redirect: DirLeft})
	Register(BlockType{ID: RightArrowBlockID, Name: "right_arrow", Collision: Gravity, Layer: LayerForeground, Redirect: DirRight})

	// Фоновые блоки
	Register(BlockType{ID: StoneBackgroundBlockID, Name: "stone_bg", Collision: Passable, Layer: LayerBackground})
	Register(BlockType{ID: BrickBackgroundBlockID, Name: "brick_bg", Collision: Passable, Layer: LayerBackground})
}
