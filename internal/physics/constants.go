package physics

// Размеры тайла сетки в пикселях
const (
	TileWidth  = 16
	TileHeight = 16
)

// Размер тела игрока в пикселях
const (
	BodyWidth  = 16
	BodyHeight = 16
)

// Параметры интегратора
const (
	MoveSpeed             = 35.0   // ускорение по боковой оси при зажатой клавише
	GodMoveSpeed          = 10.0   // ускорение в режиме бога
	GroundDragFactor      = 0.94   // сопротивление на земле
	AirDragFactor         = 0.94   // сопротивление в воздухе
	MoveSlowDownFactor    = 0.15   // коэффициент затухания скорости после отпускания клавиши
	GodMoveSlowDownFactor = 0.1    // то же для режима бога
	MaxJumpTime           = 0.23   // максимальная длительность подъёма, сек
	JumpLaunchVelocity    = -3500. // начальная скорость прыжка
	GravityAcceleration   = 1000.0
	DownArrowGravityScale = 2.5 // стрелка вниз тянет сильнее обычной гравитации
	GravitySubStep        = 0.0166
	MaxFallSpeed          = 450.0
	JumpControlPower      = 0.14
	MaxVelocity           = 700.0
	MaxGodVelocity        = 550.0
	GodMaxStep            = 10.0 // максимальное смещение за тик в режиме бога, px
)
