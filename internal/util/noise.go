package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise генератор шума Перлина с фиксированным сидом
type Noise struct {
	perlin *perlin.Perlin
	scale  float64
}

// NewNoise создаёт генератор шума; scale задаёт масштаб координат
func NewNoise(seed int64, scale float64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{
		perlin: perlin.NewPerlin(alpha, beta, n, seed),
		scale:  scale,
	}
}

// At возвращает значение шума в точке (от 0 до 1)
func (n *Noise) At(x, y int) float64 {
	// Noise2D возвращает значение примерно от -1 до 1
	v := n.perlin.Noise2D(float64(x)*n.scale, float64(y)*n.scale)
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Noise1D возвращает одномерный шум (от 0 до 1), используется для высоты рельефа
func (n *Noise) Noise1D(x int) float64 {
	v := (n.perlin.Noise1D(float64(x)*n.scale) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
