package spectrogram

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme is a predefined power-to-colour scheme.
type ColorTheme string

const (
	DefaultTheme   ColorTheme = "default"   // black, blue, cyan, yellow, red
	ClassicTheme   ColorTheme = "classic"   // blue to red
	GrayscaleTheme ColorTheme = "grayscale" // black to white
	ThermalTheme   ColorTheme = "thermal"   // black, red, yellow, white
	ViridisTheme   ColorTheme = "viridis"   // purple, teal, yellow

	DefaultColorMapSize = 256
)

var themes = map[ColorTheme]func(float64) color.Color{
	DefaultTheme:   enhanced,
	ClassicTheme:   classic,
	GrayscaleTheme: grayscale,
	ThermalTheme:   thermal,
	ViridisTheme:   viridis,
}

func (t ColorTheme) Validate() error {
	if t == "" {
		return nil
	}
	if _, ok := themes[t]; !ok {
		return fmt.Errorf("spectrogram: unknown colour theme: %s", t)
	}
	return nil
}

// ColorMapper maps power values to colours through a pre-computed table.
type ColorMapper struct {
	colorMap      []color.Color
	bounds        PowerBounds
	powerPerIndex float64
}

func NewColorMapper(theme ColorTheme, bounds PowerBounds) *ColorMapper {
	fn, ok := themes[theme]
	if !ok {
		fn = enhanced
	}

	cm := ColorMapper{
		colorMap:      make([]color.Color, DefaultColorMapSize),
		bounds:        bounds,
		powerPerIndex: (bounds.Max - bounds.Min) / float64(DefaultColorMapSize-1),
	}

	for i := range cm.colorMap {
		cm.colorMap[i] = fn(float64(i) / float64(DefaultColorMapSize-1))
	}

	return &cm
}

// Color returns the colour for a power value, clamped to the bounds.
func (cm *ColorMapper) Color(power float64) color.Color {
	power = math.Max(cm.bounds.Min, math.Min(power, cm.bounds.Max))

	index := 0
	if cm.powerPerIndex > 0 {
		index = int(math.Round((power - cm.bounds.Min) / cm.powerPerIndex))
	}
	index = max(0, min(index, len(cm.colorMap)-1))

	return cm.colorMap[index]
}

// hsv returns the colour for hue h in degrees, saturation s and value v.
// Saturation and value are clamped to [0, 1].
func hsv(h, s, v float64) color.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return colorful.Hsv(h, clamp(s), clamp(v)).Clamped()
}

func clamp(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// enhanced gives better differentiation in the lower power ranges
func enhanced(power float64) color.Color {
	power = math.Max(0, math.Min(1, power))
	e := math.Pow(power, 0.7)

	switch {
	case power < 0.25:
		return hsv(240, 1.0, e * 4)
	case power < 0.5:
		return hsv(240 - ((power - 0.25) * 240), 1.0, e * 1.5)
	case power < 0.75:
		p := (power - 0.5) * 4
		return hsv(180 - (p * 120), 1.0, math.Min(1.0, e*1.5))
	default:
		p := (power - 0.75) * 4
		return hsv(60 - (p * 60), 1.0, 1.0)
	}
}

func classic(power float64) color.Color {
	return hsv(240-(power*240), 0.9+(power*0.1), math.Pow(power, 0.7))
}

func grayscale(power float64) color.Color {
	v := uint8(math.Pow(power, 0.7) * 255)
	return color.RGBA{R: v, G: v, B: v, A: 0xff}
}

func thermal(power float64) color.Color {
	switch {
	case power < 0.33:
		return color.RGBA{R: uint8(power * 3 * 255), A: 0xff}
	case power < 0.66:
		return color.RGBA{R: 255, G: uint8((power - 0.33) * 3 * 255), A: 0xff}
	default:
		return color.RGBA{R: 255, G: 255, B: uint8(math.Min(1, (power-0.66)*3) * 255), A: 0xff}
	}
}

// viridis approximates matplotlib's default map by hue rotation
func viridis(power float64) color.Color {
	return hsv(280-(power*220), 0.85-(power*0.1), 0.35+(power*0.65))
}
