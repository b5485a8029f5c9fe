package graphics

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"dmgo/internal/ppu"
)

// Palette holds the colours for shades 0 (lightest) to 3 (darkest).
type Palette [4]color.RGBA

var palettes = map[string]Palette{
	"dmg": {
		{R: 254, G: 248, B: 208, A: 255},
		{R: 136, G: 192, B: 112, A: 255},
		{R: 39, G: 80, B: 70, A: 255},
		{R: 8, G: 24, B: 32, A: 255},
	},
	"gray": {
		{R: 255, G: 255, B: 255, A: 255},
		{R: 170, G: 170, B: 170, A: 255},
		{R: 85, G: 85, B: 85, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
	},
	"pocket": {
		{R: 196, G: 207, B: 161, A: 255},
		{R: 139, G: 149, B: 109, A: 255},
		{R: 77, G: 83, B: 60, A: 255},
		{R: 31, G: 31, B: 31, A: 255},
	},
}

// LookupPalette returns the named palette.
func LookupPalette(name string) (Palette, error) {
	p, ok := palettes[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette %q", name)
	}
	return p, nil
}

// PaletteNames returns the names of the built in palettes in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VideoProcessor turns PPU shade frames into RGBA images, applying colour
// adjustments to the palette.
type VideoProcessor struct {
	brightness float32
	contrast   float32
	saturation float32

	base     Palette
	adjusted Palette
	image    *image.RGBA
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(palette Palette, brightness, contrast, saturation float32) *VideoProcessor {
	vp := &VideoProcessor{
		brightness: brightness,
		contrast:   contrast,
		saturation: saturation,
		base:       palette,
		image:      image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight)),
	}
	vp.update()
	return vp
}

// ProcessFrame converts a frame to an image. The returned image is reused by
// the next call.
func (vp *VideoProcessor) ProcessFrame(frame *ppu.FrameBuffer) *image.RGBA {
	pix := vp.image.Pix
	for i, shade := range frame {
		c := vp.adjusted[shade&3]
		pix[i*4] = c.R
		pix[i*4+1] = c.G
		pix[i*4+2] = c.B
		pix[i*4+3] = 0xFF
	}
	return vp.image
}

// Palette returns the palette after adjustments.
func (vp *VideoProcessor) Palette() Palette {
	return vp.adjusted
}

// SetPalette replaces the base palette.
func (vp *VideoProcessor) SetPalette(palette Palette) {
	vp.base = palette
	vp.update()
}

// SetBrightness updates the brightness value
func (vp *VideoProcessor) SetBrightness(brightness float32) {
	vp.brightness = brightness
	vp.update()
}

// SetContrast updates the contrast value
func (vp *VideoProcessor) SetContrast(contrast float32) {
	vp.contrast = contrast
	vp.update()
}

// SetSaturation updates the saturation value
func (vp *VideoProcessor) SetSaturation(saturation float32) {
	vp.saturation = saturation
	vp.update()
}

// update recomputes the four output colours. Only four colours are ever
// shown so the adjustments are applied here rather than per pixel.
func (vp *VideoProcessor) update() {
	for i, c := range vp.base {
		vp.adjusted[i] = vp.adjust(c)
	}
}

func (vp *VideoProcessor) adjust(c color.RGBA) color.RGBA {
	// If all values are at default (1.0), no processing needed
	if vp.brightness == 1.0 && vp.contrast == 1.0 && vp.saturation == 1.0 {
		return c
	}

	r := float32(c.R) * vp.brightness
	g := float32(c.G) * vp.brightness
	b := float32(c.B) * vp.brightness

	r = ((r/255.0-0.5)*vp.contrast + 0.5) * 255.0
	g = ((g/255.0-0.5)*vp.contrast + 0.5) * 255.0
	b = ((b/255.0-0.5)*vp.contrast + 0.5) * 255.0

	if vp.saturation != 1.0 {
		h, s, l := rgbToHSL(clamp(r, 0, 255)/255.0, clamp(g, 0, 255)/255.0, clamp(b, 0, 255)/255.0)
		s = clamp(s*vp.saturation, 0, 1)
		r, g, b = hslToRGB(h, s, l)
		r *= 255.0
		g *= 255.0
		b *= 255.0
	}

	return color.RGBA{
		R: uint8(clamp(r, 0, 255)),
		G: uint8(clamp(g, 0, 255)),
		B: uint8(clamp(b, 0, 255)),
		A: 255,
	}
}

// clamp limits a value to a range
func clamp(value, min, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// rgbToHSL converts RGB to HSL color space
func rgbToHSL(r, g, b float32) (h, s, l float32) {
	max := math.Max(float64(r), math.Max(float64(g), float64(b)))
	min := math.Min(float64(r), math.Min(float64(g), float64(b)))

	l = float32((max + min) / 2.0)

	if max == min {
		return 0, 0, l
	}

	d := float32(max - min)
	if l > 0.5 {
		s = d / float32(2.0-max-min)
	} else {
		s = d / float32(max+min)
	}

	switch max {
	case float64(r):
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case float64(g):
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h /= 6

	return h, s, l
}

// hslToRGB converts HSL to RGB color space
func hslToRGB(h, s, l float32) (r, g, b float32) {
	if s == 0 {
		return l, l, l
	}

	var q float32
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3.0), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3.0)
}

func hueToRGB(p, q, t float32) float32 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
