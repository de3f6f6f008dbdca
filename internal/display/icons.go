package display

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/TheCacophonyProject/x728-battery/monitor"
)

const (
	iconSize   = 22
	bodyLeft   = 1
	bodyRight  = 18
	bodyTop    = 5
	bodyBottom = 16
)

var (
	outlineColor  = color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}
	levelColor    = color.RGBA{0x4C, 0xAF, 0x50, 0xFF}
	lowLevelColor = color.RGBA{0xFF, 0x98, 0x00, 0xFF}
	chargingColor = color.RGBA{0x21, 0x96, 0xF3, 0xFF}
	warningColor  = color.RGBA{0xF4, 0x43, 0x36, 0xFF}
)

var (
	iconsOnce sync.Once
	icons     map[monitor.StatusCategory][]byte
)

// Icon returns the PNG icon for a category.
func Icon(c monitor.StatusCategory) []byte {
	iconsOnce.Do(renderIcons)
	if icon, ok := icons[c]; ok {
		return icon
	}
	return icons[monitor.LowVoltageWarning]
}

func renderIcons() {
	icons = make(map[monitor.StatusCategory][]byte)
	for level := 0; level <= monitor.MaxLevel; level++ {
		fill := levelColor
		if level <= 1 {
			fill = lowLevelColor
		}
		icons[monitor.Normal(level)] = encode(drawBattery(outlineColor, fill, level))
	}
	icons[monitor.Charging] = encode(drawBattery(outlineColor, chargingColor, monitor.MaxLevel))
	icons[monitor.LowVoltageWarning] = encode(drawBattery(warningColor, warningColor, 1))
}

// drawBattery draws a battery outline with a terminal nub, filled in
// proportion to level out of MaxLevel.
func drawBattery(outline, fill color.Color, level int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for x := bodyLeft; x <= bodyRight; x++ {
		img.Set(x, bodyTop, outline)
		img.Set(x, bodyBottom, outline)
	}
	for y := bodyTop; y <= bodyBottom; y++ {
		img.Set(bodyLeft, y, outline)
		img.Set(bodyRight, y, outline)
	}
	for y := bodyTop + 3; y <= bodyBottom-3; y++ {
		img.Set(bodyRight+1, y, outline)
		img.Set(bodyRight+2, y, outline)
	}

	innerWidth := bodyRight - bodyLeft - 3
	filled := innerWidth * level / monitor.MaxLevel
	for x := bodyLeft + 2; x < bodyLeft+2+filled; x++ {
		for y := bodyTop + 2; y <= bodyBottom-2; y++ {
			img.Set(x, y, fill)
		}
	}
	return img
}

func encode(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Encoding an in memory RGBA image does not fail.
		panic(err)
	}
	return buf.Bytes()
}
