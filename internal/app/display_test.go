package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

func litPixels(img *image1bit.VerticalLSB, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < displayWidth; x++ {
			if img.At(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestDisplayLines(t *testing.T) {
	data := newMagnitudes()
	data.update(motion.Accelerometer, telemetry.Message{Magnitude: 1})
	data.update(motion.Magnetometer, telemetry.Message{Magnitude: 45.65})

	lines := displayLines(data.snapshot())
	require.Len(t, lines, 4)
	assert.Equal(t, "ACC    1.000 g", lines[0])
	assert.Equal(t, "GYR        -", lines[1])
	assert.Equal(t, "GRV        -", lines[2])
	assert.Equal(t, "MAG   45.650 µT", lines[3])

	for _, l := range lines {
		assert.LessOrEqual(t, len([]rune(l)), displayWidth/7, "line fits a 7px font")
	}
}

func TestRenderLines(t *testing.T) {
	img := renderLines([]string{"ACC    1.000 g"})
	assert.Equal(t, displayWidth, img.Bounds().Dx())
	assert.Equal(t, displayHeight, img.Bounds().Dy())
	assert.Positive(t, litPixels(img, 0, lineHeight))
	assert.Zero(t, litPixels(img, lineHeight, displayHeight), "only the first line is drawn")

	blank := renderLines(nil)
	assert.Zero(t, litPixels(blank, 0, displayHeight))
}
