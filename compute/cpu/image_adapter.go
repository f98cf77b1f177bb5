package cpu

import (
	"image"
	"image/color"
)

// floatColor adapts one interleaved float32 sample to color.Color so
// golang.org/x/image/draw's Scaler implementations (built on
// image.Image/color.Color) can resample it. x/image/draw's color.Color
// bridge is 16-bit (RGBA() returns uint32 values in [0, 0xffff]), so
// channel values outside [0,1] are clamped and precision below
// 1/65535 is lost across a resize; this is an accepted tradeoff for
// reusing the library's battle-tested separable filters rather than
// hand-rolling bilinear/Catmull-Rom taps (see DESIGN.md).
type floatColor struct {
	r, g, b, a float32
}

func (c floatColor) RGBA() (r, g, b, a uint32) {
	return clampTo16(c.r), clampTo16(c.g), clampTo16(c.b), clampTo16(c.a)
}

func clampTo16(v float32) uint32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint32(v * 0xffff)
}

// floatImage is a minimal image.Image/draw.Image over an interleaved
// []float32 buffer, used only as the src/dst of a draw.Scaler.Scale call;
// it is not a general-purpose image type.
type floatImage struct {
	data []float32
	dims dimsLike
}

// dimsLike avoids importing compute.Dims's package cycle concerns by
// structurally matching its fields; cpu constructs it directly from a
// compute.Dims value.
type dimsLike struct {
	W, H, C int
}

func (im *floatImage) ColorModel() color.Model { return color.RGBA64Model }

func (im *floatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.dims.W, im.dims.H)
}

func (im *floatImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= im.dims.W || y >= im.dims.H {
		return floatColor{}
	}
	base := (y*im.dims.W + x) * im.dims.C
	c := floatColor{a: 1}
	if im.dims.C > 0 {
		c.r = im.data[base]
	}
	if im.dims.C > 1 {
		c.g = im.data[base+1]
	}
	if im.dims.C > 2 {
		c.b = im.data[base+2]
	}
	if im.dims.C > 3 {
		c.a = im.data[base+3]
	}
	return c
}

func (im *floatImage) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= im.dims.W || y >= im.dims.H {
		return
	}
	r, g, b, a := c.RGBA()
	base := (y*im.dims.W + x) * im.dims.C
	vals := [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff, float32(a) / 0xffff}
	for ch := 0; ch < im.dims.C && ch < 4; ch++ {
		im.data[base+ch] = vals[ch]
	}
}
