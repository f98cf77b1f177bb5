package exr

import (
	"github.com/deepteams/vfximg/codec/exr/compress"
	"github.com/deepteams/vfximg/imgbuf"
)

// channelLineCount returns how many samples channel c contributes for one
// scanline at image row y, honoring x/y subsampling (0 if this channel is
// absent on a subsampled row; spec.md SPEC_FULL.md §C.2 channel
// subsampling).
func channelLineCount(c imgbuf.Channel, dw imgbuf.Window, y int) int {
	ys := c.YSampling
	if ys < 1 {
		ys = 1
	}
	if (y-dw.YMin)%ys != 0 {
		return 0
	}
	xs := c.XSampling
	if xs < 1 {
		xs = 1
	}
	return (dw.Width() + xs - 1) / xs
}

// blockPlanes computes the (type, count) runs a scanline block of
// [yFirst, yFirst+lineCount) produces, in channel-then-line order
// matching the on-file layout: for each channel, all its lines in the
// block are stored contiguously (spec.md §4.1 "Flat payload: channels x
// samples_per_block").
func blockPlanes(ph *PartHeader, yFirst, lineCount int) []compress.Plane {
	dw := ph.Spec.DataWindow
	var planes []compress.Plane
	for _, c := range ph.Spec.Channels {
		total := 0
		for y := yFirst; y < yFirst+lineCount; y++ {
			total += channelLineCount(c, dw, y)
		}
		if total > 0 {
			planes = append(planes, compress.Plane{Type: c.Type, Count: total})
		}
	}
	return planes
}

func planesRawSize(planes []compress.Plane) int {
	n := 0
	for _, p := range planes {
		n += p.Count * p.Type.Size()
	}
	return n
}

// tileRectPlanes computes the (type, count) runs a tile rectangle
// [x0, x0+w) x [y0, y0+h) produces, honoring per-channel subsampling the
// same way blockPlanes does for scanline blocks.
func tileRectPlanes(ph *PartHeader, x0, y0, w, h int) []compress.Plane {
	var planes []compress.Plane
	for _, c := range ph.Spec.Channels {
		xs, ys := c.XSampling, c.YSampling
		if xs < 1 {
			xs = 1
		}
		if ys < 1 {
			ys = 1
		}
		lineSamples := (w + xs - 1) / xs
		lines := 0
		for y := y0; y < y0+h; y++ {
			if y%ys == 0 {
				lines++
			}
		}
		total := lineSamples * lines
		if total > 0 {
			planes = append(planes, compress.Plane{Type: c.Type, Count: total})
		}
	}
	return planes
}
