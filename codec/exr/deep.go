package exr

import (
	"github.com/deepteams/vfximg/codec/exr/compress"
	"github.com/deepteams/vfximg/imgbuf"
)

// deepLinePlanes computes the (type, count) runs a deep scanline produces
// given its per-pixel sample counts, in the on-file channel-major order:
// each channel contributes one run covering every sample in the line.
func deepLinePlanes(ph *PartHeader, lineCounts []int32) []compress.Plane {
	var total int
	for _, n := range lineCounts {
		total += int(n)
	}
	if total == 0 {
		return nil
	}
	planes := make([]compress.Plane, 0, len(ph.Spec.Channels))
	for _, c := range ph.Spec.Channels {
		planes = append(planes, compress.Plane{Type: c.Type, Count: total})
	}
	return planes
}

// decodeDeepLine scatters one decompressed deep-scanline payload into
// builder, translating the on-file per-pixel sample counts (restarting
// from zero at each line) into per-pixel sample vectors that
// DeepBatchBuilder accumulates into the Buffer's global cumulative offset
// table (spec.md §4.1 "Deep payload... distinct from in-memory global
// cumulative").
func decodeDeepLine(ph *PartHeader, builder *imgbuf.DeepBatchBuilder, y int, lineCounts []int32, raw []byte, numChannels int) {
	dw := ph.Spec.DataWindow
	w := len(lineCounts)

	vectors := make([][][]float32, w)
	for x := 0; x < w; x++ {
		n := int(lineCounts[x])
		if n == 0 {
			continue
		}
		vectors[x] = make([][]float32, n)
		for s := range vectors[x] {
			vectors[x][s] = make([]float32, numChannels)
		}
	}

	off := 0
	for ci, ch := range ph.Spec.Channels {
		for x := 0; x < w; x++ {
			for s := 0; s < int(lineCounts[x]); s++ {
				v, n := decodeSample(raw, off, ch.Type)
				off += n
				vectors[x][s][ci] = v
			}
		}
	}

	for x := 0; x < w; x++ {
		for _, sample := range vectors[x] {
			builder.Add(dw.XMin+x, y, sample)
		}
	}
}

// encodeDeepLine is the inverse of decodeDeepLine: it reads scanline y's
// samples out of a deep Buffer and produces the per-pixel sample counts
// (restarting from zero, the on-file convention) plus the channel-major
// raw payload.
func encodeDeepLine(ph *PartHeader, buf *imgbuf.Buffer, y int) (lineCounts []int32, raw []byte) {
	dw := ph.Spec.DataWindow
	w := dw.Width()
	c := ph.Spec.NumChannels()
	total := uint32(len(buf.Data)) / uint32(max(c, 1))

	lineCounts = make([]int32, w)
	starts := make([]uint32, w)
	for x := 0; x < w; x++ {
		n := buf.Samples(dw.XMin+x, y)
		lineCounts[x] = int32(n)
		pi := (y-dw.YMin)*w + x
		starts[x] = buf.Offsets[pi]
	}

	for ci, ch := range ph.Spec.Channels {
		for x := 0; x < w; x++ {
			n := int(lineCounts[x])
			base := uint32(ci)*total + starts[x]
			for s := 0; s < n; s++ {
				raw = encodeSample(raw, ch.Type, buf.Data[base+uint32(s)])
			}
		}
	}
	return lineCounts, raw
}
