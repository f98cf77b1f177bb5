package imgbuf

import "sort"

// Samples returns the sample count at pixel (x, y) of a deep Buffer.
func (b *Buffer) Samples(x, y int) uint32 {
	pi := b.pixelIndex(x, y)
	if pi < 0 || !b.Spec.Deep {
		return 0
	}
	return b.Offsets[pi+1] - b.Offsets[pi]
}

// deepPixelSamples returns a [numSamples][numChannels]float32 view of a
// deep pixel's data, copied out of the channel-major sample storage.
func (b *Buffer) deepPixelSamples(x, y int) [][]float32 {
	pi := b.pixelIndex(x, y)
	if pi < 0 {
		return nil
	}
	start, end := b.Offsets[pi], b.Offsets[pi+1]
	n := int(end - start)
	c := b.Spec.NumChannels()
	total := uint32(len(b.Data)) / uint32(max(c, 1))
	out := make([][]float32, n)
	for s := 0; s < n; s++ {
		row := make([]float32, c)
		for ch := 0; ch < c; ch++ {
			row[ch] = b.Data[uint32(ch)*total+start+uint32(s)]
		}
		out[s] = row
	}
	return out
}

func (b *Buffer) writeDeepPixelSamples(x, y int, samples [][]float32) {
	pi := b.pixelIndex(x, y)
	if pi < 0 {
		return
	}
	start := b.Offsets[pi]
	c := b.Spec.NumChannels()
	total := uint32(len(b.Data)) / uint32(max(c, 1))
	for s, row := range samples {
		for ch := 0; ch < c && ch < len(row); ch++ {
			b.Data[uint32(ch)*total+start+uint32(s)] = row[ch]
		}
	}
}

// SetSamples changes the sample count of pixel (x, y) to n, reallocating
// the sample table and shifting all subsequent per-pixel sample arrays.
// This is O(total subsequent samples); batch work through
// [DeepBatchBuilder] when rewriting many pixels.
func (b *Buffer) SetSamples(x, y int, n uint32) {
	pi := b.pixelIndex(x, y)
	if pi < 0 || !b.Spec.Deep {
		return
	}
	old := b.Offsets[pi+1] - b.Offsets[pi]
	if old == n {
		return
	}
	delta := int64(n) - int64(old)
	c := b.Spec.NumChannels()
	oldTotal := uint32(len(b.Data)) / uint32(max(c, 1))
	newTotal := uint32(int64(oldTotal) + delta)

	newData := make([]float32, int64(newTotal)*int64(c))
	start := b.Offsets[pi]
	oldEnd := b.Offsets[pi+1]
	for ch := 0; ch < c; ch++ {
		srcBase := uint32(ch) * oldTotal
		dstBase := uint32(ch) * newTotal
		// samples before this pixel: unchanged
		copy(newData[dstBase:dstBase+start], b.Data[srcBase:srcBase+start])
		// this pixel's samples: keep existing values where overlapping, zero-extend
		kept := min(old, n)
		copy(newData[dstBase+start:dstBase+start+kept], b.Data[srcBase+start:srcBase+start+kept])
		// samples after this pixel: shift by delta
		after := oldTotal - oldEnd
		copy(newData[dstBase+start+n:dstBase+start+n+after], b.Data[srcBase+oldEnd:srcBase+oldEnd+after])
	}
	b.Data = newData

	for i := pi + 1; i < len(b.Offsets); i++ {
		b.Offsets[i] = uint32(int64(b.Offsets[i]) + delta)
	}
}

// Sort orders pixel (x, y)'s samples ascending by Z.
func (b *Buffer) Sort(x, y int) {
	zIdx := b.Spec.ChannelIndex(RoleZ)
	if zIdx < 0 {
		return
	}
	samples := b.deepPixelSamples(x, y)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i][zIdx] < samples[j][zIdx]
	})
	b.writeDeepPixelSamples(x, y, samples)
}

// MergeOverlaps collapses samples at pixel (x, y) that share identical
// Z/Zback ranges, combining alpha and color by straight summation
// (assumes premultiplied alpha, the deep-compositing convention).
// Samples should be sorted first (see Sort) for meaningful results.
func (b *Buffer) MergeOverlaps(x, y int) {
	zIdx := b.Spec.ChannelIndex(RoleZ)
	zbIdx := b.Spec.ChannelIndex(RoleZBack)
	if zIdx < 0 {
		return
	}
	samples := b.deepPixelSamples(x, y)
	if len(samples) < 2 {
		return
	}
	out := samples[:0:0]
	out = append(out, samples[0])
	for i := 1; i < len(samples); i++ {
		cur := samples[i]
		last := out[len(out)-1]
		sameZ := last[zIdx] == cur[zIdx]
		sameZB := zbIdx < 0 || last[zbIdx] == cur[zbIdx]
		if sameZ && sameZB {
			for ch := range last {
				if ch == zIdx || ch == zbIdx {
					continue
				}
				last[ch] += cur[ch]
			}
			continue
		}
		out = append(out, cur)
	}
	b.SetSamples(x, y, uint32(len(out)))
	b.writeDeepPixelSamples(x, y, out)
}

// OcclusionCull removes samples behind an alpha-accumulated opaque front:
// scanning front-to-back (lowest Z first; call Sort beforehand), once
// accumulated alpha reaches 1.0 all remaining (farther) samples are
// dropped.
func (b *Buffer) OcclusionCull(x, y int) {
	aIdx := b.Spec.ChannelIndex(RoleA)
	if aIdx < 0 {
		return
	}
	samples := b.deepPixelSamples(x, y)
	if len(samples) == 0 {
		return
	}
	var acc float32
	kept := samples[:0:0]
	for _, s := range samples {
		kept = append(kept, s)
		acc = acc + s[aIdx]*(1-acc)
		if acc >= 1.0 {
			break
		}
	}
	b.SetSamples(x, y, uint32(len(kept)))
	b.writeDeepPixelSamples(x, y, kept)
}

// DeepBatchBuilder accumulates per-pixel sample vectors for a deep Buffer
// and produces the offset table and sample arrays in a single pass,
// avoiding the O(n) shifting cost of repeated SetSamples calls
// (spec.md Design Notes, "Deep data: insert/erase cost").
type DeepBatchBuilder struct {
	spec    Spec
	w, h    int
	samples [][][]float32 // per-pixel list of channel-vectors
}

// NewDeepBatchBuilder starts a batch builder for a deep Spec.
func NewDeepBatchBuilder(spec Spec) *DeepBatchBuilder {
	w, h := spec.DataWindow.Width(), spec.DataWindow.Height()
	return &DeepBatchBuilder{
		spec:    spec,
		w:       w,
		h:       h,
		samples: make([][][]float32, w*h),
	}
}

// Add appends one sample (a full channel vector) to pixel (x, y).
func (d *DeepBatchBuilder) Add(x, y int, sample []float32) {
	dw := d.spec.DataWindow
	if x < dw.XMin || x > dw.XMax || y < dw.YMin || y > dw.YMax {
		return
	}
	pi := (y-dw.YMin)*d.w + (x - dw.XMin)
	d.samples[pi] = append(d.samples[pi], sample)
}

// Build materializes the accumulated samples into a deep Buffer.
func (d *DeepBatchBuilder) Build() *Buffer {
	c := d.spec.NumChannels()
	offsets := make([]uint32, d.w*d.h+1)
	var total uint32
	for i, s := range d.samples {
		offsets[i] = total
		total += uint32(len(s))
	}
	offsets[d.w*d.h] = total

	data := make([]float32, int64(total)*int64(c))
	var cursor uint32
	for _, s := range d.samples {
		for _, sample := range s {
			for ch := 0; ch < c && ch < len(sample); ch++ {
				data[uint32(ch)*total+cursor] = sample[ch]
			}
			cursor++
		}
	}
	return &Buffer{Spec: d.spec, Data: data, Offsets: offsets}
}
