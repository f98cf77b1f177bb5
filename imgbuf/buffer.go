package imgbuf

import "fmt"

// Buffer pairs a Spec with contiguous linear pixel storage. For flat
// images, Data holds a single planar-interleaved array (row-major,
// y-major, channel-minor). For deep images, Data holds the
// (channels x total_samples) sample array and Offsets holds the
// width*height+1 cumulative sample-count table (spec.md §3.2).
//
// A Buffer exclusively owns its storage; callers that need a shared,
// non-owning view use ROI against the same Buffer rather than copying it.
type Buffer struct {
	Spec Spec

	// Data holds float32 samples for every channel. Flat layout:
	// index = ((y-y0)*W + (x-x0))*C + c. Deep layout: channel c's samples
	// for all pixels are stored contiguously, addressed via Offsets.
	Data []float32

	// Offsets is nil for flat Buffers. For deep Buffers it has
	// W*H+1 entries; Offsets[i+1]-Offsets[i] is the sample count of
	// pixel i (row-major, i = (y-y0)*W+(x-x0)).
	Offsets []uint32
}

// NewFlat allocates a flat Buffer for the given Spec. Spec.Deep must be false.
func NewFlat(spec Spec) (*Buffer, error) {
	if spec.Deep {
		return nil, fmt.Errorf("imgbuf: NewFlat called with a deep Spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	w, h, c := spec.DataWindow.Width(), spec.DataWindow.Height(), spec.NumChannels()
	return &Buffer{
		Spec: spec,
		Data: make([]float32, w*h*c),
	}, nil
}

// NewDeep allocates a deep Buffer for the given Spec with a zeroed offset
// table (every pixel starts with zero samples). Spec.Deep must be true.
func NewDeep(spec Spec) (*Buffer, error) {
	if !spec.Deep {
		return nil, fmt.Errorf("imgbuf: NewDeep called with a non-deep Spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	w, h := spec.DataWindow.Width(), spec.DataWindow.Height()
	return &Buffer{
		Spec:    spec,
		Offsets: make([]uint32, w*h+1),
	}, nil
}

// Width and Height return the Buffer's data-window extent.
func (b *Buffer) Width() int  { return b.Spec.DataWindow.Width() }
func (b *Buffer) Height() int { return b.Spec.DataWindow.Height() }

// pixelIndex converts image-space (x, y) to a row-major pixel index within
// the data window, or -1 if out of bounds.
func (b *Buffer) pixelIndex(x, y int) int {
	dw := b.Spec.DataWindow
	if x < dw.XMin || x > dw.XMax || y < dw.YMin || y > dw.YMax {
		return -1
	}
	return (y-dw.YMin)*dw.Width() + (x - dw.XMin)
}

// FlatIndex returns the starting offset into Data for pixel (x, y)'s first
// channel sample, for flat Buffers. Returns -1 if out of bounds or deep.
func (b *Buffer) FlatIndex(x, y int) int {
	if b.Spec.Deep {
		return -1
	}
	pi := b.pixelIndex(x, y)
	if pi < 0 {
		return -1
	}
	return pi * b.Spec.NumChannels()
}

// CheckInvariants validates the structural invariants from spec.md §8:
// flat buffers have exactly W*H*C samples; deep buffers have a
// non-decreasing offset table of length W*H+1 whose last entry equals the
// total sample count.
func (b *Buffer) CheckInvariants() error {
	w, h, c := b.Width(), b.Height(), b.Spec.NumChannels()
	if !b.Spec.Deep {
		want := w * h * c
		if len(b.Data) != want {
			return fmt.Errorf("imgbuf: flat buffer has %d samples, want %d (W=%d H=%d C=%d)", len(b.Data), want, w, h, c)
		}
		return nil
	}
	if len(b.Offsets) != w*h+1 {
		return fmt.Errorf("imgbuf: deep buffer offsets len %d, want %d", len(b.Offsets), w*h+1)
	}
	if b.Offsets[0] != 0 {
		return fmt.Errorf("imgbuf: deep buffer offsets[0] = %d, want 0", b.Offsets[0])
	}
	for i := 1; i < len(b.Offsets); i++ {
		if b.Offsets[i] < b.Offsets[i-1] {
			return fmt.Errorf("imgbuf: deep buffer offsets not non-decreasing at %d", i)
		}
	}
	total := b.Offsets[len(b.Offsets)-1]
	if uint32(len(b.Data)) != total*uint32(c) {
		return fmt.Errorf("imgbuf: deep buffer data len %d, want %d (total=%d C=%d)", len(b.Data), total*uint32(c), total, c)
	}
	return nil
}

// Clone returns a deep copy of the Buffer, independently owned.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Spec: b.Spec}
	out.Spec.Channels = append([]Channel(nil), b.Spec.Channels...)
	out.Spec.Attrs = append([]Attribute(nil), b.Spec.Attrs...)
	if b.Data != nil {
		out.Data = append([]float32(nil), b.Data...)
	}
	if b.Offsets != nil {
		out.Offsets = append([]uint32(nil), b.Offsets...)
	}
	return out
}
