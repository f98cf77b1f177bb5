// Package imgbuf defines the shared pixel container used by the codec,
// color-transform, and compute packages: a typed [Spec] describing an
// image's geometry and channel layout, and a [Buffer] pairing a Spec with
// contiguous storage for either flat or deep pixel data.
package imgbuf

import "fmt"

// SampleType is the per-channel storage type of a pixel sample.
type SampleType int

const (
	SampleU8 SampleType = iota
	SampleU16
	SampleU32
	SampleF16
	SampleF32
)

// Size returns the in-memory byte width of a single sample of this type.
func (t SampleType) Size() int {
	switch t {
	case SampleU8:
		return 1
	case SampleU16, SampleF16:
		return 2
	case SampleU32, SampleF32:
		return 4
	default:
		return 0
	}
}

func (t SampleType) String() string {
	switch t {
	case SampleU8:
		return "u8"
	case SampleU16:
		return "u16"
	case SampleU32:
		return "u32"
	case SampleF16:
		return "f16"
	case SampleF32:
		return "f32"
	default:
		return "unknown"
	}
}

// Channel describes a single named image channel and its conventional role.
type Channel struct {
	Name       string
	Type       SampleType
	PLinear    bool // true if values are already linear (no encoded curve)
	XSampling  int  // subsampling factor in X, default 1
	YSampling  int  // subsampling factor in Y, default 1
}

// Conventional channel role names. Layers prefix these with "layer.".
const (
	RoleR     = "R"
	RoleG     = "G"
	RoleB     = "B"
	RoleA     = "A"
	RoleZ     = "Z"
	RoleZBack = "Zback"
)

// AttrType discriminates the value carried by an Attribute.
type AttrType int

const (
	AttrInt AttrType = iota
	AttrFloat
	AttrString
	AttrMatrix // 4x4 row-major float64
	AttrVector // 3-component float64
	AttrRational
	AttrBytes // opaque custom payload
)

// Rational is a numerator/denominator pair, matching EXR's "rational" attribute type.
type Rational struct {
	Num int32
	Den uint32
}

// Attribute is one entry of a Spec's keyed, typed attribute bag.
type Attribute struct {
	Name  string
	Type  AttrType
	Int   int64
	Float float64
	Str   string
	Mat   [16]float64
	Vec   [3]float64
	Rat   Rational
	Bytes []byte
}

// Window is an inclusive pixel rectangle (min, max) matching EXR's
// display/data window convention.
type Window struct {
	XMin, YMin, XMax, YMax int
}

// Width and Height return the window's extent in pixels.
func (w Window) Width() int  { return w.XMax - w.XMin + 1 }
func (w Window) Height() int { return w.YMax - w.YMin + 1 }

// LineOrder selects the order in which scanlines/tiles are stored.
type LineOrder int

const (
	IncreasingY LineOrder = iota
	DecreasingY
	RandomY
)

// Spec describes an image's geometry, channel layout, and metadata,
// independent of any pixel storage. It corresponds to spec.md §3.1.
type Spec struct {
	DisplayWindow Window
	DataWindow    Window
	Z             int // depth index, for multi-part volumetric use
	Depth         int // number of Z slices represented by this Spec (1 for flat single images)

	Channels []Channel

	TileWidth  int // 0 with TileHeight==0 means scanline (untiled)
	TileHeight int

	Deep bool

	Attrs []Attribute

	PixelAspect  float64
	LineOrder    LineOrder
	ScreenWindowCenter [2]float64
	ScreenWindowWidth  float64
}

// NumChannels returns the channel count.
func (s *Spec) NumChannels() int { return len(s.Channels) }

// ChannelIndex returns the index of the channel with the given name, or -1.
func (s *Spec) ChannelIndex(name string) int {
	for i, c := range s.Channels {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Tiled reports whether this Spec describes a tiled (as opposed to
// scanline) image.
func (s *Spec) Tiled() bool { return s.TileWidth > 0 && s.TileHeight > 0 }

// Validate checks the structural invariants from spec.md §3.1:
//   - if Deep, channels must include Z (and may include Zback)
//   - TileWidth/TileHeight are either both zero or both positive
//   - channel names are unique (case-sensitive)
func (s *Spec) Validate() error {
	if s.TileWidth < 0 || s.TileHeight < 0 {
		return fmt.Errorf("imgbuf: negative tile dimension (%d, %d)", s.TileWidth, s.TileHeight)
	}
	if (s.TileWidth == 0) != (s.TileHeight == 0) {
		return fmt.Errorf("imgbuf: tile_w/tile_h must be both zero or both positive, got (%d, %d)", s.TileWidth, s.TileHeight)
	}
	seen := make(map[string]struct{}, len(s.Channels))
	for _, c := range s.Channels {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("imgbuf: duplicate channel name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if s.Deep {
		if _, ok := seen[RoleZ]; !ok {
			return fmt.Errorf("imgbuf: deep spec missing required %q channel", RoleZ)
		}
	}
	if s.DataWindow.XMax < s.DataWindow.XMin || s.DataWindow.YMax < s.DataWindow.YMin {
		return fmt.Errorf("imgbuf: inverted data window %+v", s.DataWindow)
	}
	return nil
}

// Attr looks up a named attribute, reporting whether it was found.
func (s *Spec) Attr(name string) (Attribute, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// SetAttr replaces or appends a named attribute.
func (s *Spec) SetAttr(a Attribute) {
	for i := range s.Attrs {
		if s.Attrs[i].Name == a.Name {
			s.Attrs[i] = a
			return
		}
	}
	s.Attrs = append(s.Attrs, a)
}
