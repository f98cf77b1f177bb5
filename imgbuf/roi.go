package imgbuf

// ROI (Region Of Interest) bounds an operation to a pixel subrectangle
// of a Buffer's data window, plus an optional channel range. The ROIAll
// sentinel (not the zero value, which is an empty ROI) means "the full
// data window, all channels" and must be resolved against a concrete
// Buffer before use (see ROI.Resolve).
type ROI struct {
	XBegin, XEnd int // [XBegin, XEnd)
	YBegin, YEnd int
	ChanBegin, ChanEnd int

	all bool
}

// ROIAll is the sentinel meaning "the full data window, all channels".
var ROIAll = ROI{all: true}

// IsAll reports whether this ROI is the ROIAll sentinel.
func (r ROI) IsAll() bool { return r.all }

// Resolve expands ROIAll against the given Buffer into explicit bounds.
// Any other ROI is returned unchanged; zero end fields are not filled in.
func (r ROI) Resolve(b *Buffer) ROI {
	if r.all {
		dw := b.Spec.DataWindow
		return ROI{
			XBegin: dw.XMin, XEnd: dw.XMax + 1,
			YBegin: dw.YMin, YEnd: dw.YMax + 1,
			ChanBegin: 0, ChanEnd: b.Spec.NumChannels(),
		}
	}
	return r
}

// Width and Height return the resolved ROI's pixel extent.
func (r ROI) Width() int  { return r.XEnd - r.XBegin }
func (r ROI) Height() int { return r.YEnd - r.YBegin }

// Contains reports whether pixel (x, y) falls within the ROI.
func (r ROI) Contains(x, y int) bool {
	return x >= r.XBegin && x < r.XEnd && y >= r.YBegin && y < r.YEnd
}

// Intersect returns the overlap of two resolved ROIs; the result may have
// zero or negative width/height if they do not overlap.
func Intersect(a, b ROI) ROI {
	out := ROI{
		XBegin: max(a.XBegin, b.XBegin),
		XEnd:   min(a.XEnd, b.XEnd),
		YBegin: max(a.YBegin, b.YBegin),
		YEnd:   min(a.YEnd, b.YEnd),
	}
	out.ChanBegin = max(a.ChanBegin, b.ChanBegin)
	out.ChanEnd = min(a.ChanEnd, b.ChanEnd)
	return out
}

// Empty reports whether the ROI covers zero pixels.
func (r ROI) Empty() bool { return r.XEnd <= r.XBegin || r.YEnd <= r.YBegin }
