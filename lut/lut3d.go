package lut

import "fmt"

// Lut3D is a volumetric color-mapping table of size N^3 entries x 3
// channels, stored blue-major: index = B + N*G + N*N*R (spec.md §3.3).
// All read/write paths (file I/O, processor compilation) must convert to
// this layout at the boundary so interpolation code has one fixed
// addressing scheme.
type Lut3D struct {
	N       int
	Data    []float32 // len == N*N*N*3, blue-major
	DomMin  [3]float32
	DomMax  [3]float32
}

// NewLut3D allocates an identity Lut3D of size n (n >= 2) over the unit
// cube domain.
func NewLut3D(n int) (*Lut3D, error) {
	if n < 2 {
		return nil, fmt.Errorf("lut: Lut3D requires N >= 2, got %d", n)
	}
	l := &Lut3D{
		N:      n,
		Data:   make([]float32, n*n*n*3),
		DomMin: [3]float32{0, 0, 0},
		DomMax: [3]float32{1, 1, 1},
	}
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				idx := l.index(r, g, b)
				t := func(i int) float32 { return float32(i) / float32(n-1) }
				l.Data[idx+0] = t(r)
				l.Data[idx+1] = t(g)
				l.Data[idx+2] = t(b)
			}
		}
	}
	return l, nil
}

// index returns the flat Data offset for grid node (r, g, b), blue-major.
func (l *Lut3D) index(r, g, b int) int {
	n := l.N
	return (b + n*g + n*n*r) * 3
}

// Node returns the stored RGB triplet at grid coordinates (r, g, b).
func (l *Lut3D) Node(r, g, b int) [3]float32 {
	i := l.index(r, g, b)
	return [3]float32{l.Data[i], l.Data[i+1], l.Data[i+2]}
}

// SetNode writes the RGB triplet at grid coordinates (r, g, b).
func (l *Lut3D) SetNode(r, g, b int, v [3]float32) {
	i := l.index(r, g, b)
	l.Data[i], l.Data[i+1], l.Data[i+2] = v[0], v[1], v[2]
}

// gridCoord maps an input sample value to continuous grid coordinates and
// returns the base integer cell index clamped to [0, N-2] plus the
// fractional part within that cell.
func (l *Lut3D) gridCoord(axis int, v float32) (base int, frac float32) {
	lo, hi := l.DomMin[axis], l.DomMax[axis]
	n := l.N
	var t float32
	if hi != lo {
		t = (v - lo) / (hi - lo)
	}
	g := t * float32(n-1)
	if g < 0 {
		g = 0
	}
	maxG := float32(n - 1)
	if g > maxG {
		g = maxG
	}
	base = int(g)
	if base > n-2 {
		base = n - 2
	}
	frac = g - float32(base)
	return
}

// EvalTetrahedral performs bit-compatible tetrahedral interpolation
// (spec.md §4.2) for input (r, g, b) pre-mapped through any shaper/domain.
func (l *Lut3D) EvalTetrahedral(r, g, b float32) [3]float32 {
	rBase, rf := l.gridCoord(0, r)
	gBase, gf := l.gridCoord(1, g)
	bBase, bf := l.gridCoord(2, b)

	c000 := l.Node(rBase, gBase, bBase)
	c100 := l.Node(rBase+1, gBase, bBase)
	c010 := l.Node(rBase, gBase+1, bBase)
	c001 := l.Node(rBase, gBase, bBase+1)
	c110 := l.Node(rBase+1, gBase+1, bBase)
	c101 := l.Node(rBase+1, gBase, bBase+1)
	c011 := l.Node(rBase, gBase+1, bBase+1)
	c111 := l.Node(rBase+1, gBase+1, bBase+1)

	var v0, v1, v2, v3 [3]float32
	var w0, w1, w2, w3 float32

	switch {
	case rf > gf:
		switch {
		case gf > bf: // T1: 000,100,110,111
			v0, v1, v2, v3 = c000, c100, c110, c111
			w0, w1, w2, w3 = 1-rf, rf-gf, gf-bf, bf
		case rf > bf: // T2: 000,100,101,111
			v0, v1, v2, v3 = c000, c100, c101, c111
			w0, w1, w2, w3 = 1-rf, rf-bf, bf-gf, gf
		default: // T3: 000,001,101,111
			v0, v1, v2, v3 = c000, c001, c101, c111
			w0, w1, w2, w3 = 1-bf, bf-rf, rf-gf, gf
		}
	default:
		switch {
		case bf > gf: // T6: 000,001,011,111
			v0, v1, v2, v3 = c000, c001, c011, c111
			w0, w1, w2, w3 = 1-bf, bf-gf, gf-rf, rf
		case bf > rf: // T5: 000,010,011,111
			v0, v1, v2, v3 = c000, c010, c011, c111
			w0, w1, w2, w3 = 1-gf, gf-bf, bf-rf, rf
		default: // T4: 000,010,110,111
			v0, v1, v2, v3 = c000, c010, c110, c111
			w0, w1, w2, w3 = 1-gf, gf-rf, rf-bf, bf
		}
	}

	var out [3]float32
	for ch := 0; ch < 3; ch++ {
		out[ch] = v0[ch]*w0 + v1[ch]*w1 + v2[ch]*w2 + v3[ch]*w3
	}
	return out
}

// EvalTrilinear performs trilinear interpolation, interpolating along the
// Blue axis first, then Green, then Red — this ordering is observable at
// finite precision (spec.md §4.2) so it must not be reassociated.
func (l *Lut3D) EvalTrilinear(r, g, b float32) [3]float32 {
	rBase, rf := l.gridCoord(0, r)
	gBase, gf := l.gridCoord(1, g)
	bBase, bf := l.gridCoord(2, b)

	lerp := func(a, bv [3]float32, t float32) [3]float32 {
		var out [3]float32
		for ch := 0; ch < 3; ch++ {
			out[ch] = a[ch] + (bv[ch]-a[ch])*t
		}
		return out
	}

	c00 := lerp(l.Node(rBase, gBase, bBase), l.Node(rBase, gBase, bBase+1), bf)
	c10 := lerp(l.Node(rBase+1, gBase, bBase), l.Node(rBase+1, gBase, bBase+1), bf)
	c01 := lerp(l.Node(rBase, gBase+1, bBase), l.Node(rBase, gBase+1, bBase+1), bf)
	c11 := lerp(l.Node(rBase+1, gBase+1, bBase), l.Node(rBase+1, gBase+1, bBase+1), bf)

	c0 := lerp(c00, c01, gf)
	c1 := lerp(c10, c11, gf)

	return lerp(c0, c1, rf)
}
