// Package lut implements 1D and 3D lookup tables, including the
// bit-compatible tetrahedral and trilinear 3D interpolation paths
// required by spec.md §3.3/§4.2.
package lut

import (
	"fmt"
)

// Lut1D is a per-channel curve: N entries x Channels, defined over an
// input domain [Min, Max].
type Lut1D struct {
	Channels int
	Entries  [][]float32 // Entries[i] has len == Channels
	Min, Max float32
}

// NewLut1D allocates an identity-ramp Lut1D with n entries (n >= 2) over
// [min, max] for the given channel count.
func NewLut1D(n, channels int, min, max float32) (*Lut1D, error) {
	if n < 2 {
		return nil, fmt.Errorf("lut: Lut1D requires N >= 2, got %d", n)
	}
	l := &Lut1D{Channels: channels, Min: min, Max: max, Entries: make([][]float32, n)}
	for i := range l.Entries {
		t := min + (max-min)*float32(i)/float32(n-1)
		row := make([]float32, channels)
		for c := range row {
			row[c] = t
		}
		l.Entries[i] = row
	}
	return l, nil
}

// Eval samples channel c at input value x using linear interpolation
// between the two nearest entries, clamping x to [Min, Max].
func (l *Lut1D) Eval(c int, x float32) float32 {
	n := len(l.Entries)
	if n == 0 {
		return x
	}
	if l.Max == l.Min {
		return l.Entries[0][c]
	}
	t := (x - l.Min) / (l.Max - l.Min)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	pos := t * float32(n-1)
	i0 := int(pos)
	if i0 >= n-1 {
		return l.Entries[n-1][c]
	}
	frac := pos - float32(i0)
	a := l.Entries[i0][c]
	b := l.Entries[i0+1][c]
	return a + (b-a)*frac
}

// Monotonic reports whether channel c's entries are monotone (all
// non-decreasing or all non-increasing), a
// precondition for tabulating an exact analytic inverse (spec.md §4.2
// step 3).
func (l *Lut1D) Monotonic(c int) bool {
	n := len(l.Entries)
	if n < 2 {
		return true
	}
	inc, dec := true, true
	for i := 1; i < n; i++ {
		a, b := l.Entries[i-1][c], l.Entries[i][c]
		if b < a {
			inc = false
		}
		if b > a {
			dec = false
		}
	}
	return inc || dec
}

// Invert tabulates an approximate inverse of channel c by resampling the
// forward curve's monotonic range onto a new domain, using at least
// minInverseEntries entries so steep stretches of the inverse are not
// undersampled. Returns an error
// (surfaced by the processor as InvalidTransform/diagnostic) if the
// channel is not monotonic.
func (l *Lut1D) Invert(c int) (*Lut1D, error) {
	if !l.Monotonic(c) {
		return nil, fmt.Errorf("lut: channel %d is not monotonic, cannot invert exactly", c)
	}
	n := len(l.Entries)
	invN := n
	if invN < minInverseEntries {
		invN = minInverseEntries
	}
	inv, _ := NewLut1D(invN, l.Channels, 0, 0)
	vals := make([]float64, n)
	for i, row := range l.Entries {
		vals[i] = float64(row[c])
	}
	lo, hi := vals[0], vals[n-1]
	decreasing := lo > hi
	if decreasing {
		lo, hi = hi, lo
	}
	inv.Min, inv.Max = float32(lo), float32(hi)
	for i := 0; i < invN; i++ {
		y := lo + (hi-lo)*float64(i)/float64(invN-1)
		x := invertMonotone(vals, l.Min, l.Max, y, decreasing)
		row := make([]float32, l.Channels)
		for ch := range row {
			row[ch] = float32(x)
		}
		inv.Entries[i] = row
	}
	return inv, nil
}

// minInverseEntries is the smallest table Invert tabulates.
const minInverseEntries = 4096

// invertMonotone finds x such that interpolating vals at domain [domMin,
// domMax] yields target, via binary search over the monotonic sequence.
func invertMonotone(vals []float64, domMin, domMax float32, target float64, decreasing bool) float64 {
	n := len(vals)
	lo, hi := 0, n-1
	less := func(i int, t float64) bool {
		if decreasing {
			return vals[i] > t
		}
		return vals[i] < t
	}
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if less(mid, target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	v0, v1 := vals[lo], vals[hi]
	var frac float64
	if v1 != v0 {
		frac = (target - v0) / (v1 - v0)
	}
	t0 := float64(domMin) + (float64(domMax)-float64(domMin))*float64(lo)/float64(n-1)
	t1 := float64(domMin) + (float64(domMax)-float64(domMin))*float64(hi)/float64(n-1)
	return t0 + (t1-t0)*frac
}
