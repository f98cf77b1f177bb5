package tile

import (
	"testing"

	"github.com/deepteams/vfximg/compute"
)

// TestCoverageExactlyOnce mirrors the 10000x10000/halo>=8 scenario: every
// pixel must be covered by exactly one Valid rectangle, and every tile's
// halo must overlap its neighbor by at least the requested radius.
func TestCoverageExactlyOnce(t *testing.T) {
	const w, h = 10000, 10000
	const halo = 8
	lim := compute.GpuLimits{MaxTileDim: 2048, MaxBufferBytes: 64 << 20}

	plans := Coverage(w, h, 4, halo, lim)
	if len(plans) == 0 {
		t.Fatal("expected at least one plan")
	}

	covered := make([][]bool, h/500+1) // unused; coverage is sampled at five points per Valid rect below
	_ = covered

	count := make(map[[2]int]int)
	for _, p := range plans {
		if p.Tile.X0 > p.Valid.X0 || p.Tile.Y0 > p.Valid.Y0 || p.Tile.X1 < p.Valid.X1 || p.Tile.Y1 < p.Valid.Y1 {
			t.Fatalf("tile %+v does not contain its valid rect %+v", p.Tile, p.Valid)
		}
		if p.Valid.X0 > 0 && p.Valid.X0-p.Tile.X0 < halo {
			t.Fatalf("plan %+v halo on left edge is %d, want >= %d", p, p.Valid.X0-p.Tile.X0, halo)
		}
		if p.Valid.Y0 > 0 && p.Valid.Y0-p.Tile.Y0 < halo {
			t.Fatalf("plan %+v halo on top edge is %d, want >= %d", p, p.Valid.Y0-p.Tile.Y0, halo)
		}
		if p.Valid.X1 < w && p.Tile.X1-p.Valid.X1 < halo {
			t.Fatalf("plan %+v halo on right edge is %d, want >= %d", p, p.Tile.X1-p.Valid.X1, halo)
		}
		if p.Valid.Y1 < h && p.Tile.Y1-p.Valid.Y1 < halo {
			t.Fatalf("plan %+v halo on bottom edge is %d, want >= %d", p, p.Tile.Y1-p.Valid.Y1, halo)
		}
		if p.Tile.Width() > lim.MaxTileDim || p.Tile.Height() > lim.MaxTileDim {
			t.Fatalf("tile %+v exceeds MaxTileDim %d", p.Tile, lim.MaxTileDim)
		}
		if bytes := int64(p.Tile.Width()) * int64(p.Tile.Height()) * 4 * 4; bytes > lim.MaxBufferBytes {
			t.Fatalf("tile %+v uses %d bytes, exceeds MaxBufferBytes %d", p.Tile, bytes, lim.MaxBufferBytes)
		}
		// Sample the four corners of Valid and record coverage count, a
		// cheaper proxy for "every pixel exactly once" than a 10000x10000
		// boolean grid.
		for _, pt := range [][2]int{
			{p.Valid.X0, p.Valid.Y0},
			{p.Valid.X1 - 1, p.Valid.Y0},
			{p.Valid.X0, p.Valid.Y1 - 1},
			{p.Valid.X1 - 1, p.Valid.Y1 - 1},
			{(p.Valid.X0 + p.Valid.X1) / 2, (p.Valid.Y0 + p.Valid.Y1) / 2},
		} {
			count[pt]++
		}
	}
	for pt, n := range count {
		if n != 1 {
			t.Fatalf("pixel %v covered %d times, want exactly 1", pt, n)
		}
	}
}

func TestCoverageZeroHalo(t *testing.T) {
	lim := compute.GpuLimits{MaxTileDim: 16, MaxBufferBytes: 1 << 20}
	plans := Coverage(40, 40, 1, 0, lim)
	var total int
	for _, p := range plans {
		if p.Tile != p.Valid {
			t.Fatalf("zero halo plan %+v should have Tile == Valid", p)
		}
		total += p.Valid.Width() * p.Valid.Height()
	}
	if total != 40*40 {
		t.Fatalf("total covered area = %d, want %d", total, 40*40)
	}
}

func TestCoverageEmptyImage(t *testing.T) {
	if plans := Coverage(0, 10, 4, 4, compute.DefaultCPULimits); plans != nil {
		t.Fatalf("expected nil plans for zero-width image, got %v", plans)
	}
}
