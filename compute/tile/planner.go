// Package tile partitions an image into backend-sized tiles with halo
// overlap, and caches decoded regions keyed by content fingerprint
// (spec.md §4.3, §5, testable scenario #6).
package tile

import (
	"math"

	"github.com/deepteams/vfximg/compute"
)

// Plan describes one tile dispatch: Tile is the rectangle (including halo)
// a backend should execute over, and Valid is the sub-rectangle of Tile
// whose output is authoritative and should be copied into the final image.
// Every image pixel is covered by exactly one Plan's Valid rectangle.
type Plan struct {
	Tile  compute.Rect
	Valid compute.Rect
}

// Coverage partitions a W x H image into Plans sized to fit within both
// lim.MaxTileDim and lim.MaxBufferBytes once halo is added on every side,
// and with every Valid rectangle overlapping its neighbors by at least
// halo pixels of tile data (spec.md §4.3 testable scenario #6: "10000x10000
// image, halo radius >= 8, every tile's halo region overlaps its neighbors
// by at least the required radius, and the union of valid regions covers
// the image exactly once with no gaps or double-writes").
//
// A halo of 0 is legal (point-wise ops need no neighbor overlap); Coverage
// still splits the image on MaxTileDim/MaxBufferBytes in that case.
func Coverage(w, h, channels, halo int, lim compute.GpuLimits) []Plan {
	if w <= 0 || h <= 0 {
		return nil
	}
	bytesPerPixel := int64(channels) * 4
	core := coreDim(lim, bytesPerPixel, halo)

	var plans []Plan
	for y0 := 0; y0 < h; y0 += core {
		y1 := min(y0+core, h)
		for x0 := 0; x0 < w; x0 += core {
			x1 := min(x0+core, w)
			valid := compute.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
			tileRect := compute.Rect{
				X0: max(x0-halo, 0),
				Y0: max(y0-halo, 0),
				X1: min(x1+halo, w),
				Y1: min(y1+halo, h),
			}
			plans = append(plans, Plan{Tile: tileRect, Valid: valid})
		}
	}
	return plans
}

// coreDim picks the largest non-overlapping (pre-halo) tile edge such that
// the tile edge plus halo on both sides still fits within MaxTileDim and
// MaxBufferBytes. It never returns less than 1, so pathologically tight
// limits still make forward progress instead of looping forever.
func coreDim(lim compute.GpuLimits, bytesPerPixel int64, halo int) int {
	dim := lim.MaxTileDim
	if dim <= 0 {
		dim = compute.DefaultCPULimits.MaxTileDim
	}
	dim -= 2 * halo

	if lim.MaxBufferBytes > 0 && bytesPerPixel > 0 {
		// A square tile of edge e (including halo) uses e*e*bytesPerPixel
		// bytes; solve for the largest e under MaxBufferBytes, then strip
		// halo back out to get the core (pre-halo) edge.
		maxArea := float64(lim.MaxBufferBytes) / float64(bytesPerPixel)
		edge := int(math.Sqrt(maxArea))
		edge -= 2 * halo
		if edge < dim {
			dim = edge
		}
	}
	if dim < 1 {
		dim = 1
	}
	return dim
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
