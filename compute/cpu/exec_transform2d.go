package cpu

import (
	"fmt"

	"github.com/deepteams/vfximg/compute"
	"golang.org/x/image/math/f32"
)

// aff3For returns the destination-to-source coordinate map for op, given
// the cropped source rect's width/height. Crop/flip/rotate-90 are exact
// axis-aligned permutations, so f32.Aff3 here is bookkeeping for the
// geometric transform, not a resampling matrix: every destination pixel's
// mapped source coordinate lands exactly on an integer source pixel.
func aff3For(op compute.Transform2D, w, h int) f32.Aff3 {
	fw, fh := float32(w), float32(h)
	switch op {
	case compute.TransformFlipH:
		return f32.Aff3{-1, 0, fw - 1, 0, 1, 0}
	case compute.TransformFlipV:
		return f32.Aff3{1, 0, 0, 0, -1, fh - 1}
	case compute.TransformRotate90CW:
		// dst is h x w; dst(x,y) <- src(y, h-1-x).
		return f32.Aff3{0, 1, 0, -1, 0, fh - 1}
	case compute.TransformRotate90CCW:
		// dst is h x w; dst(x,y) <- src(w-1-y, x).
		return f32.Aff3{0, -1, fw - 1, 1, 0, 0}
	default:
		return f32.Aff3{1, 0, 0, 0, 1, 0}
	}
}

// dstDims returns the output Dims for op applied to a w x h x c crop:
// the 90-degree rotations swap width and height.
func dstDims(op compute.Transform2D, w, h, c int) compute.Dims {
	switch op {
	case compute.TransformRotate90CW, compute.TransformRotate90CCW:
		return compute.Dims{W: h, H: w, C: c}
	default:
		return compute.Dims{W: w, H: h, C: c}
	}
}

// ExecCropFlipRotate90 crops src to rect, then applies op (spec.md §4.3:
// "crop, flip, and 90-degree rotation are exact operations, never
// resampled"). dst must already be allocated at dstDims(op, rect's
// width/height, channels).
func (b *Backend) ExecCropFlipRotate90(dst, src compute.Handle, rect compute.Rect, op compute.Transform2D) error {
	return b.withAdmission(func() error {
		sbuf, err := b.lookup(src)
		if err != nil {
			return err
		}
		dbuf, err := b.lookup(dst)
		if err != nil {
			return err
		}
		if rect.X0 < 0 || rect.Y0 < 0 || rect.X1 > sbuf.dims.W || rect.Y1 > sbuf.dims.H || rect.Empty() {
			return fmt.Errorf("cpu backend: ExecCropFlipRotate90 rect %+v out of bounds for src %+v", rect, sbuf.dims)
		}
		w, h, c := rect.Width(), rect.Height(), sbuf.dims.C
		want := dstDims(op, w, h, c)
		if dbuf.dims != want {
			return fmt.Errorf("cpu backend: ExecCropFlipRotate90 dst dims %+v, want %+v", dbuf.dims, want)
		}
		m := aff3For(op, w, h)

		runRows(want.H, func(y int) {
			for x := 0; x < want.W; x++ {
				fx, fy := float32(x), float32(y)
				sx := int(m[0]*fx + m[1]*fy + m[2])
				sy := int(m[3]*fx + m[4]*fy + m[5])
				srcBase := ((rect.Y0+sy)*sbuf.dims.W + (rect.X0 + sx)) * c
				dstBase := (y*want.W + x) * c
				copy(dbuf.data[dstBase:dstBase+c], sbuf.data[srcBase:srcBase+c])
			}
		})
		return nil
	})
}
