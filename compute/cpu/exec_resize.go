package cpu

import (
	"fmt"

	"github.com/deepteams/vfximg/compute"
	"golang.org/x/image/draw"
)

func scalerFor(f compute.ResizeFilter) draw.Scaler {
	switch f {
	case compute.FilterNearest:
		return draw.NearestNeighbor
	case compute.FilterCatmullRom:
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}

// ExecResize resamples src into dst's already-allocated dimensions using
// golang.org/x/image/draw's Scaler family. dst must have been allocated
// at the target size before calling; ExecResize never changes a handle's
// dims.
func (b *Backend) ExecResize(dst, src compute.Handle, filter compute.ResizeFilter) error {
	return b.withAdmission(func() error {
		sbuf, err := b.lookup(src)
		if err != nil {
			return err
		}
		dbuf, err := b.lookup(dst)
		if err != nil {
			return err
		}
		if sbuf.dims.C != dbuf.dims.C {
			return fmt.Errorf("cpu backend: ExecResize channel count mismatch src=%d dst=%d", sbuf.dims.C, dbuf.dims.C)
		}
		srcImg := &floatImage{data: sbuf.data, dims: dimsLike(sbuf.dims)}
		dstImg := &floatImage{data: dbuf.data, dims: dimsLike(dbuf.dims)}
		scalerFor(filter).Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Over, nil)
		return nil
	})
}
