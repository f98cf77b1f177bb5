package exr

import (
	"encoding/binary"
	"io"
)

// readChunkOffsetTable reads a part's chunk offset table: count entries of
// little-endian 64-bit absolute byte offsets (spec.md §4.1, §8 "chunk
// offset table (little-endian 64-bit offsets)").
func readChunkOffsetTable(r io.Reader, count int) ([]uint64, error) {
	if count < 0 || int64(count)*8 > MaxChunkBytes {
		return nil, invalid("chunk offset table count %d out of range", count)
	}
	out := make([]uint64, count)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, ioErr(err)
	}
	return out, nil
}

func writeChunkOffsetTable(w io.Writer, offsets []uint64) error {
	return binary.Write(w, binary.LittleEndian, offsets)
}

// scanlineChunkCount returns the number of chunks a scanline part's data window
// splits into, given the compression's lines-per-block.
func scanlineChunkCount(ph *PartHeader) int {
	h := ph.Spec.DataWindow.Height()
	lpb := ph.Compression.linesPerBlock()
	return (h + lpb - 1) / lpb
}

// scanlineChunkHeader is the per-chunk prefix for scanline parts: the
// first scanline's y coordinate and the compressed payload size
// (spec.md §4.1 "Chunk: y-coord ... + block size + compressed payload").
type scanlineChunkHeader struct {
	Y           int32
	PayloadSize int32
}

func readScanlineChunkHeader(r io.Reader) (scanlineChunkHeader, error) {
	var h scanlineChunkHeader
	if err := binary.Read(r, binary.LittleEndian, &h.Y); err != nil {
		return h, ioErr(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PayloadSize); err != nil {
		return h, ioErr(err)
	}
	if h.PayloadSize < 0 || int64(h.PayloadSize) > MaxChunkBytes {
		return h, invalid("chunk payload size %d out of range", h.PayloadSize)
	}
	return h, nil
}

func writeScanlineChunkHeader(w io.Writer, h scanlineChunkHeader) error {
	if err := binary.Write(w, binary.LittleEndian, h.Y); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, h.PayloadSize)
}

// tileChunkHeader is the per-chunk prefix for tiled parts: tile
// coordinate, mip/rip level, and payload size (spec.md §4.1 "tile coords
// + levels").
type tileChunkHeader struct {
	TileX, TileY     int32
	LevelX, LevelY   int32
	PayloadSize      int32
}

func readTileChunkHeader(r io.Reader) (tileChunkHeader, error) {
	var h tileChunkHeader
	fields := []*int32{&h.TileX, &h.TileY, &h.LevelX, &h.LevelY, &h.PayloadSize}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return h, ioErr(err)
		}
	}
	if h.PayloadSize < 0 || int64(h.PayloadSize) > MaxChunkBytes {
		return h, invalid("tile payload size %d out of range", h.PayloadSize)
	}
	return h, nil
}

func writeTileChunkHeader(w io.Writer, h tileChunkHeader) error {
	fields := []int32{h.TileX, h.TileY, h.LevelX, h.LevelY, h.PayloadSize}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// tileRect returns the pixel rectangle a tile covers at level 0, clamped
// to the data window.
func tileRect(ph *PartHeader, tx, ty int) (x0, y0, w, h int) {
	dw := ph.Spec.DataWindow
	tw, th := ph.Tiles.XSize, ph.Tiles.YSize
	x0 = dw.XMin + tx*int(tw)
	y0 = dw.YMin + ty*int(th)
	w = int(tw)
	if x0+w-1 > dw.XMax {
		w = dw.XMax - x0 + 1
	}
	h = int(th)
	if y0+h-1 > dw.YMax {
		h = dw.YMax - y0 + 1
	}
	return
}

func tileGridCounts(ph *PartHeader) (nx, ny int) {
	dw := ph.Spec.DataWindow
	tw, th := int(ph.Tiles.XSize), int(ph.Tiles.YSize)
	nx = (dw.Width() + tw - 1) / tw
	ny = (dw.Height() + th - 1) / th
	return
}
