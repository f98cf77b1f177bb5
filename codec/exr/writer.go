package exr

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/deepteams/vfximg/imgbuf"
	"github.com/deepteams/vfximg/internal/xlog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WriteOptions mirrors ReadOptions for the encode side: parallel chunk
// compression, a pedantic/diagnostics failure model, and progress
// reporting (spec.md §4.1, §5.2).
type WriteOptions struct {
	Parallel bool
	Workers  int
	Pedantic bool
	Progress func(fraction float64)
	Cancel   context.Context
}

// Write encodes buf as a single-part, non-multipart EXR stream per ph,
// dispatching to the scanline, tiled, or deep-scanline chunk layout based
// on ph.Tiles and ph.Spec.Deep (spec.md §4.1).
func Write(w io.Writer, ph *PartHeader, buf *imgbuf.Buffer, opts WriteOptions) error {
	flags := uint32(0)
	if ph.tiled() {
		flags |= flagTiled
	}
	if ph.deep() {
		flags |= flagNonImage
	}
	var header bytes.Buffer
	if err := writeMagicAndVersion(&header, 2, flags); err != nil {
		return ioErr(err)
	}
	if err := writeAttributeTable(&header, ph); err != nil {
		return ioErr(err)
	}

	var chunks [][]byte
	var diags []Diagnostic
	var err error
	switch {
	case ph.deep():
		chunks, diags, err = encodeDeepChunks(ph, buf, opts)
	case ph.tiled():
		chunks, diags, err = encodeTileChunks(ph, buf, opts)
	default:
		chunks, diags, err = encodeScanlineChunks(ph, buf, opts)
	}
	if err != nil {
		return err
	}

	// Chunk offsets are absolute file positions: the header (magic,
	// version/flags, attribute table) and the chunk offset table itself
	// both precede the first chunk.
	base := uint64(header.Len()) + uint64(len(chunks))*8
	offsets := make([]uint64, len(chunks))
	cursor := base
	for i, c := range chunks {
		offsets[i] = cursor
		cursor += uint64(len(c))
	}

	if _, err := w.Write(header.Bytes()); err != nil {
		return ioErr(err)
	}
	if err := writeChunkOffsetTable(w, offsets); err != nil {
		return ioErr(err)
	}
	for _, c := range chunks {
		if _, err := w.Write(c); err != nil {
			return ioErr(err)
		}
	}

	xlog.Named("codec.exr").Debug("wrote exr part", zap.Int("chunks", len(chunks)), zap.Int("diagnostics", len(diags)))
	// Unlike reads, a write has nothing valid to return on a chunk encode
	// failure, so any diagnostic is fatal regardless of opts.Pedantic;
	// Pedantic only controls whether encoding stops at the first failure
	// or keeps collecting diagnostics from the remaining chunks.
	if len(diags) > 0 {
		return combineDiagnostics(diags)
	}
	return nil
}

// WriteFile encodes buf to path atomically: the stream is fully built in
// memory, written to a sibling temp file, and renamed into place, so a
// file that existed before the attempt is never left truncated or
// partially overwritten and a failed attempt leaves no trace at path
// (spec.md §4.1 "Partial writes never leave valid-looking truncated
// files").
func WriteFile(path string, ph *PartHeader, buf *imgbuf.Buffer, opts WriteOptions) error {
	var out bytes.Buffer
	if err := Write(&out, ph, buf, opts); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioErr(err)
	}
	if info, statErr := os.Stat(path); statErr == nil {
		tmp.Chmod(info.Mode().Perm())
	}
	_, werr := tmp.Write(out.Bytes())
	cerr := tmp.Close()
	if werr != nil {
		os.Remove(tmp.Name())
		return ioErr(werr)
	}
	if cerr != nil {
		os.Remove(tmp.Name())
		return ioErr(cerr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return ioErr(err)
	}
	return nil
}

func writeWorkerCount(opts WriteOptions) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return 4
}

type encodeJob struct {
	index int
	encode func() ([]byte, error)
}

// runEncodeJobs executes jobs (already ordered in on-file chunk order),
// honoring opts.Parallel/opts.Pedantic/opts.Progress/opts.Cancel, and
// returns each job's encoded bytes in order alongside any collected
// diagnostics.
func runEncodeJobs(jobs []encodeJob, opts WriteOptions) ([][]byte, []Diagnostic, error) {
	out := make([][]byte, len(jobs))
	var diags []Diagnostic
	total := len(jobs)
	var completed int
	reportProgress := func() {
		completed++
		if opts.Progress != nil {
			opts.Progress(float64(completed) / float64(max(total, 1)))
		}
	}

	cancelled := func() bool {
		return opts.Cancel != nil && opts.Cancel.Err() != nil
	}

	run := func(j encodeJob) error {
		if cancelled() {
			return &AbortedError{}
		}
		b, err := j.encode()
		if err == nil {
			out[j.index] = b
		}
		return err
	}

	if opts.Parallel && total > 1 {
		g, _ := errgroup.WithContext(context.Background())
		sem := make(chan struct{}, writeWorkerCount(opts))
		var mu sync.Mutex
		for _, j := range jobs {
			j := j
			sem <- struct{}{}
			g.Go(func() error {
				defer func() { <-sem }()
				err := run(j)
				mu.Lock()
				if err != nil {
					diags = append(diags, Diagnostic{ChunkIndex: j.index, Err: err})
				}
				reportProgress()
				mu.Unlock()
				if opts.Pedantic && err != nil {
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			sort.Slice(diags, func(i, j int) bool { return diags[i].ChunkIndex < diags[j].ChunkIndex })
			return out, diags, combineDiagnostics(diags)
		}
	} else {
		for _, j := range jobs {
			if err := run(j); err != nil {
				diags = append(diags, Diagnostic{ChunkIndex: j.index, Err: err})
				if opts.Pedantic {
					return out, diags, err
				}
			}
			reportProgress()
		}
	}

	sort.Slice(diags, func(i, j int) bool { return diags[i].ChunkIndex < diags[j].ChunkIndex })
	return out, diags, nil
}

func encodeScanlineChunks(ph *PartHeader, buf *imgbuf.Buffer, opts WriteOptions) ([][]byte, []Diagnostic, error) {
	dw := ph.Spec.DataWindow
	lpb := ph.Compression.linesPerBlock()
	n := scanlineChunkCount(ph)
	jobs := make([]encodeJob, n)
	for i := 0; i < n; i++ {
		i := i
		yFirst := dw.YMin + i*lpb
		lineCount := lpb
		if yFirst+lineCount-1 > dw.YMax {
			lineCount = dw.YMax - yFirst + 1
		}
		jobs[i] = encodeJob{index: i, encode: func() ([]byte, error) {
			planes := blockPlanes(ph, yFirst, lineCount)
			raw := encodeBlockRaw(ph, buf, yFirst, lineCount)
			data, err := compressBlock(ph, raw, planes)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
			var hdr bytes.Buffer
			if err := writeScanlineChunkHeader(&hdr, scanlineChunkHeader{Y: int32(yFirst), PayloadSize: int32(len(data))}); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, ioErr(err))
			}
			return append(hdr.Bytes(), data...), nil
		}}
	}
	return runEncodeJobs(jobs, opts)
}

func encodeTileChunks(ph *PartHeader, buf *imgbuf.Buffer, opts WriteOptions) ([][]byte, []Diagnostic, error) {
	nx, ny := tileGridCounts(ph)
	jobs := make([]encodeJob, 0, nx*ny)
	idx := 0
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			tx, ty, i := tx, ty, idx
			jobs = append(jobs, encodeJob{index: i, encode: func() ([]byte, error) {
				x0, y0, w, h := tileRect(ph, tx, ty)
				planes := tileRectPlanes(ph, x0, y0, w, h)
				raw := encodeTileRaw(ph, buf, x0, y0, w, h)
				data, err := compressBlock(ph, raw, planes)
				if err != nil {
					return nil, fmt.Errorf("chunk %d: %w", i, err)
				}
				var hdr bytes.Buffer
				header := tileChunkHeader{TileX: int32(tx), TileY: int32(ty), PayloadSize: int32(len(data))}
				if err := writeTileChunkHeader(&hdr, header); err != nil {
					return nil, fmt.Errorf("chunk %d: %w", i, ioErr(err))
				}
				return append(hdr.Bytes(), data...), nil
			}})
			idx++
		}
	}
	return runEncodeJobs(jobs, opts)
}

func encodeDeepChunks(ph *PartHeader, buf *imgbuf.Buffer, opts WriteOptions) ([][]byte, []Diagnostic, error) {
	if !ph.Compression.deepEligible() {
		return nil, nil, notSupported("compression %v is not eligible for deep data", ph.Compression)
	}
	dw := ph.Spec.DataWindow
	h := dw.Height()
	w := dw.Width()
	jobs := make([]encodeJob, h)
	for i := 0; i < h; i++ {
		i := i
		y := dw.YMin + i
		jobs[i] = encodeJob{index: i, encode: func() ([]byte, error) {
			lineCounts, raw := encodeDeepLine(ph, buf, y)
			countTable := make([]byte, w*4)
			for x, n := range lineCounts {
				binary.LittleEndian.PutUint32(countTable[x*4:], uint32(n))
			}
			packedTable, err := compressBlock(ph, countTable, nil)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
			planes := deepLinePlanes(ph, lineCounts)
			packedPayload, err := compressBlock(ph, raw, planes)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
			var out bytes.Buffer
			hdr := struct {
				Y               int32
				PackedSizeTable int32
				PackedSize      int32
				UnpackedSize    int32
			}{
				Y:               int32(y),
				PackedSizeTable: int32(len(packedTable)),
				PackedSize:      int32(len(packedPayload)),
				UnpackedSize:    int32(len(raw)),
			}
			if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, ioErr(err))
			}
			out.Write(packedTable)
			out.Write(packedPayload)
			return out.Bytes(), nil
		}}
	}
	return runEncodeJobs(jobs, opts)
}
