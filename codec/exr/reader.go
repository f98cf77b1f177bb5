package exr

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/deepteams/vfximg/imgbuf"
	"github.com/deepteams/vfximg/internal/pool"
	"github.com/deepteams/vfximg/internal/xlog"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Diagnostic records one recoverable chunk-level failure collected during
// a non-pedantic read (spec.md §4.1 "failures are collected; if pedantic
// mode is set, the first failure propagates; otherwise the valid region
// is returned with a diagnostics list").
type Diagnostic struct {
	ChunkIndex int
	Err        error
}

// ReadOptions controls a Read call's parallelism, strictness, and
// progress reporting (spec.md §4.1, §5.2).
type ReadOptions struct {
	Parallel  bool
	Workers   int
	Pedantic  bool
	Progress  func(fraction float64)
	Cancel    context.Context
}

// Reader parses an EXR byte stream's headers and chunk offset tables up
// front, then materializes parts on demand (spec.md §4.1 state machine
// "Init -> HeadersRead -> TableLoaded -> ...").
type Reader struct {
	version uint8
	flags   uint32
	parts   []*PartHeader
	offsets [][]uint64
	src     io.ReaderAt
}

// Open validates the magic/version, reads every part's attribute table
// and chunk offset table, and returns a Reader positioned to materialize
// any part (spec.md §4.1 "Reader must validate header magic").
func Open(src io.ReaderAt) (*Reader, error) {
	sr := io.NewSectionReader(src, 0, 1<<62)
	br := bufio.NewReader(sr)

	version, flags, err := readMagicAndVersion(br)
	if err != nil {
		return nil, err
	}
	multipart := flags&flagMultiPart != 0

	rd := &Reader{version: version, flags: flags, src: src}

	for {
		ph, err := readAttributeTable(br)
		if err != nil {
			return nil, err
		}
		if ph.Tiles == nil && flags&flagTiled != 0 && !multipart {
			return nil, invalid("tiled flag set but no tiles attribute present")
		}
		rd.parts = append(rd.parts, ph)

		var count int
		if ph.tiled() {
			nx, ny := tileGridCounts(ph)
			count = nx * ny
		} else if ph.deep() {
			count = ph.Spec.DataWindow.Height()
		} else {
			count = scanlineChunkCount(ph)
		}
		offs, err := readChunkOffsetTable(br, count)
		if err != nil {
			return nil, err
		}
		rd.offsets = append(rd.offsets, offs)

		if !multipart {
			break
		}
		// Multipart files terminate the part list with an empty header
		// (name=="" with no attributes); readAttributeTable already
		// consumed the null-name terminator for this part, so peek for a
		// following end-of-parts marker by checking if the part carried a
		// name at all.
		if ph.Name == "" {
			break
		}
	}

	xlog.Named("codec.exr").Debug("opened exr", zap.Int("parts", len(rd.parts)))
	return rd, nil
}

// NumParts returns the number of parts parsed from the header.
func (rd *Reader) NumParts() int { return len(rd.parts) }

// PartHeader returns the i'th part's parsed header.
func (rd *Reader) PartHeader(i int) *PartHeader { return rd.parts[i] }

// ReadPart materializes part i into a Buffer (flat or deep), decoding
// chunks per opts (spec.md §4.1 "Parallelism... opt-out for
// determinism").
func (rd *Reader) ReadPart(i int, opts ReadOptions) (*imgbuf.Buffer, []Diagnostic, error) {
	ph := rd.parts[i]
	if ph.Spec.Deep {
		return rd.readDeepPart(ph, rd.offsets[i], opts)
	}
	return rd.readFlatPart(ph, rd.offsets[i], opts)
}

func (rd *Reader) readFlatPart(ph *PartHeader, offsets []uint64, opts ReadOptions) (*imgbuf.Buffer, []Diagnostic, error) {
	buf, err := imgbuf.NewFlat(ph.Spec)
	if err != nil {
		return nil, nil, err
	}

	type job struct {
		index int
		off   uint64
	}
	jobs := make([]job, len(offsets))
	for idx, off := range offsets {
		jobs[idx] = job{index: idx, off: off}
	}

	var diags []Diagnostic
	decodeOne := func(j job) error {
		sec := io.NewSectionReader(rd.src, int64(j.off), 1<<62)

		if ph.tiled() {
			h, err := readTileChunkHeader(sec)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", j.index, err)
			}
			data := pool.Get(int(h.PayloadSize))
			defer pool.Put(data)
			if _, err := io.ReadFull(sec, data); err != nil {
				return fmt.Errorf("chunk %d: %w", j.index, ioErr(err))
			}
			x0, y0, w, h2 := tileRect(ph, int(h.TileX), int(h.TileY))
			planes := tileRectPlanes(ph, x0, y0, w, h2)
			raw, err := decompressBlock(ph, data, planesRawSize(planes), planes)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", j.index, err)
			}
			decodeTileRaw(ph, buf, x0, y0, w, h2, raw)
			return nil
		}

		h, err := readScanlineChunkHeader(sec)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", j.index, err)
		}
		data := pool.Get(int(h.PayloadSize))
		defer pool.Put(data)
		if _, err := io.ReadFull(sec, data); err != nil {
			return fmt.Errorf("chunk %d: %w", j.index, ioErr(err))
		}
		lineCount := ph.Compression.linesPerBlock()
		yFirst := int(h.Y)
		if yFirst+lineCount-1 > ph.Spec.DataWindow.YMax {
			lineCount = ph.Spec.DataWindow.YMax - yFirst + 1
		}
		planes := blockPlanes(ph, yFirst, lineCount)
		raw, err := decompressBlock(ph, data, planesRawSize(planes), planes)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", j.index, err)
		}
		decodeBlockRaw(ph, buf, yFirst, lineCount, raw)
		return nil
	}

	total := len(jobs)
	var completed int
	reportProgress := func() {
		completed++
		if opts.Progress != nil {
			opts.Progress(float64(completed) / float64(max(total, 1)))
		}
	}

	if opts.Parallel && total > 1 {
		g, ctx := errgroup.WithContext(context.Background())
		_ = ctx
		sem := make(chan struct{}, workerCount(opts))
		var mu sync.Mutex
		for _, j := range jobs {
			j := j
			sem <- struct{}{}
			g.Go(func() error {
				defer func() { <-sem }()
				err := decodeOne(j)
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
			// Multiple goroutines may fail before the errgroup's shared
			// context cancellation reaches every worker, so g.Wait's
			// return value alone can drop concurrent failures; combine
			// every diagnostic collected so far into the propagated error.
			sort.Slice(diags, func(i, j int) bool { return diags[i].ChunkIndex < diags[j].ChunkIndex })
			return buf, diags, combineDiagnostics(diags)
		}
	} else {
		for _, j := range jobs {
			if err := decodeOne(j); err != nil {
				diags = append(diags, Diagnostic{ChunkIndex: j.index, Err: err})
				if opts.Pedantic {
					return buf, diags, err
				}
			}
			reportProgress()
		}
	}

	sort.Slice(diags, func(i, j int) bool { return diags[i].ChunkIndex < diags[j].ChunkIndex })
	return buf, diags, nil
}

// combineDiagnostics merges every diagnostic's error into one, so a
// pedantic parallel read that lost the race between several concurrent
// failures still reports all of them instead of just whichever goroutine's
// error the errgroup happened to keep.
func combineDiagnostics(diags []Diagnostic) error {
	var errs error
	for _, d := range diags {
		errs = multierr.Append(errs, d.Err)
	}
	return errs
}

// readDeepPart decodes a deep-scanline part's sample-count tables and
// sample data, translating each scanline's per-line cumulative offsets
// into the Buffer's global cumulative offset table (spec.md §4.1 "Deep
// payload: pixel-sample-count table (per-line cumulative from zero,
// distinct from in-memory global cumulative)").
func (rd *Reader) readDeepPart(ph *PartHeader, offsets []uint64, opts ReadOptions) (*imgbuf.Buffer, []Diagnostic, error) {
	if !ph.Compression.deepEligible() {
		return nil, nil, notSupported("compression %v is not eligible for deep data", ph.Compression)
	}
	dw := ph.Spec.DataWindow
	w := dw.Width()
	c := ph.Spec.NumChannels()

	builder := imgbuf.NewDeepBatchBuilder(ph.Spec)
	var diags []Diagnostic

	for idx, off := range offsets {
		sec := io.NewSectionReader(rd.src, int64(off), 1<<62)
		var hdr struct {
			Y               int32
			PackedSizeTable int32
			PackedSize      int32
			UnpackedSize    int32
		}
		if err := binary.Read(sec, binary.LittleEndian, &hdr); err != nil {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: ioErr(err)})
			if opts.Pedantic {
				return nil, diags, ioErr(err)
			}
			continue
		}
		if hdr.PackedSizeTable < 0 || hdr.PackedSize < 0 || int64(hdr.PackedSize) > MaxChunkBytes {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: invalid("deep chunk %d sizes out of range", idx)})
			if opts.Pedantic {
				return nil, diags, diags[len(diags)-1].Err
			}
			continue
		}
		sampleCountTableData := make([]byte, hdr.PackedSizeTable)
		if _, err := io.ReadFull(sec, sampleCountTableData); err != nil {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: ioErr(err)})
			if opts.Pedantic {
				return nil, diags, ioErr(err)
			}
			continue
		}
		sampleCountTable, err := decompressBlock(ph, sampleCountTableData, w*4, nil)
		if err != nil {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: err})
			if opts.Pedantic {
				return nil, diags, err
			}
			continue
		}
		lineCounts := make([]int32, w)
		for x := 0; x < w; x++ {
			lineCounts[x] = int32(binary.LittleEndian.Uint32(sampleCountTable[x*4:]))
		}

		payload := make([]byte, hdr.PackedSize)
		if _, err := io.ReadFull(sec, payload); err != nil {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: ioErr(err)})
			if opts.Pedantic {
				return nil, diags, ioErr(err)
			}
			continue
		}
		planes := deepLinePlanes(ph, lineCounts)
		raw, err := decompressBlock(ph, payload, planesRawSize(planes), planes)
		if err != nil {
			diags = append(diags, Diagnostic{ChunkIndex: idx, Err: err})
			if opts.Pedantic {
				return nil, diags, err
			}
			continue
		}

		y := int(hdr.Y)
		decodeDeepLine(ph, builder, y, lineCounts, raw, c)
	}

	sort.Slice(diags, func(i, j int) bool { return diags[i].ChunkIndex < diags[j].ChunkIndex })
	return builder.Build(), diags, nil
}

func workerCount(opts ReadOptions) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return 4
}
