package exr

import (
	"bytes"
	"os"
	"testing"

	"github.com/deepteams/vfximg/imgbuf"
)

func rgbaChannels() []imgbuf.Channel {
	return []imgbuf.Channel{
		{Name: imgbuf.RoleR, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
		{Name: imgbuf.RoleG, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
		{Name: imgbuf.RoleB, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
		{Name: imgbuf.RoleA, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
	}
}

func fillRamp(buf *imgbuf.Buffer) {
	for i := range buf.Data {
		buf.Data[i] = float32(i%97) * 0.01
	}
}

func TestScanlineRoundTripZIP(t *testing.T) {
	w, h := 5, 9
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels:      rgbaChannels(),
	}
	buf, err := imgbuf.NewFlat(spec)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	fillRamp(buf)

	ph := &PartHeader{Type: "scanlineimage", Spec: spec, Compression: CompressionZIP}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rd.NumParts() != 1 {
		t.Fatalf("NumParts = %d, want 1", rd.NumParts())
	}
	got, diags, err := rd.ReadPart(0, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadPart: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(got.Data) != len(buf.Data) {
		t.Fatalf("data len = %d, want %d", len(got.Data), len(buf.Data))
	}
	for i := range buf.Data {
		if got.Data[i] != buf.Data[i] {
			t.Fatalf("sample %d = %v, want %v", i, got.Data[i], buf.Data[i])
		}
	}
}

func TestScanlineRoundTripParallel(t *testing.T) {
	w, h := 3, 40
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels:      rgbaChannels(),
	}
	buf, err := imgbuf.NewFlat(spec)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	fillRamp(buf)

	ph := &PartHeader{Type: "scanlineimage", Spec: spec, Compression: CompressionZIP}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{Parallel: true, Workers: 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _, err := rd.ReadPart(0, ReadOptions{Parallel: true, Workers: 3})
	if err != nil {
		t.Fatalf("ReadPart: %v", err)
	}
	for i := range buf.Data {
		if got.Data[i] != buf.Data[i] {
			t.Fatalf("sample %d = %v, want %v", i, got.Data[i], buf.Data[i])
		}
	}
}

func TestTiledRoundTripZIPS(t *testing.T) {
	w, h := 10, 6
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels:      rgbaChannels(),
		TileWidth:     4,
		TileHeight:    4,
	}
	buf, err := imgbuf.NewFlat(spec)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	fillRamp(buf)

	ph := &PartHeader{
		Type:        "tiledimage",
		Spec:        spec,
		Compression: CompressionZIPS,
		Tiles:       &TileDesc{XSize: 4, YSize: 4},
	}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, diags, err := rd.ReadPart(0, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadPart: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	for i := range buf.Data {
		if got.Data[i] != buf.Data[i] {
			t.Fatalf("sample %d = %v, want %v", i, got.Data[i], buf.Data[i])
		}
	}
}

func TestDeepScanlineRoundTripZIPS(t *testing.T) {
	w, h := 4, 3
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels: []imgbuf.Channel{
			{Name: imgbuf.RoleZ, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
			{Name: imgbuf.RoleA, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
		},
		Deep: true,
	}

	builder := imgbuf.NewDeepBatchBuilder(spec)
	counts := [][]int{
		{0, 1, 2, 0},
		{3, 0, 1, 1},
		{0, 0, 0, 2},
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for s := 0; s < counts[y][x]; s++ {
				z := float32(y*10 + x + s)
				a := float32(s) * 0.25
				builder.Add(x, y, []float32{z, a})
			}
		}
	}
	buf := builder.Build()

	ph := &PartHeader{Type: "deepscanline", Spec: spec, Compression: CompressionZIPS}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, diags, err := rd.ReadPart(0, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadPart: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(got.Offsets) != len(buf.Offsets) {
		t.Fatalf("offsets len = %d, want %d", len(got.Offsets), len(buf.Offsets))
	}
	for i := range buf.Offsets {
		if got.Offsets[i] != buf.Offsets[i] {
			t.Fatalf("offsets[%d] = %d, want %d", i, got.Offsets[i], buf.Offsets[i])
		}
	}
	for i := range buf.Data {
		if got.Data[i] != buf.Data[i] {
			t.Fatalf("sample %d = %v, want %v", i, got.Data[i], buf.Data[i])
		}
	}
}

func TestDeepChunkCountMatchesHeight(t *testing.T) {
	w, h := 4, 3
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels: []imgbuf.Channel{
			{Name: imgbuf.RoleZ, Type: imgbuf.SampleF32, XSampling: 1, YSampling: 1},
		},
		Deep: true,
	}
	builder := imgbuf.NewDeepBatchBuilder(spec)
	buf := builder.Build()
	ph := &PartHeader{Type: "deepscanline", Spec: spec, Compression: CompressionNone}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := len(rd.offsets[0]); got != h {
		t.Fatalf("deep chunk count = %d, want %d", got, h)
	}
}

func TestTruncatedChunkReporting(t *testing.T) {
	w, h := 3, 5
	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: w - 1, YMax: h - 1},
		DataWindow:    imgbuf.Window{XMax: w - 1, YMax: h - 1},
		Channels:      rgbaChannels(),
	}
	buf, err := imgbuf.NewFlat(spec)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	fillRamp(buf)
	ph := &PartHeader{Type: "scanlineimage", Spec: spec, Compression: CompressionNone}

	var out bytes.Buffer
	if err := Write(&out, ph, buf, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Drop the final chunk's payload so its read fails while earlier chunks
	// remain intact (CompressionNone is one line per chunk).
	truncated := out.Bytes()[:out.Len()-4]

	rd, err := Open(bytes.NewReader(truncated))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, diags, err := rd.ReadPart(0, ReadOptions{Pedantic: false})
	if err != nil {
		t.Fatalf("non-pedantic ReadPart returned error: %v", err)
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want exactly one failure for the truncated chunk", diags)
	}
	if diags[0].ChunkIndex != h-1 {
		t.Fatalf("diagnostic chunk index = %d, want %d", diags[0].ChunkIndex, h-1)
	}

	rd2, err := Open(bytes.NewReader(truncated))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := rd2.ReadPart(0, ReadOptions{Pedantic: true}); err == nil {
		t.Fatal("pedantic ReadPart should propagate the truncated-chunk failure")
	}
}

func TestWriteFileAtomicDoesNotClobberOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.exr"
	if err := os.WriteFile(path, []byte("preexisting"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	spec := imgbuf.Spec{
		DisplayWindow: imgbuf.Window{XMax: 1, YMax: 1},
		DataWindow:    imgbuf.Window{XMax: 1, YMax: 1},
		Channels:      rgbaChannels(),
	}
	buf, err := imgbuf.NewFlat(spec)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	// An unknown compression method makes Write fail before any bytes
	// reach disk.
	ph := &PartHeader{Type: "scanlineimage", Spec: spec, Compression: Compression(200)}

	if err := WriteFile(path, ph, buf, WriteOptions{}); err == nil {
		t.Fatal("expected Write failure for unknown compression")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "preexisting" {
		t.Fatalf("existing file was modified: %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file leaked in %s: %v", dir, entries)
	}
}
