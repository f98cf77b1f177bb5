package exr

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/deepteams/vfximg/imgbuf"
)

// Magic is the 4-byte OpenEXR file signature (spec.md §4.1, §8 "bit-exact
// to the public specification").
const Magic uint32 = 0x01312f76

// Version flag bits, stored in bits 9-12 of the version/flags word; the
// low byte holds the version number (2, as of the current public format).
const (
	flagTiled       = 1 << 9
	flagLongNames   = 1 << 10
	flagNonImage    = 1 << 11 // deep data
	flagMultiPart   = 1 << 12
)

// Compression enumerates the codec's supported chunk compression methods
// (spec.md §4.1).
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionZIPS
	CompressionZIP
	CompressionPIZ
	CompressionPXR24
	CompressionB44
	CompressionB44A
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionZIPS:
		return "zips"
	case CompressionZIP:
		return "zip"
	case CompressionPIZ:
		return "piz"
	case CompressionPXR24:
		return "pxr24"
	case CompressionB44:
		return "b44"
	case CompressionB44A:
		return "b44a"
	default:
		return "unknown"
	}
}

// deepEligible reports whether c may be used for deep chunk data
// (spec.md §4.1: "Deep data may use Uncompressed/RLE/ZIP/ZIPS only").
func (c Compression) deepEligible() bool {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP:
		return true
	default:
		return false
	}
}

// linesPerBlock is the number of scanlines grouped into one chunk for
// scanline-based compression methods.
func (c Compression) linesPerBlock() int {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS:
		return 1
	case CompressionZIP:
		return 16
	case CompressionPIZ, CompressionPXR24:
		return 32
	case CompressionB44, CompressionB44A:
		return 32
	default:
		return 1
	}
}

// TileDesc describes the tiles attribute for tiled parts.
type TileDesc struct {
	XSize, YSize uint32
	LevelMode    uint8 // 0 one level, 1 mipmap, 2 ripmap
	RoundingMode uint8 // 0 down, 1 up
}

// PartHeader is one part's parsed attribute set, generalizing the
// single-part case: non-multipart files have exactly one PartHeader
// (spec.md §4.1, SPEC_FULL.md §C.1 multipart/multiview).
type PartHeader struct {
	Name string
	Type string // "scanlineimage", "tiledimage", "deepscanline", "deeptile"

	Spec imgbuf.Spec

	Compression Compression
	Tiles       *TileDesc
	View        string // multiview tag, empty if not applicable
}

func (p *PartHeader) deep() bool { return p.Spec.Deep }
func (p *PartHeader) tiled() bool { return p.Tiles != nil }

// readMagicAndVersion validates the file signature and returns the parsed
// flags, rejecting anything that isn't the recognized EXR magic
// (spec.md §4.1 "Reader must validate header magic").
func readMagicAndVersion(r io.Reader) (version uint8, flags uint32, err error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, ioErr(err)
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return 0, 0, invalid("bad magic %#x, want %#x", magic, Magic)
	}
	word := binary.LittleEndian.Uint32(buf[4:8])
	version = uint8(word & 0xff)
	flags = word &^ 0xff
	return version, flags, nil
}

func writeMagicAndVersion(w io.Writer, version uint8, flags uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(version)|flags)
	_, err := w.Write(buf[:])
	return err
}

// readCString reads a NUL-terminated string.
func readCString(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		return "", ioErr(err)
	}
	return s[:len(s)-1], nil
}

// readAttributeTable reads one part's attribute list, terminated by a
// zero-length name (spec.md §4.1 "attribute table (name, type, size,
// value tuples) terminated by a null name").
func readAttributeTable(r *bufio.Reader) (*PartHeader, error) {
	ph := &PartHeader{}
	for {
		name, err := readCString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readCString(r)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, ioErr(err)
		}
		if size < 0 || size > MaxChunkBytes {
			return nil, invalid("attribute %q size %d out of range", name, size)
		}
		val := make([]byte, size)
		if _, err := io.ReadFull(r, val); err != nil {
			return nil, ioErr(err)
		}
		if err := applyAttribute(ph, name, typ, val); err != nil {
			return nil, err
		}
	}
	return ph, nil
}

func applyAttribute(ph *PartHeader, name, typ string, val []byte) error {
	switch name {
	case "channels":
		chans, err := decodeChannelList(val)
		if err != nil {
			return err
		}
		ph.Spec.Channels = chans
		return nil
	case "compression":
		if len(val) < 1 {
			return invalid("compression attribute too short")
		}
		ph.Compression = Compression(val[0])
		return nil
	case "dataWindow":
		w, err := decodeBox2i(val)
		if err != nil {
			return err
		}
		ph.Spec.DataWindow = w
		return nil
	case "displayWindow":
		w, err := decodeBox2i(val)
		if err != nil {
			return err
		}
		ph.Spec.DisplayWindow = w
		return nil
	case "lineOrder":
		if len(val) < 1 {
			return invalid("lineOrder attribute too short")
		}
		ph.Spec.LineOrder = imgbuf.LineOrder(val[0])
		return nil
	case "pixelAspectRatio":
		f, err := decodeFloat(val)
		if err != nil {
			return err
		}
		ph.Spec.PixelAspect = float64(f)
		return nil
	case "screenWindowCenter":
		x, y, err := decodeV2f(val)
		if err != nil {
			return err
		}
		ph.Spec.ScreenWindowCenter = [2]float64{float64(x), float64(y)}
		return nil
	case "screenWindowWidth":
		f, err := decodeFloat(val)
		if err != nil {
			return err
		}
		ph.Spec.ScreenWindowWidth = float64(f)
		return nil
	case "tiles":
		td, err := decodeTileDesc(val)
		if err != nil {
			return err
		}
		ph.Tiles = td
		ph.Spec.TileWidth = int(td.XSize)
		ph.Spec.TileHeight = int(td.YSize)
		return nil
	case "name":
		ph.Name = string(val)
		return nil
	case "type":
		ph.Type = string(val)
		ph.Spec.Deep = ph.Type == "deepscanline" || ph.Type == "deeptile"
		return nil
	case "view":
		ph.View = string(val)
		return nil
	default:
		ph.Spec.SetAttr(decodeGenericAttr(name, typ, val))
		return nil
	}
}

func decodeGenericAttr(name, typ string, val []byte) imgbuf.Attribute {
	switch typ {
	case "int":
		v, _ := decodeInt(val)
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrInt, Int: int64(v)}
	case "float":
		v, _ := decodeFloat(val)
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrFloat, Float: float64(v)}
	case "string":
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrString, Str: string(val)}
	case "m44f":
		var m [16]float64
		for i := 0; i+4 <= len(val) && i/4 < 16; i += 4 {
			f := math.Float32frombits(binary.LittleEndian.Uint32(val[i:]))
			m[i/4] = float64(f)
		}
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrMatrix, Mat: m}
	case "v3f":
		var v [3]float64
		for i := 0; i+4 <= len(val) && i/4 < 3; i += 4 {
			f := math.Float32frombits(binary.LittleEndian.Uint32(val[i:]))
			v[i/4] = float64(f)
		}
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrVector, Vec: v}
	case "rational":
		if len(val) >= 8 {
			num := int32(binary.LittleEndian.Uint32(val[0:4]))
			den := binary.LittleEndian.Uint32(val[4:8])
			return imgbuf.Attribute{Name: name, Type: imgbuf.AttrRational, Rat: imgbuf.Rational{Num: num, Den: den}}
		}
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrRational}
	default:
		return imgbuf.Attribute{Name: name, Type: imgbuf.AttrBytes, Bytes: append([]byte(nil), val...)}
	}
}

func decodeInt(val []byte) (int32, error) {
	if len(val) < 4 {
		return 0, invalid("int attribute too short")
	}
	return int32(binary.LittleEndian.Uint32(val)), nil
}

func decodeFloat(val []byte) (float32, error) {
	if len(val) < 4 {
		return 0, invalid("float attribute too short")
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(val)), nil
}

func decodeV2f(val []byte) (x, y float32, err error) {
	if len(val) < 8 {
		return 0, 0, invalid("v2f attribute too short")
	}
	x = math.Float32frombits(binary.LittleEndian.Uint32(val[0:4]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(val[4:8]))
	return x, y, nil
}

func decodeBox2i(val []byte) (imgbuf.Window, error) {
	if len(val) < 16 {
		return imgbuf.Window{}, invalid("box2i attribute too short")
	}
	xmin := int32(binary.LittleEndian.Uint32(val[0:4]))
	ymin := int32(binary.LittleEndian.Uint32(val[4:8]))
	xmax := int32(binary.LittleEndian.Uint32(val[8:12]))
	ymax := int32(binary.LittleEndian.Uint32(val[12:16]))
	if xmax < xmin || ymax < ymin {
		return imgbuf.Window{}, invalid("inverted box2i (%d,%d)-(%d,%d)", xmin, ymin, xmax, ymax)
	}
	return imgbuf.Window{XMin: int(xmin), YMin: int(ymin), XMax: int(xmax), YMax: int(ymax)}, nil
}

func decodeTileDesc(val []byte) (*TileDesc, error) {
	if len(val) < 9 {
		return nil, invalid("tiledesc attribute too short")
	}
	xs := binary.LittleEndian.Uint32(val[0:4])
	ys := binary.LittleEndian.Uint32(val[4:8])
	mode := val[8]
	return &TileDesc{
		XSize: xs, YSize: ys,
		LevelMode:    mode & 0x0f,
		RoundingMode: (mode >> 4) & 0x0f,
	}, nil
}

// decodeChannelList parses the chlist attribute: repeated
// (name, pixelType int32, pLinear byte, reserved[3], xSampling int32,
// ySampling int32) records terminated by an empty name.
func decodeChannelList(val []byte) ([]imgbuf.Channel, error) {
	var out []imgbuf.Channel
	i := 0
	for i < len(val) {
		start := i
		for i < len(val) && val[i] != 0 {
			i++
		}
		if i >= len(val) {
			return nil, invalid("chlist: unterminated channel name")
		}
		name := string(val[start:i])
		i++ // skip NUL
		if name == "" {
			break
		}
		if i+16 > len(val) {
			return nil, invalid("chlist: truncated record for %q", name)
		}
		pixelType := binary.LittleEndian.Uint32(val[i:])
		pLinear := val[i+4]
		xs := int32(binary.LittleEndian.Uint32(val[i+8:]))
		ys := int32(binary.LittleEndian.Uint32(val[i+12:]))
		i += 16
		out = append(out, imgbuf.Channel{
			Name:      name,
			Type:      pixelTypeToSampleType(pixelType),
			PLinear:   pLinear != 0,
			XSampling: int(xs),
			YSampling: int(ys),
		})
	}
	return out, nil
}

func pixelTypeToSampleType(pt uint32) imgbuf.SampleType {
	switch pt {
	case 0:
		return imgbuf.SampleU32
	case 1:
		return imgbuf.SampleF16
	case 2:
		return imgbuf.SampleF32
	default:
		return imgbuf.SampleF32
	}
}

func sampleTypeToPixelType(t imgbuf.SampleType) uint32 {
	switch t {
	case imgbuf.SampleU32, imgbuf.SampleU16, imgbuf.SampleU8:
		return 0
	case imgbuf.SampleF16:
		return 1
	default:
		return 2
	}
}

// writeAttributeTable serializes ph's attributes in the on-file format,
// terminated by an empty name (spec.md §4.1).
func writeAttributeTable(w io.Writer, ph *PartHeader) error {
	write := func(name, typ string, val []byte) error {
		if err := writeCString(w, name); err != nil {
			return err
		}
		if err := writeCString(w, typ); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(val))); err != nil {
			return err
		}
		_, err := w.Write(val)
		return err
	}

	if err := write("channels", "chlist", encodeChannelList(ph.Spec.Channels)); err != nil {
		return err
	}
	if err := write("compression", "compression", []byte{byte(ph.Compression)}); err != nil {
		return err
	}
	if err := write("dataWindow", "box2i", encodeBox2i(ph.Spec.DataWindow)); err != nil {
		return err
	}
	if err := write("displayWindow", "box2i", encodeBox2i(ph.Spec.DisplayWindow)); err != nil {
		return err
	}
	if err := write("lineOrder", "lineOrder", []byte{byte(ph.Spec.LineOrder)}); err != nil {
		return err
	}
	if err := write("pixelAspectRatio", "float", encodeFloat(float32(ph.Spec.PixelAspect))); err != nil {
		return err
	}
	if err := write("screenWindowCenter", "v2f", encodeV2f(float32(ph.Spec.ScreenWindowCenter[0]), float32(ph.Spec.ScreenWindowCenter[1]))); err != nil {
		return err
	}
	if err := write("screenWindowWidth", "float", encodeFloat(float32(ph.Spec.ScreenWindowWidth))); err != nil {
		return err
	}
	if ph.Tiles != nil {
		if err := write("tiles", "tiledesc", encodeTileDesc(ph.Tiles)); err != nil {
			return err
		}
	}
	if ph.Name != "" {
		if err := write("name", "string", []byte(ph.Name)); err != nil {
			return err
		}
	}
	if ph.Type != "" {
		if err := write("type", "string", []byte(ph.Type)); err != nil {
			return err
		}
	}
	if ph.View != "" {
		if err := write("view", "string", []byte(ph.View)); err != nil {
			return err
		}
	}
	for _, a := range ph.Spec.Attrs {
		if err := write(a.Name, attrTypeName(a.Type), encodeGenericAttr(a)); err != nil {
			return err
		}
	}
	return writeCString(w, "")
}

func writeCString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\x00")
	return err
}

func encodeChannelList(chans []imgbuf.Channel) []byte {
	var buf []byte
	for _, c := range chans {
		buf = append(buf, []byte(c.Name)...)
		buf = append(buf, 0)
		var rec [16]byte
		binary.LittleEndian.PutUint32(rec[0:], sampleTypeToPixelType(c.Type))
		if c.PLinear {
			rec[4] = 1
		}
		xs, ys := c.XSampling, c.YSampling
		if xs == 0 {
			xs = 1
		}
		if ys == 0 {
			ys = 1
		}
		binary.LittleEndian.PutUint32(rec[8:], uint32(xs))
		binary.LittleEndian.PutUint32(rec[12:], uint32(ys))
		buf = append(buf, rec[:]...)
	}
	buf = append(buf, 0)
	return buf
}

func encodeBox2i(w imgbuf.Window) []byte {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(int32(w.XMin)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(w.YMin)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(int32(w.XMax)))
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(w.YMax)))
	return buf[:]
}

func encodeFloat(f float32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
	return buf[:]
}

func encodeV2f(x, y float32) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(y))
	return buf[:]
}

func encodeTileDesc(t *TileDesc) []byte {
	var buf [9]byte
	binary.LittleEndian.PutUint32(buf[0:], t.XSize)
	binary.LittleEndian.PutUint32(buf[4:], t.YSize)
	buf[8] = (t.RoundingMode << 4) | (t.LevelMode & 0x0f)
	return buf[:]
}

func attrTypeName(t imgbuf.AttrType) string {
	switch t {
	case imgbuf.AttrInt:
		return "int"
	case imgbuf.AttrFloat:
		return "float"
	case imgbuf.AttrString:
		return "string"
	case imgbuf.AttrMatrix:
		return "m44f"
	case imgbuf.AttrVector:
		return "v3f"
	case imgbuf.AttrRational:
		return "rational"
	default:
		return "bytes"
	}
}

func encodeGenericAttr(a imgbuf.Attribute) []byte {
	switch a.Type {
	case imgbuf.AttrInt:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(a.Int)))
		return buf[:]
	case imgbuf.AttrFloat:
		return encodeFloat(float32(a.Float))
	case imgbuf.AttrString:
		return []byte(a.Str)
	case imgbuf.AttrMatrix:
		buf := make([]byte, 64)
		for i, v := range a.Mat {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		}
		return buf
	case imgbuf.AttrVector:
		buf := make([]byte, 12)
		for i, v := range a.Vec {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		}
		return buf
	case imgbuf.AttrRational:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint32(buf[0:], uint32(a.Rat.Num))
		binary.LittleEndian.PutUint32(buf[4:], a.Rat.Den)
		return buf
	default:
		return a.Bytes
	}
}
