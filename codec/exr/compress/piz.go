package compress

import (
	"encoding/binary"
	"sort"

	"github.com/deepteams/vfximg/internal/bitio"
)

// PIZ applies a reversible Haar wavelet transform to half-float bit
// patterns followed by Huffman entropy coding (spec.md §4.1 "PIZ (Haar
// wavelet + Huffman)"). Only half-precision channels are eligible
// (spec.md §4.1 "PIZ and B44/B44A reject non-half data").
//
// Grounded on the teacher's deleted internal/lossless/huffman.go
// canonical-code-table shape (build once from symbol frequencies, decode
// via a flat lookup), reimplemented here against uint16 wavelet
// coefficients instead of WebP's literal/length/distance alphabet.
type PIZ struct{}

func (PIZ) Compress(halfSamples []uint16) ([]byte, error) {
	coeffs := append([]uint16(nil), halfSamples...)
	haarEncode(coeffs)

	codes, lengths := buildHuffmanCodes(coeffs)
	w := bitio.NewWriter()
	for _, v := range coeffs {
		code := codes[v]
		w.WriteBits(uint64(code), uint(lengths[v]))
	}
	payload := w.Flush()

	header := encodeHuffmanTable(lengths)
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	return out, nil
}

func (PIZ) Decompress(data []byte, sampleCount int) ([]uint16, error) {
	if len(data) < 4 {
		return nil, notSupported("piz: truncated stream")
	}
	headerLen := binary.LittleEndian.Uint32(data)
	if int(headerLen) > len(data)-4 {
		return nil, notSupported("piz: bad header length")
	}
	header := data[4 : 4+headerLen]
	payload := data[4+headerLen:]

	lengths := decodeHuffmanTable(header)
	dec := buildHuffmanDecoder(lengths)

	r := bitio.NewReader(payload)
	coeffs := make([]uint16, 0, sampleCount)
	for len(coeffs) < sampleCount {
		sym, err := dec.read(r)
		if err != nil {
			return nil, notSupported("piz: huffman decode: %v", err)
		}
		coeffs = append(coeffs, sym)
	}
	haarDecode(coeffs)
	return coeffs, nil
}

// haarEncode applies an in-place reversible integer Haar lift across the
// whole coefficient sequence: repeated pairwise (average, difference)
// butterfly passes at doubling strides, the same multiresolution cascade
// OpenEXR's wavelet transform uses per scanline/column, simplified here to
// a single 1-D pass over the flattened block. The lift is computed modulo
// 2^16, so haarDecode inverts it exactly for every uint16 input.
func haarEncode(a []uint16) {
	n := len(a)
	for stride := 1; stride < n; stride *= 2 {
		for i := 0; i+stride < n; i += 2 * stride {
			x, y := a[i], a[i+stride]
			d := x - y
			a[i] = y + d>>1
			a[i+stride] = d
		}
	}
}

func haarDecode(a []uint16) {
	n := len(a)
	strides := []int{}
	for stride := 1; stride < n; stride *= 2 {
		strides = append(strides, stride)
	}
	for k := len(strides) - 1; k >= 0; k-- {
		stride := strides[k]
		for i := 0; i+stride < n; i += 2 * stride {
			s, d := a[i], a[i+stride]
			y := s - d>>1
			a[i] = d + y
			a[i+stride] = y
		}
	}
}

// buildHuffmanCodes builds a canonical Huffman code over the symbols
// present in coeffs, keyed by symbol value.
func buildHuffmanCodes(coeffs []uint16) (codes map[uint16]uint32, lengths map[uint16]uint8) {
	freq := make(map[uint16]int)
	for _, v := range coeffs {
		freq[v]++
	}
	type node struct {
		sym         uint16
		isLeaf      bool
		weight      int
		left, right *node
	}
	var nodes []*node
	for sym, f := range freq {
		nodes = append(nodes, &node{sym: sym, isLeaf: true, weight: f})
	}
	if len(nodes) == 0 {
		return map[uint16]uint32{}, map[uint16]uint8{}
	}
	if len(nodes) == 1 {
		lengths = map[uint16]uint8{nodes[0].sym: 1}
		codes = map[uint16]uint32{nodes[0].sym: 0}
		return
	}
	for len(nodes) > 1 {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].weight < nodes[j].weight })
		a, b := nodes[0], nodes[1]
		parent := &node{weight: a.weight + b.weight, left: a, right: b}
		nodes = append(nodes[2:], parent)
	}
	lengths = make(map[uint16]uint8)
	var walk func(n *node, depth uint8)
	walk = func(n *node, depth uint8) {
		if n.isLeaf {
			if depth == 0 {
				depth = 1
			}
			lengths[n.sym] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(nodes[0], 0)

	codes = assignCanonicalCodes(lengths)
	return
}

// assignCanonicalCodes builds canonical codes from a symbol->length map,
// ordering by (length, symbol) so the decoder can rebuild the same
// assignment purely from the transmitted length table.
func assignCanonicalCodes(lengths map[uint16]uint8) map[uint16]uint32 {
	type entry struct {
		sym uint16
		len uint8
	}
	var entries []entry
	for s, l := range lengths {
		entries = append(entries, entry{s, l})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].len != entries[j].len {
			return entries[i].len < entries[j].len
		}
		return entries[i].sym < entries[j].sym
	})
	codes := make(map[uint16]uint32, len(entries))
	var code uint32
	prevLen := uint8(0)
	for _, e := range entries {
		code <<= (e.len - prevLen)
		codes[e.sym] = code
		code++
		prevLen = e.len
	}
	return codes
}

func encodeHuffmanTable(lengths map[uint16]uint8) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(lengths)))
	for sym, l := range lengths {
		var rec [3]byte
		binary.LittleEndian.PutUint16(rec[0:], sym)
		rec[2] = l
		out = append(out, rec[:]...)
	}
	return out
}

func decodeHuffmanTable(header []byte) map[uint16]uint8 {
	if len(header) < 4 {
		return nil
	}
	count := binary.LittleEndian.Uint32(header)
	lengths := make(map[uint16]uint8, count)
	off := 4
	for i := uint32(0); i < count && off+3 <= len(header); i++ {
		sym := binary.LittleEndian.Uint16(header[off:])
		l := header[off+2]
		lengths[sym] = l
		off += 3
	}
	return lengths
}

type huffmanDecoder struct {
	// codeToSym maps a (length, code) pair, length-first, to symbol.
	byLength map[uint8]map[uint32]uint16
	maxLen   uint8
}

func buildHuffmanDecoder(lengths map[uint16]uint8) *huffmanDecoder {
	codes := assignCanonicalCodes(lengths)
	d := &huffmanDecoder{byLength: make(map[uint8]map[uint32]uint16)}
	for sym, l := range lengths {
		if d.byLength[l] == nil {
			d.byLength[l] = make(map[uint32]uint16)
		}
		d.byLength[l][codes[sym]] = sym
		if l > d.maxLen {
			d.maxLen = l
		}
	}
	return d
}

func (d *huffmanDecoder) read(r *bitio.Reader) (uint16, error) {
	var code uint32
	for l := uint8(1); l <= d.maxLen; l++ {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		code = (code << 1) | uint32(bit)
		if table, ok := d.byLength[l]; ok {
			if sym, ok := table[code]; ok {
				return sym, nil
			}
		}
	}
	return 0, notSupported("piz: no matching huffman code")
}
