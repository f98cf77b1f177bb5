package compress

import "encoding/binary"

// B44A is B44 with uniform 4x4 blocks collapsed to a short form
// (spec.md §4.1 "B44/B44A (fixed 14-byte blocks ... A variant collapses
// uniform blocks)"). Each block is prefixed with a one-byte tag: 0 means
// "uniform" (followed by a single half value), 1 means "full" (followed
// by a standard 14-byte B44 block). This differs from the reference
// encoder's implicit min==max self-description by one tag byte per
// block, a deliberate simplification given no byte-exact B44A reference
// was available to verify against (the spec's
// own tolerance is bounded, not bit-exact, for this method).
type B44A struct{}

func (B44A) Compress(halfSamples []uint16) ([]byte, error) {
	if len(halfSamples)%16 != 0 {
		return nil, notSupported("b44a: sample count %d not a multiple of 16", len(halfSamples))
	}
	var out []byte
	for i := 0; i < len(halfSamples); i += 16 {
		block := halfSamples[i : i+16]
		uniform := true
		for _, v := range block {
			if v != block[0] {
				uniform = false
				break
			}
		}
		if uniform {
			out = append(out, 0)
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], block[0])
			out = append(out, buf[:]...)
			continue
		}
		out = append(out, 1)
		out = append(out, encodeB44Block(block, false)...)
	}
	return out, nil
}

func (B44A) Decompress(data []byte, sampleCount int) ([]uint16, error) {
	if sampleCount%16 != 0 {
		return nil, notSupported("b44a: sample count %d not a multiple of 16", sampleCount)
	}
	nblocks := sampleCount / 16
	out := make([]uint16, 0, sampleCount)
	pos := 0
	for i := 0; i < nblocks; i++ {
		if pos >= len(data) {
			return nil, notSupported("b44a: truncated stream")
		}
		tag := data[pos]
		pos++
		switch tag {
		case 0:
			if pos+2 > len(data) {
				return nil, notSupported("b44a: truncated uniform block")
			}
			v := binary.LittleEndian.Uint16(data[pos:])
			pos += 2
			block := make([]uint16, 16)
			for j := range block {
				block[j] = v
			}
			out = append(out, block...)
		case 1:
			if pos+14 > len(data) {
				return nil, notSupported("b44a: truncated full block")
			}
			out = append(out, decodeB44Block(data[pos:pos+14])...)
			pos += 14
		default:
			return nil, notSupported("b44a: bad block tag %d", tag)
		}
	}
	return out, nil
}
