// Package compress implements the EXR chunk compression methods: ZIP,
// ZIPS, RLE, PIZ, PXR24, B44, and B44A (spec.md §4.1). Each method
// exposes a Compress/Decompress pair: ZIP, ZIPS and RLE work on raw bytes,
// PIZ, B44 and B44A on half-float samples ([]uint16), and PXR24 on
// per-channel planes. All round-trip losslessly except PXR24 and
// B44/B44A, which are bounded-tolerance lossy.
package compress

import "fmt"

// NotSupportedError marks a pixel layout a method cannot handle (PIZ and
// B44/B44A reject non-half data, per spec.md §4.1).
type NotSupportedError struct{ Reason string }

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("exr/compress: not supported: %s", e.Reason)
}

func notSupported(format string, args ...any) error {
	return &NotSupportedError{Reason: fmt.Sprintf(format, args...)}
}

// reorderInterleave splits raw into two half-length runs (even-indexed
// bytes, then odd-indexed bytes) -- the byte-plane separation OpenEXR's
// ZIP/PXR24 predictor step applies before DEFLATE so the subsequent
// entropy coder sees more self-similar runs.
func reorderInterleave(raw []byte) []byte {
	n := len(raw)
	out := make([]byte, n)
	half := (n + 1) / 2
	ai, bi := 0, half
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out[ai] = raw[i]
			ai++
		} else {
			out[bi] = raw[i]
			bi++
		}
	}
	return out
}

// reorderDeinterleave reverses reorderInterleave.
func reorderDeinterleave(data []byte) []byte {
	n := len(data)
	out := make([]byte, n)
	half := (n + 1) / 2
	ai, bi := 0, half
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out[i] = data[ai]
			ai++
		} else {
			out[i] = data[bi]
			bi++
		}
	}
	return out
}

// deltaEncode applies OpenEXR's byte-predictor: each byte becomes the
// difference from the previous byte modulo 256, so runs of slowly varying
// samples compress better under DEFLATE.
func deltaEncode(raw []byte) []byte {
	out := make([]byte, len(raw))
	var prev byte
	for i, b := range raw {
		out[i] = b - prev
		prev = b
	}
	return out
}

func deltaDecode(data []byte) []byte {
	out := make([]byte, len(data))
	var prev byte
	for i, d := range data {
		prev = prev + d
		out[i] = prev
	}
	return out
}
