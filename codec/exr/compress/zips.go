package compress

// ZIPS is byte-identical to ZIP at the codec level; the distinction
// (1 scanline vs 16 scanlines per chunk) lives entirely in the calling
// codec's chunking decision (spec.md §4.1, §9 open question (a): "this
// spec requires explicit choice from the caller").
type ZIPS struct{ ZIP }
