package compute

// GpuLimits bounds what a Backend can allocate or dispatch in one call,
// generalized from gviegas-neo3 driver.Limits (MaxImage2D, MaxLayers,
// MaxDescHeaps, MaxFBSize...) to the plain buffer/tile shape this package
// operates on.
type GpuLimits struct {
	// MaxTileDim bounds a tile's width or height in pixels, including
	// halo (spec.md §4.3, testable scenario #6).
	MaxTileDim int
	// MaxBufferBytes bounds a single Upload/Allocate call's buffer size,
	// including halo.
	MaxBufferBytes int64
	// AvailableMemory is an advisory total budget. Nothing in this module
	// reads it; the tile planner sizes tiles from MaxTileDim and
	// MaxBufferBytes only.
	AvailableMemory int64
	// MaxImage2D mirrors gviegas-neo3's Limits.MaxImage2D: the largest
	// single dimension the device's image sampler can address, independent
	// of tiling.
	MaxImage2D int
}

// DefaultCPULimits are generous since the CPU backend tiles only to bound
// peak memory, not because of a hardware sampler limit.
var DefaultCPULimits = GpuLimits{
	MaxTileDim:      8192,
	MaxBufferBytes:  512 << 20,
	AvailableMemory: 4 << 30,
	MaxImage2D:      16384,
}
