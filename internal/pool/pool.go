// Package pool provides bucketed sync.Pool instances for reducing
// allocations in codec/exr's chunk decode hot path (reader.go's
// per-chunk pool.Get/pool.Put around io.ReadFull). Buckets are sized
// around the compressed-chunk payloads EXR actually produces rather than
// a generic power-of-two ladder: linesPerBlock groups 1, 16, or 32
// scanlines into one chunk depending on compression
// (codec/exr/header.go's Compression.linesPerBlock), and tiled parts
// commonly use 64x64 or 128x128 pixel tiles, so a 4-channel half-float
// image produces chunk payloads that cluster around 32KiB and 128KiB far
// more often than around a plain 64KiB/256KiB split.
package pool

import "sync"

// Size classes for bucketed pools, tuned to common EXR chunk payload
// sizes: a 64x64 RGBA-half tile is ~32KiB raw, a 128x128 RGBA-half tile
// is ~128KiB raw, and a 16-line ZIP scanline block of a ~2K-wide RGBA
// image is ~240KiB raw - each sits much closer to one of these buckets
// than to the nearest power of two, so Size32K and Size128K were added to
// the original ladder to cut the rounding-up waste on those two shapes.
const (
	Size256B = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size32K  = 32768
	Size64K  = 65536
	Size128K = 131072
	Size256K = 262144
	Size1M   = 1048576
)

var sizes = [9]int{Size256B, Size1K, Size4K, Size16K, Size32K, Size64K, Size128K, Size256K, Size1M}

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	switch {
	case size <= Size256B:
		return 0
	case size <= Size1K:
		return 1
	case size <= Size4K:
		return 2
	case size <= Size16K:
		return 3
	case size <= Size32K:
		return 4
	case size <= Size64K:
		return 5
	case size <= Size128K:
		return 6
	case size <= Size256K:
		return 7
	default:
		return 8
	}
}

var pools [9]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a byte slice of at least the requested size from the pool.
// The returned slice has length == size and may have a larger capacity.
// The caller must call Put when done.
func Get(size int) []byte {
	idx := bucketIndex(size)
	bp := pools[idx].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// Put returns a byte slice to the pool. The slice must have been obtained
// from Get. Slices smaller than Size256B are not pooled.
func Put(b []byte) {
	c := cap(b)
	if c < Size256B {
		return
	}
	idx := bucketIndex(c)
	b = b[:c]
	pools[idx].Put(&b)
}

// GetInt16 returns an int16 slice of at least the requested length.
// It is allocated with make; int16 slices are not pooled.
func GetInt16(length int) []int16 {
	s := make([]int16, length)
	return s
}

// GetInt32 returns an int32 slice of at least the requested length.
func GetInt32(length int) []int32 {
	s := make([]int32, length)
	return s
}

// GetUint32 returns a uint32 slice of at least the requested length.
func GetUint32(length int) []uint32 {
	s := make([]uint32, length)
	return s
}
