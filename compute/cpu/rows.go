package cpu

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// backgroundCtx is the semaphore context used by withAdmission; nothing
// in this backend's call surface is cancelable mid-flight, so a plain
// background context is the correct fit rather than threading a context
// through every Exec method.
var backgroundCtx = context.Background()

// maxConcurrentOps caps how many Exec calls the admission semaphore lets
// run at once. Each Exec call already fans out across rowWorkers()
// goroutines internally, so this is deliberately small: it exists to stop
// unrelated concurrent pipeline stages from all launching full row-pools
// at the same instant, not to further parallelize a single call.
func maxConcurrentOps() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// rowWorkers picks the row-pipeline width for one Exec call, mirroring
// internal/lossy/encode_parallel.go's encodeFrameParallel: capped at 6
// workers (diminishing returns on memory-bandwidth-bound row loops beyond
// that) and never more than there are rows to hand out.
func rowWorkers(rows int) int {
	n := runtime.GOMAXPROCS(0)
	if n > 6 {
		n = 6
	}
	if n > rows {
		n = rows
	}
	if n < 1 {
		n = 1
	}
	return n
}

// runRows calls fn(y) for every y in [0, rows), fanned out across
// rowWorkers(rows) goroutines that each claim the next unclaimed row from
// a shared atomic counter (grounded on encode_parallel.go's
// parallelState.nextRow / encodeFrameParallel loop). A row that does more
// work than its neighbors — a tile with a denser LUT region, a deep pixel
// with many samples — never stalls workers that finished their share
// early, unlike a fixed static row/numWorkers split.
func runRows(rows int, fn func(y int)) {
	if rows <= 0 {
		return
	}
	workers := rowWorkers(rows)
	if workers == 1 {
		for y := 0; y < rows; y++ {
			fn(y)
		}
		return
	}

	var next atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				y := int(next.Add(1) - 1)
				if y >= rows {
					return
				}
				fn(y)
			}
		}()
	}
	wg.Wait()
}
