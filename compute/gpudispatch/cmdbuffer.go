package gpudispatch

import "fmt"

// dispatchState tracks which recording block a cmdBuffer is in, matching
// driver.CmdBuffer's "Begin* commands must not be nested, and must
// always be ended before another call to Begin*" rule.
type dispatchState int

const (
	stateIdle dispatchState = iota
	stateRecording
	stateWork
	stateEnded
)

// kernelDispatch is one recorded Dispatch call: a shader key, its
// parameter block, the device buffer ids it reads/writes, and (for the
// lut1d/lut3d kernels, which sample a bound table rather than a uniform
// parameter block) a resource id naming an uploaded LUT.
type kernelDispatch struct {
	key       string
	params    []float32
	srcID     uint64
	dstID     uint64
	lutID     uint64
}

// cmdBuffer records a sequence of kernel dispatches for later execution
// by GPU.Commit, mirroring driver.CmdBuffer's record-then-commit split
// (Begin -> BeginWork -> Dispatch -> EndWork -> End).
type cmdBuffer struct {
	gpu     *GPU
	state   dispatchState
	commands []kernelDispatch
	err     error
}

// Begin prepares the command buffer for recording, mirroring
// driver.CmdBuffer.Begin.
func (cb *cmdBuffer) Begin() error {
	if cb.state != stateIdle && cb.state != stateEnded {
		return fmt.Errorf("gpudispatch: Begin called while already recording")
	}
	cb.state = stateIdle
	cb.commands = cb.commands[:0]
	cb.err = nil
	return nil
}

// BeginWork begins a compute-dispatch block, mirroring
// driver.CmdBuffer.BeginWork; wait is accepted for interface symmetry
// with the driver model but has no effect since this cmdBuffer's
// dispatches already execute strictly in recorded order.
func (cb *cmdBuffer) BeginWork(wait bool) {
	cb.state = stateWork
}

// Dispatch records one shader-key dispatch reading src and writing dst.
// It must only be called between BeginWork and EndWork, mirroring
// driver.CmdBuffer.Dispatch's "must only be called during compute work."
func (cb *cmdBuffer) Dispatch(key string, params []float32, src, dst uint64) {
	cb.dispatchLUT(key, params, src, dst, 0)
}

// dispatchLUT is Dispatch plus a bound LUT resource id, used for the
// lut1d/lut3d kernels.
func (cb *cmdBuffer) dispatchLUT(key string, params []float32, src, dst, lutID uint64) {
	if cb.state != stateWork {
		cb.err = fmt.Errorf("gpudispatch: Dispatch called outside BeginWork/EndWork")
		return
	}
	cb.commands = append(cb.commands, kernelDispatch{key: key, params: params, srcID: src, dstID: dst, lutID: lutID})
}

// EndWork ends the current compute-dispatch block, mirroring
// driver.CmdBuffer.EndWork.
func (cb *cmdBuffer) EndWork() {
	if cb.state == stateWork {
		cb.state = stateIdle
	}
}

// End finalizes recording, mirroring driver.CmdBuffer's "Finally, call
// End and, if it succeeds, GPU.Commit."
func (cb *cmdBuffer) End() error {
	if cb.state == stateWork {
		return fmt.Errorf("gpudispatch: End called with an unended BeginWork block")
	}
	cb.state = stateEnded
	return cb.err
}

// run executes every recorded dispatch against cb.gpu's resident
// buffers, in order, stopping at the first failing kernel.
func (cb *cmdBuffer) run() error {
	for i, d := range cb.commands {
		src, err := cb.gpu.get(d.srcID)
		if err != nil {
			return fmt.Errorf("dispatch %d (%s): %w", i, d.key, err)
		}
		dst, err := cb.gpu.get(d.dstID)
		if err != nil {
			return fmt.Errorf("dispatch %d (%s): %w", i, d.key, err)
		}
		if err := cb.gpu.exec.run(cb.gpu, d, src, dst); err != nil {
			return fmt.Errorf("dispatch %d (%s): %w", i, d.key, err)
		}
	}
	return nil
}
