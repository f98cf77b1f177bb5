package colortransform

import "fmt"

// Processor is an ordered sequence of Ops bound to input->output
// semantics, immutable after compilation (spec.md §3.5). It is safe to
// share freely across goroutines and compute backends once built.
type Processor struct {
	ops []*Op

	// Unpremultiply, when set, divides RGB by A (if A>0) before applying
	// ops and multiplies back after, per spec.md §4.2.
	Unpremultiply bool
}

// Ops returns the compiled op chain (read-only; callers must not mutate
// the returned slice's Op values).
func (p *Processor) Ops() []*Op { return p.ops }

// Compile compiles an ordered transform list into a Processor
// (spec.md §4.2): resolve symbolic refs, flatten groups, lower to Ops,
// then optimize.
func Compile(transforms []Transform, ctx *CompileContext) (*Processor, error) {
	if ctx == nil {
		ctx = &CompileContext{}
	}
	flat, err := ctx.expandAll(transforms, Forward)
	if err != nil {
		return nil, err
	}

	var ops []*Op
	for i, t := range flat {
		lowered, err := lower(t)
		if err != nil {
			return nil, fmt.Errorf("colortransform: compiling transform %d (%v): %w", i, t.Kind, err)
		}
		ops = append(ops, lowered...)
	}

	ops = optimize(ops)
	return &Processor{ops: ops}, nil
}

// optimize drops every op marked IsIdentity (identity Matrix and Range
// ops, and Exponent ops whose gammas are all 1) and fuses adjacent Matrix
// ops by multiplication. CDL ops are never marked identity, so an
// identity CDL stays in the chain, and adjacent Range ops are not merged.
func optimize(ops []*Op) []*Op {
	// Pass 1: drop ops marked identity.
	kept := ops[:0:0]
	for _, op := range ops {
		if op.IsIdentity {
			continue
		}
		kept = append(kept, op)
	}

	// Pass 2: fuse adjacent matrix ops (recognized by GPUKernelKey=="matrix").
	fused := kept[:0:0]
	i := 0
	for i < len(kept) {
		op := kept[i]
		if op.GPUKernelKey == "matrix" && i+1 < len(kept) && kept[i+1].GPUKernelKey == "matrix" {
			a := matrixPayloadFromParams(op.GPUParams)
			b := matrixPayloadFromParams(kept[i+1].GPUParams)
			m := fuseMatrices(a, b)
			if isIdentityMatrix(m) {
				i += 2
				continue
			}
			fused = append(fused, &Op{
				Name:         "matrix",
				Fn:           matrixFn(m),
				GPUKernelKey: "matrix",
				GPUParams:    matrixGPUParams(m),
			})
			i += 2
			continue
		}
		fused = append(fused, op)
		i++
	}

	return fused
}

func matrixPayloadFromParams(params []float32) *MatrixPayload {
	var p MatrixPayload
	for i := 0; i < 16 && i < len(params); i++ {
		p.M[i] = float64(params[i])
	}
	for i := 0; i < 4 && 16+i < len(params); i++ {
		p.Offset[i] = float64(params[16+i])
	}
	return &p
}
