package colortransform

import "gonum.org/v1/gonum/mat"

// invertMatrix4 inverts a 4x4 row-major matrix, rejecting singular
// matrices below a small determinant epsilon (spec.md §4.2 step 3:
// "invert with singular-matrix detection — determinant below ε yields
// Invalid").
const singularEps = 1e-12

func invertMatrix4(m [16]float64) ([16]float64, error) {
	d := mat.NewDense(4, 4, m[:])
	det := mat.Det(d)
	if det < singularEps && det > -singularEps {
		return [16]float64{}, invalidTransform("matrix is singular (det=%g)", det)
	}
	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return [16]float64{}, invalidTransform("matrix inversion failed: %v", err)
	}
	var out [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = inv.At(r, c)
		}
	}
	return out, nil
}

// invertAffine inverts the combined (M, offset) affine transform:
// forward is out = M*in + offset, so inverse is out = M^-1*in - M^-1*offset.
func invertAffine(p *MatrixPayload) (*MatrixPayload, error) {
	invM, err := invertMatrix4(p.M)
	if err != nil {
		return nil, err
	}
	var invOffset [4]float64
	for r := 0; r < 4; r++ {
		var sum float64
		for c := 0; c < 4; c++ {
			sum += invM[r*4+c] * p.Offset[c]
		}
		invOffset[r] = -sum
	}
	return &MatrixPayload{M: invM, Offset: invOffset}, nil
}

// fuseMatrices composes two matrix ops as a single matrix: applying a then
// b is equivalent to the matrix product b.M * a.M with offsets carried
// through (spec.md §4.2: "adjacent Matrix ops fused by multiplication").
func fuseMatrices(a, b *MatrixPayload) *MatrixPayload {
	ad := mat.NewDense(4, 4, a.M[:])
	bd := mat.NewDense(4, 4, b.M[:])
	var prod mat.Dense
	prod.Mul(bd, ad)

	var out MatrixPayload
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out.M[r*4+c] = prod.At(r, c)
		}
	}
	// offset' = B.M * a.offset + b.offset
	for r := 0; r < 4; r++ {
		var sum float64
		for c := 0; c < 4; c++ {
			sum += bd.At(r, c) * a.Offset[c]
		}
		out.Offset[r] = sum + b.Offset[r]
	}
	return &out
}

func identityMatrix() [16]float64 {
	return [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func isIdentityMatrix(p *MatrixPayload) bool {
	id := identityMatrix()
	for i := range p.M {
		if p.M[i] != id[i] {
			return false
		}
	}
	for _, o := range p.Offset {
		if o != 0 {
			return false
		}
	}
	return true
}

func lowerMatrix(t *Transform) (*Op, error) {
	p := t.Matrix
	if t.Direction == Inverse {
		inv, err := invertAffine(p)
		if err != nil {
			return nil, err
		}
		p = inv
	}
	m := p
	return &Op{
		Name:         "matrix",
		Fn:           matrixFn(m),
		GPUKernelKey: "matrix",
		GPUParams:    matrixGPUParams(m),
		IsIdentity:   isIdentityMatrix(m),
	}, nil
}

func matrixGPUParams(m *MatrixPayload) []float32 {
	out := make([]float32, 0, 20)
	for _, v := range m.M {
		out = append(out, float32(v))
	}
	for _, v := range m.Offset {
		out = append(out, float32(v))
	}
	return out
}
