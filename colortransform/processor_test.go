package colortransform

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestCompileMatrixIdentityWithinTolerance(t *testing.T) {
	fwd := Transform{Kind: KindMatrix, Matrix: &MatrixPayload{M: [16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}}}
	inv := fwd
	inv.Direction = Inverse

	proc, err := Compile([]Transform{fwd, inv}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := Sample{0.3, 0.6, 0.9, 1}
	proc.ApplyPixel(&s)
	for i, want := range []float32{0.3, 0.6, 0.9, 1} {
		if !almostEqual(float64(s[i]), float64(want), 1e-6) {
			t.Errorf("channel %d = %v, want %v within 1e-6", i, s[i], want)
		}
	}
}

func TestCompileSingularMatrixFails(t *testing.T) {
	singular := Transform{Kind: KindMatrix, Direction: Inverse, Matrix: &MatrixPayload{M: [16]float64{
		0, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}}
	_, err := Compile([]Transform{singular}, nil)
	if err == nil {
		t.Fatal("expected compile error for singular matrix inverse")
	}
	var ite *InvalidTransformError
	if !asInvalidTransform(err, &ite) {
		t.Errorf("expected InvalidTransformError, got %T: %v", err, err)
	}
}

func asInvalidTransform(err error, target **InvalidTransformError) bool {
	for err != nil {
		if ite, ok := err.(*InvalidTransformError); ok {
			*target = ite
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestCDLGrayInvariant(t *testing.T) {
	cdl := Transform{Kind: KindCDL, CDL: &CDLPayload{
		Slope:      [3]float64{1, 1, 1},
		Offset:     [3]float64{0, 0, 0},
		Power:      [3]float64{1, 1, 1},
		Saturation: 2.0,
		Clamp:      ClampOn,
	}}
	proc, err := Compile([]Transform{cdl}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := Sample{0.5, 0.5, 0.5, 1.0}
	proc.ApplyPixel(&s)
	for i, want := range []float32{0.5, 0.5, 0.5, 1.0} {
		if !almostEqual(float64(s[i]), float64(want), 1e-6) {
			t.Errorf("channel %d = %v, want %v (gray must be invariant to saturation)", i, s[i], want)
		}
	}
}

func TestCompileDetectsReferenceCycle(t *testing.T) {
	resolver := cyclicResolver{}
	transforms := []Transform{{Kind: KindColorSpace, Symbolic: &SymbolicPayload{Name: "a"}}}
	_, err := Compile(transforms, &CompileContext{Config: resolver})
	if err == nil {
		t.Fatal("expected compile error for cyclic colorspace reference")
	}
}

type cyclicResolver struct{}

func (cyclicResolver) ColorSpace(name string) (ColorSpaceInfo, error) {
	other := "b"
	if name == "b" {
		other = "a"
	}
	return ColorSpaceInfo{
		ToReference: []Transform{{Kind: KindColorSpace, Symbolic: &SymbolicPayload{Name: other}}},
	}, nil
}
func (cyclicResolver) Display(string) ([]string, error)                { return nil, nil }
func (cyclicResolver) View(string, string) ([]Transform, error)        { return nil, nil }
func (cyclicResolver) Look(string) ([]Transform, error)                { return nil, nil }
func (cyclicResolver) Role(string) (string, error)                     { return "", nil }
func (cyclicResolver) NamedTransform(string) ([]Transform, error)      { return nil, nil }
func (cyclicResolver) Builtin(string) ([]Transform, error)             { return nil, nil }
func (cyclicResolver) ResolveContextVar(string) (string, bool)         { return "", false }
func (cyclicResolver) ResolvePath(string, []string, map[string]string) ([]byte, error) {
	return nil, nil
}

func TestOptimizeDropsIdentityMatrix(t *testing.T) {
	id := Transform{Kind: KindMatrix, Matrix: &MatrixPayload{M: identityMatrix()}}
	proc, err := Compile([]Transform{id}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(proc.Ops()) != 0 {
		t.Errorf("expected identity matrix to be optimized away, got %d ops", len(proc.Ops()))
	}
}

func TestOptimizeFusesAdjacentMatrices(t *testing.T) {
	scale2 := Transform{Kind: KindMatrix, Matrix: &MatrixPayload{M: [16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}}}
	scale3 := Transform{Kind: KindMatrix, Matrix: &MatrixPayload{M: [16]float64{
		3, 0, 0, 0,
		0, 3, 0, 0,
		0, 0, 3, 0,
		0, 0, 0, 1,
	}}}
	proc, err := Compile([]Transform{scale2, scale3}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(proc.Ops()) != 1 {
		t.Fatalf("expected adjacent matrices to fuse into one op, got %d", len(proc.Ops()))
	}
	s := Sample{1, 1, 1, 1}
	proc.ApplyPixel(&s)
	for i, want := range []float32{6, 6, 6, 1} {
		if !almostEqual(float64(s[i]), float64(want), 1e-6) {
			t.Errorf("channel %d = %v, want %v", i, s[i], want)
		}
	}
}

func TestUnpremultiplyFlag(t *testing.T) {
	double := Transform{Kind: KindMatrix, Matrix: &MatrixPayload{M: [16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}}}
	proc, err := Compile([]Transform{double}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	proc.Unpremultiply = true
	s := Sample{0.25, 0.25, 0.25, 0.5} // unpremultiplied RGB = 0.5
	proc.ApplyPixel(&s)
	// unpremult -> 0.5,0.5,0.5; *2 -> 1,1,1; premult by 0.5 -> 0.5,0.5,0.5
	for i, want := range []float32{0.5, 0.5, 0.5, 0.5} {
		if !almostEqual(float64(s[i]), float64(want), 1e-6) {
			t.Errorf("channel %d = %v, want %v", i, s[i], want)
		}
	}
}
