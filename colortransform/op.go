package colortransform

// Sample is a single pixel's RGBA working value. Ops mutate it in place.
type Sample = [4]float32

// OpFunc is the pixel-wise contract every compiled Op implements:
// fn(&mut [f32; >=4]) in spec.md §3.4 terms. Go expresses the mutable
// reference as a pointer to a fixed-size array, avoiding both boxing and
// a tagged-union branch per pixel inside hot loops (spec.md Design Notes,
// "polymorphic op dispatch").
type OpFunc func(s *Sample)

// GPUKernel names the shader this Op compiles to on the GPU backend.
type GPUKernel string

// Op is the compiled, concrete form a Transform variant is lowered to.
type Op struct {
	Name string
	Fn   OpFunc

	// GPUKernelKey identifies the compute-shader this op dispatches to.
	GPUKernelKey GPUKernel
	// GPUParams is the flat parameter block uploaded alongside the kernel
	// key (matrix coefficients, CDL slope/offset/power, etc).
	GPUParams []float32

	// AlphaActive marks ops that intentionally modify the alpha channel;
	// by default color ops leave alpha untouched (spec.md §4.2).
	AlphaActive bool

	// Optimization metadata.
	IsIdentity    bool
	FusesWithNext bool
	CommutesWith  func(other *Op) bool
}

// identityOp returns a no-op Op, used as a structural placeholder that the
// optimizer removes during compilation.
func identityOp(name string) *Op {
	return &Op{
		Name:         name,
		Fn:           func(s *Sample) {},
		GPUKernelKey: "identity",
		IsIdentity:   true,
	}
}

func matrixFn(m *MatrixPayload) OpFunc {
	M := m.M
	off := m.Offset
	return func(s *Sample) {
		r, g, b := float64(s[0]), float64(s[1]), float64(s[2])
		nr := M[0]*r + M[1]*g + M[2]*b + M[3]*float64(s[3]) + off[0]
		ng := M[4]*r + M[5]*g + M[6]*b + M[7]*float64(s[3]) + off[1]
		nb := M[8]*r + M[9]*g + M[10]*b + M[11]*float64(s[3]) + off[2]
		s[0], s[1], s[2] = float32(nr), float32(ng), float32(nb)
	}
}
