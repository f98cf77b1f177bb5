package lut

import "testing"

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// TestIdentityTetrahedralReproducesInput covers spec.md §8's quantified
// test: for N in {17, 33, 65}, an identity LUT3D applied tetrahedrally
// reproduces the input within max_abs_err <= 2e-7.
func TestIdentityTetrahedralReproducesInput(t *testing.T) {
	for _, n := range []int{17, 33, 65} {
		l, err := NewLut3D(n)
		if err != nil {
			t.Fatal(err)
		}
		samples := []float32{0, 0.1, 0.25, 0.5, 0.501, 0.75, 0.999, 1}
		for _, r := range samples {
			for _, g := range samples {
				for _, b := range samples {
					got := l.EvalTetrahedral(r, g, b)
					if absf(got[0]-r) > 2e-7 || absf(got[1]-g) > 2e-7 || absf(got[2]-b) > 2e-7 {
						t.Fatalf("N=%d identity(%v,%v,%v) = %v, want ~input", n, r, g, b, got)
					}
				}
			}
		}
	}
}

// TestTetrahedralCornerPerturbation covers spec.md §8 scenario 4: a 3^3
// LUT filled with identity then perturbed at (1,1,1) by +0.1; sampling at
// (1,1,1) must return the perturbed value exactly.
func TestTetrahedralCornerPerturbation(t *testing.T) {
	l, _ := NewLut3D(3)
	corner := l.Node(2, 2, 2)
	l.SetNode(2, 2, 2, [3]float32{corner[0] + 0.1, corner[1] + 0.1, corner[2] + 0.1})
	got := l.EvalTetrahedral(1, 1, 1)
	want := [3]float32{1.1, 1.1, 1.1}
	for i := range want {
		if absf(got[i]-want[i]) > 1e-6 {
			t.Fatalf("corner sample = %v, want %v", got, want)
		}
	}
}

func TestTetrahedralTrilinearAgreeAtNodes(t *testing.T) {
	n := 5
	l, _ := NewLut3D(n)
	// Perturb the grid so the two paths aren't trivially both-identity.
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				v := l.Node(r, g, b)
				l.SetNode(r, g, b, [3]float32{v[0] * 1.3, v[1]*1.3 + 0.01, v[2] * 0.7})
			}
		}
	}
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				x := float32(r) / float32(n-1)
				y := float32(g) / float32(n-1)
				z := float32(b) / float32(n-1)
				tet := l.EvalTetrahedral(x, y, z)
				tri := l.EvalTrilinear(x, y, z)
				for i := 0; i < 3; i++ {
					if absf(tet[i]-tri[i]) > 1e-6 {
						t.Fatalf("node (%d,%d,%d): tetrahedral %v != trilinear %v", r, g, b, tet, tri)
					}
				}
			}
		}
	}
}

func TestTrilinearCenterOfIdentityCube(t *testing.T) {
	// Trilinear sampling at the centre of a 2^3 LUT whose corners hold
	// the identity values returns the centre. The corners are symmetric,
	// so this does not distinguish interpolation orders.
	l, _ := NewLut3D(2)
	l.SetNode(0, 0, 0, [3]float32{0, 0, 0})
	l.SetNode(1, 0, 0, [3]float32{1, 0, 0})
	l.SetNode(0, 1, 0, [3]float32{0, 1, 0})
	l.SetNode(0, 0, 1, [3]float32{0, 0, 1})
	l.SetNode(1, 1, 0, [3]float32{1, 1, 0})
	l.SetNode(1, 0, 1, [3]float32{1, 0, 1})
	l.SetNode(0, 1, 1, [3]float32{0, 1, 1})
	l.SetNode(1, 1, 1, [3]float32{1, 1, 1})
	got := l.EvalTrilinear(0.5, 0.5, 0.5)
	want := [3]float32{0.5, 0.5, 0.5}
	for i := range want {
		if absf(got[i]-want[i]) > 1e-6 {
			t.Fatalf("center sample = %v, want %v", got, want)
		}
	}
}
