package lut

import "testing"

func TestLut1DIdentityEval(t *testing.T) {
	l, err := NewLut1D(17, 3, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float32{0, 0.2, 0.5, 0.9, 1} {
		got := l.Eval(0, x)
		if absf(got-x) > 1e-3 {
			t.Fatalf("Eval(0, %v) = %v, want ~%v", x, got, x)
		}
	}
}

func TestLut1DInvertRoundTrip(t *testing.T) {
	l, _ := NewLut1D(33, 1, 0, 1)
	// Turn the identity into a simple monotonic curve: x^2.
	for i, row := range l.Entries {
		t := float32(i) / float32(len(l.Entries)-1)
		row[0] = t * t
	}
	inv, err := l.Invert(0)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float32{0.1, 0.3, 0.6, 0.9} {
		fwd := l.Eval(0, x)
		back := inv.Eval(0, fwd)
		if absf(back-x) > 1e-2 {
			t.Fatalf("round trip x=%v -> fwd=%v -> back=%v", x, fwd, back)
		}
	}
}

func TestLut1DInvertRejectsNonMonotonic(t *testing.T) {
	l, _ := NewLut1D(5, 1, 0, 1)
	l.Entries[2][0] = 100 // spike breaks monotonicity
	if _, err := l.Invert(0); err == nil {
		t.Fatal("expected error for non-monotonic channel")
	}
}

func TestNewLut1DRejectsTooFewEntries(t *testing.T) {
	if _, err := NewLut1D(1, 3, 0, 1); err == nil {
		t.Fatal("expected error for N < 2")
	}
}
