package bitio

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3)
	w.WriteBits(0b11110000, 8)
	w.WriteBits(0b1, 1)
	buf := w.Flush()

	r := NewReader(buf)
	v, err := r.ReadBits(3)
	if err != nil || v != 0b101 {
		t.Fatalf("first field = %b, err %v", v, err)
	}
	v, err = r.ReadBits(8)
	if err != nil || v != 0b11110000 {
		t.Fatalf("second field = %b, err %v", v, err)
	}
	v, err = r.ReadBits(1)
	if err != nil || v != 1 {
		t.Fatalf("third field = %b, err %v", v, err)
	}
}

func TestReaderEOF(t *testing.T) {
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(16); err == nil {
		t.Fatal("expected EOF error reading past buffer end")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	r := NewReader([]byte{0b10110000})
	peeked, err := r.PeekBits(4)
	if err != nil || peeked != 0b1011 {
		t.Fatalf("peek = %b, err %v", peeked, err)
	}
	read, err := r.ReadBits(4)
	if err != nil || read != 0b1011 {
		t.Fatalf("read after peek = %b, err %v", read, err)
	}
}
