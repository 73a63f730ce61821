package bitvector

import "testing"

func TestBitVector_PackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		bits []byte
	}{
		{"empty", []byte{}},
		{"one_bit", []byte{1}},
		{"byte_aligned", []byte{1, 0, 1, 1, 0, 0, 1, 0}},
		{"unaligned", []byte{1, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := FromBits(tc.bits)
			packed := v.Pack()

			out := New(len(tc.bits))
			out.Unpack(packed)

			if !out.Equal(v) {
				t.Fatalf("Unpack(Pack(v)) = %v, want %v", []byte(out), []byte(v))
			}
		})
	}
}

func TestBitVector_HexRoundTrip(t *testing.T) {
	v := FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 1})
	s := v.Hex()

	out, err := FromHex(s, len(v))
	if err != nil {
		t.Fatalf("FromHex() error = %v", err)
	}
	if !out.Equal(v) {
		t.Fatalf("FromHex(Hex(v)) = %v, want %v", []byte(out), []byte(v))
	}
}

func TestBitVector_InvertSum(t *testing.T) {
	v := FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0})
	n := len(v)
	ones := v.Sum()

	v.Invert()
	if got, want := v.Sum(), n-ones; got != want {
		t.Errorf("Sum() after Invert = %d, want %d", got, want)
	}

	v.Invert()
	if !v.Equal(FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0})) {
		t.Error("double Invert() should restore the original vector")
	}
}

func TestBitVector_ReverseInvolution(t *testing.T) {
	orig := FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0, 1})
	v := orig.Clone()
	v.Reverse()
	v.Reverse()
	if !v.Equal(orig) {
		t.Error("double Reverse() should restore the original vector")
	}
}

func TestBitVector_FieldReadWriteRoundTrip(t *testing.T) {
	v := New(16)
	v.WriteField(0, 10, 0x2a5&0x3ff)
	got := v.PeekField(0, 10)
	if want := uint64(0x2a5 & 0x3ff); got != want {
		t.Errorf("PeekField() = %#x, want %#x", got, want)
	}

	idx := 0
	v2 := New(16)
	v2.WriteField(0, 10, got)
	read := v2.ReadField(&idx, 10)
	if read != got || idx != 10 {
		t.Errorf("ReadField() = %#x (idx=%d), want %#x (idx=10)", read, idx, got)
	}
}

func TestBitVector_InterleaveDeinterleaveRoundTrip(t *testing.T) {
	perm := []int{2, 0, 3, 1}
	v := FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0, 1})

	interleaved := Interleave(v, perm, 0)
	out := Deinterleave(interleaved, perm, 0)

	if !out.Equal(v) {
		t.Fatalf("Deinterleave(Interleave(v)) = %v, want %v", []byte(out), []byte(v))
	}
}
