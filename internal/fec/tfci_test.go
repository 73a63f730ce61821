package fec

import "testing"

func hammingDistance32(a, b uint32) int {
	x := a ^ b
	n := 0
	for x != 0 {
		n += int(x & 1)
		x >>= 1
	}
	return n
}

func TestTFCIEncode_MinimumHammingDistance(t *testing.T) {
	const want = 10
	for i := 0; i < MaxTfci; i++ {
		ci := TFCIEncode(i)
		for j := i + 1; j < MaxTfci; j++ {
			cj := TFCIEncode(j)
			if d := hammingDistance32(ci, cj); d < want {
				t.Fatalf("Hamming distance between TFCI %d and %d = %d, want >= %d", i, j, d, want)
			}
		}
	}
}

func softBitsFromCodeword(code uint32, flips map[int]bool) []float64 {
	bits := make([]float64, 30)
	for b := 0; b < 30; b++ {
		want := float64(code & 1)
		code >>= 1
		if flips[b] {
			want = 1 - want
		}
		bits[b] = want
	}
	return bits
}

func TestFindTFCI_ExactMatch(t *testing.T) {
	for _, tfci := range []int{0, 1, 5, 17, 63, 200, 255} {
		code := TFCIEncode(tfci)
		bits := softBitsFromCodeword(code, nil)
		if got := FindTFCI(bits, MaxTfci); got != tfci {
			t.Errorf("FindTFCI() with a clean codeword = %d, want %d", got, tfci)
		}
	}
}

func TestFindTFCI_ToleratesBitErrors(t *testing.T) {
	tfci := 42
	code := TFCIEncode(tfci)
	flips := map[int]bool{2: true, 9: true, 14: true, 21: true}
	bits := softBitsFromCodeword(code, flips)

	if got := FindTFCI(bits, MaxTfci); got != tfci {
		t.Errorf("FindTFCI() with 4 flipped bits = %d, want %d", got, tfci)
	}
}

func TestFERTracker_TracksErrorRate(t *testing.T) {
	tr := NewFERTracker(20)
	for i := 0; i < 100; i++ {
		tr.Update(false)
	}
	if v := tr.Value(); v > 0.01 {
		t.Errorf("Value() after 100 good frames = %f, want near 0", v)
	}

	tr2 := NewFERTracker(20)
	for i := 0; i < 100; i++ {
		tr2.Update(true)
	}
	if v := tr2.Value(); v < 0.99 {
		t.Errorf("Value() after 100 bad frames = %f, want near 1", v)
	}
}
