package bitvector

import "testing"

func TestParity_ZeroSyndromeAcrossCRCSizes(t *testing.T) {
	dataPatterns := [][]byte{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0, 0},
	}

	for _, crcSize := range []int{8, 12, 16, 24} {
		for i, pattern := range dataPatterns {
			data := FromBits(pattern)
			p := NewParity(crcSize, len(data))

			codeword := New(len(data) + crcSize)
			copy(codeword, data)
			p.WriteParityWord(data, codeword, len(data))

			if !p.Check(codeword) {
				t.Errorf("crcSize=%d pattern=%d: Check() = false on a freshly-encoded codeword, want true", crcSize, i)
			}

			// Flipping any single data bit must break the syndrome.
			corrupted := codeword.Clone()
			corrupted[0] ^= 1
			if p.Check(corrupted) {
				t.Errorf("crcSize=%d pattern=%d: Check() = true on a single-bit-corrupted codeword, want false", crcSize, i)
			}
		}
	}
}

func TestParity_ZeroCRCSizeAlwaysPasses(t *testing.T) {
	p := NewParity(0, 12)
	data := FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 0, 1, 1})
	if !p.Check(data) {
		t.Error("Check() with ParitySize=0 should always report clean")
	}
}
