// Package fec assembles the per-TrCh encoder/decoder stacks and the CCTrCh
// multiplexer: CRC attach, segmentation, channel coding, rate matching, DTX
// insertion, interleaving, TFCI coding/detection, and the per-channel FER
// estimator.
package fec

// reedMullerTable is the 25.212 §4.3.3 table 8 basis matrix verbatim: 32
// codeword rows, 10 information-bit columns (Mi,0 .. Mi,9).
var reedMullerTable = [32][10]int{
	{1, 0, 0, 0, 0, 1, 0, 0, 0, 0},
	{0, 1, 0, 0, 0, 1, 1, 0, 0, 0},
	{1, 1, 0, 0, 0, 1, 0, 0, 0, 1},
	{0, 0, 1, 0, 0, 1, 1, 0, 1, 1},
	{1, 0, 1, 0, 0, 1, 0, 0, 0, 1},
	{0, 1, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 0, 0, 1, 0, 1, 0, 0},
	{0, 0, 0, 1, 0, 1, 0, 1, 1, 0},
	{1, 0, 0, 1, 0, 1, 1, 1, 1, 0},
	{0, 1, 0, 1, 0, 1, 1, 0, 1, 1},
	{1, 1, 0, 1, 0, 1, 0, 0, 1, 1},
	{0, 0, 1, 1, 0, 1, 0, 1, 1, 0},
	{1, 0, 1, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 0, 0, 1},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 1},
	{1, 0, 0, 0, 1, 1, 1, 1, 0, 0},
	{0, 1, 0, 0, 1, 1, 1, 1, 0, 1},
	{1, 1, 0, 0, 1, 1, 1, 0, 1, 0},
	{0, 0, 1, 0, 1, 1, 0, 1, 1, 1},
	{1, 0, 1, 0, 1, 1, 0, 1, 0, 1},
	{0, 1, 1, 0, 1, 1, 0, 0, 1, 1},
	{1, 1, 1, 0, 1, 1, 0, 1, 1, 1},
	{0, 0, 0, 1, 1, 1, 0, 1, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 1, 0, 1, 0},
	{1, 1, 0, 1, 1, 1, 1, 0, 0, 1},
	{0, 0, 1, 1, 1, 1, 0, 0, 1, 0},
	{1, 0, 1, 1, 1, 1, 1, 1, 0, 0},
	{0, 1, 1, 1, 1, 1, 1, 1, 1, 0},
	{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	{0, 0, 0, 0, 0, 1, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 0, 0, 0},
}

// MaxTfci bounds the pre-computed TFCI codeword table to 8-bit TFCI values,
// which covers every TFCS this implementation supports (CTFC bit width up
// to 8; the 12/16-bit CTFC widths select among a TFCS no larger than 256
// entries for the scenarios in scope).
const MaxTfci = 256

var tfciCodes [MaxTfci]uint32

func init() {
	for tfci := 0; tfci < MaxTfci; tfci++ {
		var result uint32
		for i := 0; i < 32; i++ {
			bi := 0
			for n := 0; n < 10; n++ {
				an := (tfci >> uint(n)) & 1
				bi += an & reedMullerTable[i][n]
			}
			result |= uint32(bi&1) << uint(i)
		}
		tfciCodes[tfci] = result
	}
}

// TFCIEncode returns the 32-bit Reed-Muller codeword for the given TFCI
// value (25.212 §4.3.3).
func TFCIEncode(tfci int) uint32 {
	return tfciCodes[tfci]
}

// FindTFCI correlates 30 soft bits (accumulated 2 bits/slot over 15 slots,
// LSB-first per codeword) against the first numTfcis codewords and returns
// the best match. bits[i] is P(bit=1) for codeword bit i, clamped to
// [0,1].
func FindTFCI(bits []float64, numTfcis int) int {
	if numTfcis > MaxTfci {
		numTfcis = MaxTfci
	}
	best := 0
	bestMatch := 0.0
	for tfci := 0; tfci < numTfcis; tfci++ {
		code := tfciCodes[tfci]
		match := 0.0
		for b := 0; b < 30; b++ {
			want := code & 1
			code >>= 1
			have := bits[b]
			if have < 0 {
				have = 0
			}
			if have > 1 {
				have = 1
			}
			if want == 1 {
				match += have
			} else {
				match += 1 - have
			}
		}
		if match > bestMatch {
			bestMatch = match
			best = tfci
		}
	}
	return best
}
