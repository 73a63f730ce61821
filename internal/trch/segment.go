package trch

import (
	"fmt"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
)

// Segmented is the result of CRC-attach + code-block segmentation: C
// equal-sized blocks, with Filler zero bits recorded so the decoder can
// strip them after decoding.
type Segmented struct {
	Blocks []bitvector.BitVector
	Filler int
}

// Segment concatenates the B transport blocks of size K each, attaching an
// L-bit CRC to each, then splits into code blocks no larger than Z bits
// (25.212 §4.2.2), padding the head of the first block with Filler zero
// bits if segmentation is required.
func Segment(tbs []bitvector.BitVector, crcSize, z int) Segmented {
	if len(tbs) == 0 {
		return Segmented{}
	}
	k := len(tbs[0])
	parity := bitvector.NewParity(crcSize, k)

	concatLen := len(tbs) * (k + crcSize)
	concat := make(bitvector.BitVector, concatLen)
	off := 0
	for _, tb := range tbs {
		copy(concat[off:off+k], tb)
		parity.WriteParityWord(tb, concat, off+k)
		off += k + crcSize
	}

	if concatLen <= z {
		return Segmented{Blocks: []bitvector.BitVector{concat}, Filler: 0}
	}

	c := (concatLen + z - 1) / z
	ki := concatLen / c
	if concatLen%c != 0 {
		ki++
	}
	y := c*ki - concatLen

	padded := make(bitvector.BitVector, c*ki)
	copy(padded[y:], concat)

	blocks := make([]bitvector.BitVector, c)
	for i := 0; i < c; i++ {
		blocks[i] = padded[i*ki : (i+1)*ki]
	}
	return Segmented{Blocks: blocks, Filler: y}
}

// Desegment reverses Segment for decoding: concatenates the decoded code
// blocks, strips the Filler head bits, then splits into B transport blocks
// of size K each and checks/strips their L-bit CRC. Returns false for any
// TB whose CRC check fails (the TB is still returned, undefined on
// mismatch, for the caller to drop).
func Desegment(blocks []bitvector.BitVector, filler int, crcSize, k, numTBs int) ([]bitvector.BitVector, []bool) {
	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	concat := make(bitvector.BitVector, total-filler)
	off := 0
	skip := filler
	for _, b := range blocks {
		n := len(b)
		if skip >= n {
			skip -= n
			continue
		}
		copy(concat[off:], b[skip:])
		off += n - skip
		skip = 0
	}

	parity := bitvector.NewParity(crcSize, k)
	tbs := make([]bitvector.BitVector, numTBs)
	ok := make([]bool, numTBs)
	stride := k + crcSize
	for i := 0; i < numTBs; i++ {
		start := i * stride
		if start+stride > len(concat) {
			panic(fmt.Sprintf("trch: desegment out of range for TB %d", i))
		}
		codeword := concat[start : start+stride]
		tbs[i] = codeword[:k].Clone()
		ok[i] = parity.Check(codeword)
	}
	return tbs, ok
}
