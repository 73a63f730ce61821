package fec

import (
	"github.com/rangenet/umts-nodeb/internal/bitvector"
	"github.com/rangenet/umts-nodeb/internal/trch"
	"github.com/rangenet/umts-nodeb/internal/turbocodec"
)

// EncodeBlock channel-codes one segmented code block of kin bits per the
// TFS's coder. Convolutional codes get K-1 zero tail bits appended before
// encoding (25.212 §4.2.3.1); turbo coding appends its own trellis
// termination internally.
func EncodeBlock(coder trch.Coder, data bitvector.BitVector) bitvector.BitVector {
	switch coder {
	case trch.CoderConvK5:
		return encodeTailBiting(bitvector.ViterbiR2O4, data)
	case trch.CoderConvK9:
		return encodeTailBiting(bitvector.ViterbiR2O9, data)
	case trch.CoderTurbo:
		il := turbocodec.NewInterleaver(len(data))
		return turbocodec.Encode(data, il)
	default:
		panic("fec: unknown coder")
	}
}

func encodeTailBiting(code bitvector.ConvCode, data bitvector.BitVector) bitvector.BitVector {
	tail := code.K - 1
	padded := make(bitvector.BitVector, len(data)+tail)
	copy(padded, data)
	return code.Encode(padded)
}

// DecodeBlock is the inverse of EncodeBlock: coded is the soft received
// block (including tail/termination bits) and kin is the original
// information-bit count.
func DecodeBlock(coder trch.Coder, coded bitvector.SoftVector, kin int) bitvector.BitVector {
	switch coder {
	case trch.CoderConvK5:
		return decodeTailBiting(bitvector.ViterbiR2O4, coded, kin)
	case trch.CoderConvK9:
		return decodeTailBiting(bitvector.ViterbiR2O9, coded, kin)
	case trch.CoderTurbo:
		il := turbocodec.NewInterleaver(kin)
		return turbocodec.Decode(coded, kin, il, 8)
	default:
		panic("fec: unknown coder")
	}
}

func decodeTailBiting(code bitvector.ConvCode, coded bitvector.SoftVector, kin int) bitvector.BitVector {
	tail := code.K - 1
	full := code.DecodeT(coded, kin+tail, 9.0)
	return full[:kin].Clone()
}

// CodedLen returns the number of coded bits EncodeBlock will produce for a
// kin-bit block under the given coder.
func CodedLen(coder trch.Coder, kin int) int {
	switch coder {
	case trch.CoderConvK5:
		return coder.Rate() * (kin + bitvector.ViterbiR2O4.K - 1)
	case trch.CoderConvK9:
		return coder.Rate() * (kin + bitvector.ViterbiR2O9.K - 1)
	case trch.CoderTurbo:
		return 3*kin + 12
	default:
		panic("fec: unknown coder")
	}
}
