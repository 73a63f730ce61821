package fec

import (
	"github.com/rangenet/umts-nodeb/internal/bitvector"
	"github.com/rangenet/umts-nodeb/internal/trch"
)

// DemultiplexFrame inverts MultiplexFrame: 2nd-deinterleaves one CCTrCh
// radio frame and splits it back into each TrCh's contribution, given the
// per-TrCh contribution lengths and id order.
func DemultiplexFrame(frame bitvector.SoftVector, order []int, lengths map[int]int) map[int]bitvector.SoftVector {
	softDeinterleaved := deinterleaveSoft(frame)

	out := make(map[int]bitvector.SoftVector, len(order))
	off := 0
	for _, id := range order {
		n := lengths[id]
		out[id] = softDeinterleaved[off : off+n]
		off += n
	}
	return out
}

func deinterleaveSoft(v bitvector.SoftVector) bitvector.SoftVector {
	cols := len(inter2PermRef())
	rows := (len(v) + cols - 1) / cols
	padded := make(bitvector.SoftVector, rows*cols)
	copy(padded, v)
	for i := len(v); i < len(padded); i++ {
		padded[i] = 0.5
	}
	out := make(bitvector.SoftVector, len(padded))
	perm := inter2PermRef()
	k := 0
	for c := 0; c < cols; c++ {
		src := perm[c]
		for r := 0; r < rows; r++ {
			out[r*cols+src] = padded[k]
			k++
		}
	}
	return out[:len(v)]
}

// inter2PermRef exposes trch's 2nd-interleaver permutation for the soft
// variant above (kept in one place in package trch; mirrored here only to
// drive the float-domain walk).
func inter2PermRef() []int {
	return trch.Inter2PermTable()
}

// DecodeTrCh inverts EncodeTrCh: deinterleaves 1, rate-unmatches, decodes
// each code block, desegments, and reports per-TB CRC outcomes.
// preRMSize/numTBs/tbSize describe the original TF.
func DecodeTrCh(cfg trch.TrChConfig, frames []bitvector.SoftVector, preRMSize, postRMSize, tbSize, numTBs int) ([]bitvector.BitVector, []bool) {
	concatSoft := make(bitvector.SoftVector, 0, postRMSize)
	for _, f := range frames {
		concatSoft = append(concatSoft, f...)
	}
	matched := concatSoft.Sliced()
	deinterleaved := trch.Deinterleave1(matched, cfg.TFS.TTI)

	frameCount := cfg.TFS.TTI.NumRadioFrames()
	var unmatched bitvector.SoftVector
	if cfg.Direction == trch.Uplink {
		einis := trch.ComputeUplinkEini(preRMSize/frameCount, postRMSize/frameCount, cfg.TFS.TTI)
		unmatched = unRateMatchPerFrame(toSoft(deinterleaved), preRMSize, frameCount, einis)
	} else {
		unmatched = trch.UnRateMatch(toSoft(deinterleaved), preRMSize, 1)
	}

	z := cfg.TFS.Coder.Z()
	blockPlan := trch.Segment(dummyTBs(tbSize, numTBs), cfg.TFS.CRCSize, z)
	blocks := make([]bitvector.BitVector, len(blockPlan.Blocks))
	off := 0
	for i, b := range blockPlan.Blocks {
		kin := len(b)
		codedLen := CodedLen(cfg.TFS.Coder, kin)
		blocks[i] = DecodeBlock(cfg.TFS.Coder, unmatched[off:off+codedLen], kin)
		off += codedLen
	}

	return trch.Desegment(blocks, blockPlan.Filler, cfg.TFS.CRCSize, tbSize, numTBs)
}

func toSoft(v bitvector.BitVector) bitvector.SoftVector {
	out := make(bitvector.SoftVector, len(v))
	for i, b := range v {
		if b == 1 {
			out[i] = 1
		} else if b == 0 {
			out[i] = 0
		} else {
			out[i] = 0.5
		}
	}
	return out
}

func unRateMatchPerFrame(matched bitvector.SoftVector, preRMTotal, frames int, einis []int) bitvector.SoftVector {
	outPerFrame := len(matched) / frames
	inPerFrame := preRMTotal / frames
	out := make(bitvector.SoftVector, 0, preRMTotal)
	for i := 0; i < frames; i++ {
		f := matched[i*outPerFrame : (i+1)*outPerFrame]
		out = append(out, trch.UnRateMatch(f, inPerFrame, einis[i%len(einis)])...)
	}
	return out
}
