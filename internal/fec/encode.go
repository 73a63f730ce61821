package fec

import (
	"fmt"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
	"github.com/rangenet/umts-nodeb/internal/trch"
)

// EncodeTrCh runs one TrCh's encoder stack for one TTI: CRC attach,
// code-block segmentation, channel coding, rate matching, 1st
// interleaving, and radio-frame segmentation. Returns one bit vector per
// radio frame of the TTI; in the downlink the rate-matched bits are first
// DTX-padded up to dtxSize when dtxSize exceeds postRMSize.
func EncodeTrCh(cfg trch.TrChConfig, tbs []bitvector.BitVector, postRMSize, dtxSize int) ([]bitvector.BitVector, error) {
	if _, err := tfForTBs(cfg.TFS, tbs); err != nil {
		return nil, err
	}
	seg := trch.Segment(tbs, cfg.TFS.CRCSize, cfg.TFS.Coder.Z())

	preRM := make(bitvector.BitVector, 0, postRMSize)
	for _, block := range seg.Blocks {
		preRM = append(preRM, EncodeBlock(cfg.TFS.Coder, block)...)
	}

	frames := cfg.TFS.TTI.NumRadioFrames()
	var matched bitvector.BitVector
	if cfg.Direction == trch.Uplink {
		einis := trch.ComputeUplinkEini(len(preRM)/frames, postRMSize/frames, cfg.TFS.TTI)
		matched = rateMatchPerFrame(preRM, postRMSize, frames, einis)
	} else {
		matched = trch.RateMatch(preRM, postRMSize, 1)
	}

	if cfg.Direction == trch.Downlink && dtxSize > postRMSize {
		padded := make(bitvector.BitVector, dtxSize)
		copy(padded, matched)
		for i := len(matched); i < dtxSize; i++ {
			padded[i] = bitvector.DTX
		}
		matched = padded
	}

	interleaved := trch.Interleave1(matched, cfg.TFS.TTI)
	return splitEqual(interleaved, frames), nil
}

func rateMatchPerFrame(preRM bitvector.BitVector, postRMTotal, frames int, einis []int) bitvector.BitVector {
	inFrames := splitEqual(preRM, frames)
	outPerFrame := postRMTotal / frames
	out := make(bitvector.BitVector, 0, postRMTotal)
	for i, f := range inFrames {
		out = append(out, trch.RateMatch(f, outPerFrame, einis[i%len(einis)])...)
	}
	return out
}

func splitEqual(v bitvector.BitVector, n int) []bitvector.BitVector {
	sz := len(v) / n
	out := make([]bitvector.BitVector, n)
	for i := 0; i < n; i++ {
		out[i] = v[i*sz : (i+1)*sz]
	}
	return out
}

func tfForTBs(tfs trch.TFS, tbs []bitvector.BitVector) (trch.TF, error) {
	for _, tf := range tfs.TFs {
		if tf.NumTBs == len(tbs) && (len(tbs) == 0 || len(tbs[0]) == tf.TBSize) {
			return tf, nil
		}
	}
	return trch.TF{}, fmt.Errorf("fec: no matching TF for %d TBs", len(tbs))
}

// MultiplexFrame concatenates each TrCh's contribution to one radio frame
// (in TrCh-id order) into a single CCTrCh frame, then applies the 2nd
// interleaver.
func MultiplexFrame(perTrChFrame map[int]bitvector.BitVector, order []int) bitvector.BitVector {
	total := 0
	for _, id := range order {
		total += len(perTrChFrame[id])
	}
	concat := make(bitvector.BitVector, 0, total)
	for _, id := range order {
		concat = append(concat, perTrChFrame[id]...)
	}
	return trch.Interleave2(concat)
}
