package fec

import (
	"fmt"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
	"github.com/rangenet/umts-nodeb/internal/trch"
)

// Capacity reports the CCTrCh radio-frame bit capacity for a given TFCI —
// constant in the downlink, varying by TFC in the uplink since uplink SF
// is chosen per TFC.
type Capacity func(tfci int) int

// trchState is the opaque per-TrCh slot inside a CCTrCh's arena, stored in
// configuration order and looked up by the TrCh's 1-based id; see
// SPEC_FULL.md §9.
type trchState struct {
	cfg trch.TrChConfig
	fer *FERTracker
}

// CCTrCh owns the TrCh arena and FEC plumbing for one physical channel's
// coded composite transport channel. All TrChs it holds are assumed to
// share a common TTI — multiplexing TrChs with differing TTIs within one
// CCTrCh is not exercised by this implementation.
type CCTrCh struct {
	Config   trch.CCTrChConfig
	states   []*trchState
	Capacity Capacity
}

// NewCCTrCh builds the per-TrCh arena for the given configuration.
func NewCCTrCh(cfg trch.CCTrChConfig, capacity Capacity) *CCTrCh {
	c := &CCTrCh{Config: cfg, Capacity: capacity}
	c.states = make([]*trchState, len(cfg.TrChs))
	for i, t := range cfg.TrChs {
		c.states[i] = &trchState{cfg: t, fer: NewFERTracker(20)}
	}
	return c
}

func (c *CCTrCh) stateFor(id int) *trchState {
	for _, s := range c.states {
		if s.cfg.ID == id {
			return s
		}
	}
	return nil
}

// FER returns the current FER estimate for the given TrCh id.
func (c *CCTrCh) FER(trChID int) float64 {
	s := c.stateFor(trChID)
	if s == nil {
		return 0
	}
	return s.fer.Value()
}

// perTrChSize is the pre- and post-rate-match bit count for one TrCh under
// one TFC, used both to drive the rate-match kernel and to size radio
// frame segmentation.
type perTrChSize struct {
	preRM  int // NTTI_i,j: coded bits across the whole TTI
	postRM int // Zi,j: coded bits across the whole TTI after rate matching
	frames int // F_i
}

func (c *CCTrCh) planSizes(tfci int) (map[int]perTrChSize, error) {
	tfc := c.Config.TFCS.TFCs[tfci]
	total := c.Capacity(tfci)
	if len(tfc.TFIndex) != len(c.states) {
		return nil, fmt.Errorf("fec: TFC %d has %d TF indices, want %d", tfci, len(tfc.TFIndex), len(c.states))
	}

	type raw struct {
		id, n, frames int
	}
	raws := make([]raw, 0, len(c.states))
	sumRatePerFrame := 0.0
	for i, s := range c.states {
		tf := s.cfg.TFS.TFs[tfc.TFIndex[i]]
		blockBits := tf.TotalBits() + s.cfg.TFS.CRCSize*tf.NumTBs
		// account for code-block segmentation overhead via CodedLen on
		// the (possibly single) segmented block size.
		seg := trch.Segment(dummyTBs(tf.TBSize, tf.NumTBs), s.cfg.TFS.CRCSize, s.cfg.TFS.Coder.Z())
		n := 0
		for _, b := range seg.Blocks {
			n += CodedLen(s.cfg.TFS.Coder, len(b))
		}
		_ = blockBits
		frames := s.cfg.TFS.TTI.NumRadioFrames()
		raws = append(raws, raw{id: s.cfg.ID, n: n, frames: frames})
		sumRatePerFrame += float64(n) / float64(frames)
	}

	out := make(map[int]perTrChSize, len(raws))
	for _, r := range raws {
		var fraction float64
		if sumRatePerFrame > 0 {
			fraction = (float64(r.n) / float64(r.frames)) / sumRatePerFrame
		}
		perFrame := int(fraction*float64(total) + 0.5)
		out[r.id] = perTrChSize{preRM: r.n, postRM: perFrame * r.frames, frames: r.frames}
	}
	return out, nil
}

func dummyTBs(tbSize, numTBs int) []bitvector.BitVector {
	tbs := make([]bitvector.BitVector, numTBs)
	for i := range tbs {
		tbs[i] = make(bitvector.BitVector, tbSize)
	}
	return tbs
}
