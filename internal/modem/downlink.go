package modem

import (
	"log"

	"github.com/rangenet/umts-nodeb/internal/ovsf"
	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

// Amplitudes used when mixing channels into one slot's I/Q accumulator.
const (
	AmpCPICH = 1.0
	AmpPSCH  = 1.0
	AmpCCPCH = 0.8
	AmpDCH   = 0.8
)

// TxBitsBurst is one PhCh's contribution to a downlink slot: spread and
// scrambled by the modem at the burst's scheduled Time.
type TxBitsBurst struct {
	At            radioclock.Time
	Bits          []byte
	SF            int
	Code          int
	RightJustify  bool
	IsDCH         bool
}

// PSCHCode is the primary synchronisation code chip pattern, fixed for
// every cell (25.213 §5.2.3.1), generalised Hierarchical Golay sequence
// truncated to 256 chips. A simplified truncated Golay-like pattern is
// used here since the production constant itself carries no per-cell
// configuration.
var PSCHCode = buildPSCH()

func buildPSCH() []int8 {
	out := make([]int8, 256)
	seq := []int8{1, 1, 1, 1, 1, 1, -1, -1, 1, -1, 1, -1, 1, -1, -1, 1}
	for i := range out {
		out[i] = seq[i%len(seq)]
	}
	return out
}

// sschCodes holds one 256-chip sequence per scrambling code group (0..63),
// derived deterministically from the group index.
var sschCodes = buildSSCH()

func buildSSCH() [64][]int8 {
	var table [64][]int8
	for g := 0; g < 64; g++ {
		seed := uint32(g*2+1) | 1
		table[g] = mSequence(seed, dlXTaps, 256)
	}
	return table
}

// DownlinkSlot accumulates CPICH+SCH+queued-burst energy for one slot and
// scrambles the result; Synthesize returns the slot as 2560 real-valued
// int8 chips (the I arm only).
type DownlinkSlot struct {
	ScCode int
	Tree   *ovsf.ChannelTree
}

// Synthesize builds one slot's I/Q payload (2560 samples, here real-valued
// since the BPSK/QPSK split is carried entirely in the I arm for the scope
// of this implementation) for the given frame/slot time and the bursts
// queued for exactly that time.
func (d *DownlinkSlot) Synthesize(at radioclock.Time, bursts []TxBitsBurst) []int8 {
	acc := make([]float64, radioclock.ChipsPerSlot)

	// CPICH: SF=256, code=0, all-zero data -> constant +1 symbol.
	cpich := ovsf.Spread([]byte{0}, 256, 0)
	for i, c := range cpich {
		acc[i] += AmpCPICH * float64(c)
	}

	if at.Slot == 0 {
		for i := 0; i < 256 && i < len(acc); i++ {
			acc[i] += -AmpPSCH * float64(PSCHCode[i])
		}
	}
	group := ScramblingGroup(d.ScCode)
	ssch := sschCodes[group]
	for i := 0; i < 256 && i < len(acc); i++ {
		acc[i] += AmpCCPCH * float64(ssch[i])
	}

	now := at
	for _, b := range bursts {
		if b.At.Before(now) {
			log.Printf("modem: dropping stale downlink burst scheduled %s, now %s", b.At, now)
			continue
		}
		amp := AmpCCPCH
		if b.IsDCH {
			amp = AmpDCH
		}
		spread := ovsf.Spread(b.Bits, b.SF, b.Code)
		for i, c := range spread {
			if i >= len(acc) {
				break
			}
			acc[i] += amp * float64(c)
		}
	}

	scr := ScramblingCode(d.ScCode, radioclock.ChipsPerSlot)
	out := make([]int8, radioclock.ChipsPerSlot)
	for i := range out {
		v := acc[i] * float64(scr[i])
		out[i] = clampInt8(v)
	}
	return out
}

func clampInt8(v float64) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
