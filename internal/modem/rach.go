package modem

import (
	"log"
	"math"

	"github.com/rangenet/umts-nodeb/internal/ovsf"
	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

// slotsPerAccessSlot is the number of regular 2560-chip slots in one
// 5120-chip PRACH access slot (25.211 §4.3.1).
const slotsPerAccessSlot = 2

// RACHState is the PRACH preamble/message detector's state machine
// (SPEC_FULL.md §4.11).
type RACHState int

const (
	RACHIdle RACHState = iota
	RACHPreambleDetected
	RACHAwaitMsgStart
	RACHDecoding
)

// PreambleSignature is one PRACH preamble's pre-computed scrambled
// signature, cached by (scrambling code, signature index).
type PreambleSignature struct {
	ScrambleCode int
	Signature    int
	Chips        []int8
}

// BuildPreambleSignature derives the scrambled/spread preamble waveform
// for one signature (16-chip Hadamard signature spread to 4096 chips per
// 25.213 §4.3.3, re-derived rather than table-copied).
func BuildPreambleSignature(scrambleCode, signature int) PreambleSignature {
	sig := ovsf.Code(16, signature)
	chips := make([]int8, 4096)
	scr := ScramblingCode(scrambleCode, len(chips))
	for i := range chips {
		chips[i] = sig[i%16] * scr[i]
	}
	return PreambleSignature{ScrambleCode: scrambleCode, Signature: signature, Chips: chips}
}

// RACHDetector correlates received access-slot samples against a set of
// enabled preamble signatures, schedules an AICH response when a peak
// exceeds the detection threshold, and arms the message decoder.
type RACHDetector struct {
	Signatures []PreambleSignature
	Threshold  float64

	state   RACHState
	armedAt radioclock.Time
	toa     int
	sigHit  int
}

// NewRACHDetector builds a detector over the given signature set.
func NewRACHDetector(sigs []PreambleSignature, threshold float64) *RACHDetector {
	return &RACHDetector{Signatures: sigs, Threshold: threshold, state: RACHIdle}
}

// Correlate runs one access slot's worth of samples against every enabled
// signature over a ±window search; returns true and schedules the armed
// decode start if a preamble was detected.
func (d *RACHDetector) Correlate(at radioclock.Time, samples []float64, window int) bool {
	if d.state != RACHIdle {
		return false
	}
	bestPeak, bestMean := 0.0, 0.0
	bestRatio := math.Inf(-1)
	bestSig, bestTOA := -1, 0
	for _, sig := range d.Signatures {
		for toa := -window; toa <= window; toa++ {
			peak, mean := correlatePeak(samples, sig.Chips, toa)
			ratio := 0.0
			if mean != 0 {
				ratio = peak / mean
			}
			if ratio > bestRatio {
				bestRatio = ratio
				bestPeak, bestMean = peak, mean
				bestSig, bestTOA = sig.Signature, toa
			}
		}
	}
	if bestSig < 0 || bestMean == 0 || bestPeak/bestMean < d.Threshold {
		return false
	}
	d.state = RACHPreambleDetected
	d.sigHit = bestSig
	d.toa = bestTOA
	// AICH response 3 access-slots ahead (uncontested default per
	// SPEC_FULL.md/25.211 §7.3; contested cell configs use 5).
	d.armedAt = at.Add(3 * slotsPerAccessSlot)
	d.state = RACHAwaitMsgStart
	log.Printf("modem: RACH preamble detected sig=%d toa=%d at %s", bestSig, bestTOA, at)
	return true
}

// AICHAck is the scheduled Acquisition Indicator Channel acknowledgement
// for a detected preamble signature.
type AICHAck struct {
	At        radioclock.Time
	Signature int
}

// ScheduleAICH returns the AICH acknowledgement due for the last detected
// preamble (valid once State() has left RACHIdle).
func (d *RACHDetector) ScheduleAICH() AICHAck {
	return AICHAck{At: d.armedAt, Signature: d.sigHit}
}

// BeginDecode transitions the detector into message decoding and returns a
// decoder primed for this detection's scrambling code and signature.
func (d *RACHDetector) BeginDecode(scrambleCode int) *RACHMessageDecoder {
	d.state = RACHDecoding
	return NewRACHMessageDecoder(scrambleCode, d.sigHit)
}

func correlatePeak(samples []float64, ref []int8, shift int) (peak, mean float64) {
	n := len(ref)
	var sum, sumAbs float64
	count := 0
	for i := 0; i < n; i++ {
		idx := i + shift
		if idx < 0 || idx >= len(samples) {
			continue
		}
		v := samples[idx] * float64(ref[i])
		sum += v
		sumAbs += math.Abs(v)
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), sumAbs / float64(count)
}

// Reset returns the detector to idle, e.g. after the message decode window
// completes or times out.
func (d *RACHDetector) Reset() { d.state = RACHIdle }

// State reports the detector's current state.
func (d *RACHDetector) State() RACHState { return d.state }

// ArmedAt returns the scheduled message-decode start time (valid only when
// State() is RACHAwaitMsgStart or RACHDecoding).
func (d *RACHDetector) ArmedAt() radioclock.Time { return d.armedAt }

// pilotBitsPerSlot is the number of Q-branch pilot bits per PRACH message
// slot control field (25.211 Table 13, 10 ksps format).
const pilotBitsPerSlot = 8

// RACHMessageDecoder decodes the 15-slot PRACH message that follows a
// detected preamble (SPEC_FULL.md §4.9 point 3): per slot it estimates the
// channel from the Q-branch pilot bits, descrambles with the PRACH
// scrambling code, despreads the control field (SF=256, code=16·sig+15)
// to recover TFCI soft bits, and despreads the data field at the
// spreading factor the caller has already derived from those TFCI bits.
type RACHMessageDecoder struct {
	ScrambleCode int
	Signature    int
	Out          chan RxBitsBurst

	slots int
}

// NewRACHMessageDecoder builds a decoder for one armed detection.
func NewRACHMessageDecoder(scrambleCode, signature int) *RACHMessageDecoder {
	return &RACHMessageDecoder{
		ScrambleCode: scrambleCode,
		Signature:    signature,
		Out:          make(chan RxBitsBurst, radioclock.SlotsPerFrame),
	}
}

// controlCode returns the control field's OVSF code for this decoder's
// signature (25.211 §4.3.2: code = 16·sig + 15, fixed SF=256).
func (m *RACHMessageDecoder) controlCode() int { return 16*m.Signature + 15 }

// Feed processes one of the 15 message slots and emits the resulting
// RxBitsBurst on Out. dataSF is the data field's spreading factor, already
// derived by the caller from the TFCI recovered on earlier slots; a dataSF
// of 0 or less (as on the first slot, before any TFCI is known) skips the
// data field and leaves Data nil.
func (m *RACHMessageDecoder) Feed(slot RxSlot, dataSF int) {
	scramble := ScramblingCode(m.ScrambleCode, len(slot.Samples))

	pilotEnergy := 0.0
	for i := 0; i < pilotBitsPerSlot && i < len(slot.Samples); i++ {
		pilotEnergy += math.Abs(slot.Samples[i])
	}
	gain := 1.0
	if pilotEnergy > 0 {
		gain = float64(pilotBitsPerSlot) / pilotEnergy
	}

	chips := make([]float64, len(slot.Samples))
	for i, s := range slot.Samples {
		if i < len(scramble) {
			chips[i] = s * float64(scramble[i]) * gain
		}
	}

	control := ovsf.Despread(chips, 256, m.controlCode())
	var tfciBits [2]float64
	if len(control) >= 2 {
		tfciBits = [2]float64{control[0], control[1]}
	}

	var data []float64
	if dataSF > 0 {
		data = ovsf.Despread(chips, dataSF, 0)
	}

	m.slots++
	select {
	case m.Out <- RxBitsBurst{At: slot.At, Data: data, TFCIBits: tfciBits}:
	default:
		log.Printf("modem: RACH message decoder output queue full, dropping slot at %s", slot.At)
	}
}

// Done reports whether all 15 message slots have been fed.
func (m *RACHMessageDecoder) Done() bool { return m.slots >= radioclock.SlotsPerFrame }
