package modem

import (
	"testing"

	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

func TestRACHDetectorCorrelateDetectsExactSignature(t *testing.T) {
	sig := BuildPreambleSignature(10, 3)
	// correlatePeak's peak/mean ratio tops out at 1.0 for a bipolar exact
	// match (mean is the mean |product|, which is 1 for any all-nonzero
	// +/-1 samples), so the threshold must sit below that ceiling.
	det := NewRACHDetector([]PreambleSignature{sig}, 0.5)

	samples := make([]float64, len(sig.Chips))
	for i, c := range sig.Chips {
		samples[i] = float64(c)
	}

	if det.State() != RACHIdle {
		t.Fatalf("new detector state = %v, want RACHIdle", det.State())
	}
	ok := det.Correlate(radioclock.Time{FN: 0, Slot: 0}, samples, 0)
	if !ok {
		t.Fatalf("Correlate() with an exact signature match should detect a preamble")
	}
	if det.State() != RACHAwaitMsgStart {
		t.Errorf("state after detection = %v, want RACHAwaitMsgStart", det.State())
	}

	ack := det.ScheduleAICH()
	if ack.Signature != 3 {
		t.Errorf("ScheduleAICH().Signature = %d, want 3", ack.Signature)
	}
}

func TestRACHDetectorIgnoresNoiseBelowThreshold(t *testing.T) {
	sig := BuildPreambleSignature(10, 3)
	det := NewRACHDetector([]PreambleSignature{sig}, 0.5)

	// Alternate the sign against the reference chip-by-chip so the
	// correlation sum cancels to (near) zero while the mean rectified
	// product stays nonzero, i.e. a decorrelated low-energy burst.
	samples := make([]float64, len(sig.Chips))
	for i, c := range sig.Chips {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		samples[i] = float64(c) * sign * 0.01
	}

	if det.Correlate(radioclock.Time{FN: 0, Slot: 0}, samples, 0) {
		t.Fatalf("Correlate() on a decorrelated low-energy burst should not detect a preamble")
	}
	if det.State() != RACHIdle {
		t.Errorf("state after a non-detection = %v, want RACHIdle", det.State())
	}
}

func TestRACHDetectorIgnoresWhileNotIdle(t *testing.T) {
	sig := BuildPreambleSignature(10, 3)
	det := NewRACHDetector([]PreambleSignature{sig}, 0.5)
	samples := make([]float64, len(sig.Chips))
	for i, c := range sig.Chips {
		samples[i] = float64(c)
	}
	if !det.Correlate(radioclock.Time{FN: 0, Slot: 0}, samples, 0) {
		t.Fatalf("test setup: first Correlate() call should detect the exact-match preamble")
	}

	if det.Correlate(radioclock.Time{FN: 0, Slot: 2}, samples, 0) {
		t.Fatalf("Correlate() while not idle should not re-trigger detection")
	}
	det.Reset()
	if det.State() != RACHIdle {
		t.Errorf("state after Reset() = %v, want RACHIdle", det.State())
	}
}

func TestRACHMessageDecoderDoneAfterFullFrame(t *testing.T) {
	dec := NewRACHMessageDecoder(10, 3)
	for s := 0; s < radioclock.SlotsPerFrame; s++ {
		if dec.Done() {
			t.Fatalf("Done() = true before all %d slots fed (at slot %d)", radioclock.SlotsPerFrame, s)
		}
		dec.Feed(RxSlot{At: radioclock.Time{FN: 0, Slot: s}, Samples: make([]float64, radioclock.ChipsPerSlot)}, 64)
	}
	if !dec.Done() {
		t.Fatalf("Done() = false after feeding all %d slots", radioclock.SlotsPerFrame)
	}
}
