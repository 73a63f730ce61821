package modem

import (
	"testing"

	"github.com/rangenet/umts-nodeb/internal/ovsf"
	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

func TestDownlinkSlotSynthesizeLength(t *testing.T) {
	d := &DownlinkSlot{ScCode: 5, Tree: ovsf.NewChannelTree()}
	out := d.Synthesize(radioclock.Time{FN: 0, Slot: 0}, nil)
	if len(out) != radioclock.ChipsPerSlot {
		t.Fatalf("Synthesize() returned %d chips, want %d", len(out), radioclock.ChipsPerSlot)
	}
}

func TestDownlinkSlotSynthesizeDropsStaleBursts(t *testing.T) {
	d := &DownlinkSlot{ScCode: 5, Tree: ovsf.NewChannelTree()}
	now := radioclock.Time{FN: 10, Slot: 5}
	stale := TxBitsBurst{At: radioclock.Time{FN: 9, Slot: 5}, Bits: []byte{0, 1}, SF: 256, Code: 10}

	withoutStale := d.Synthesize(now, nil)
	withStale := d.Synthesize(now, []TxBitsBurst{stale})

	if len(withoutStale) != len(withStale) {
		t.Fatalf("output length differs between runs: %d vs %d", len(withoutStale), len(withStale))
	}
	for i := range withoutStale {
		if withoutStale[i] != withStale[i] {
			t.Fatalf("a stale burst (At before now) must be dropped and not alter the synthesized slot, differed at chip %d", i)
		}
	}
}

func TestDownlinkSlotSynthesizeIncludesActiveBurst(t *testing.T) {
	d := &DownlinkSlot{ScCode: 5, Tree: ovsf.NewChannelTree()}
	now := radioclock.Time{FN: 10, Slot: 5}
	withoutBurst := d.Synthesize(now, nil)

	burst := TxBitsBurst{At: now, Bits: []byte{1, 0, 1, 1}, SF: 256, Code: 10, IsDCH: true}
	withBurst := d.Synthesize(now, []TxBitsBurst{burst})

	differs := false
	for i := range withoutBurst {
		if withoutBurst[i] != withBurst[i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Errorf("an on-time active burst should change the synthesized slot output")
	}
}

func TestClampInt8(t *testing.T) {
	tests := []struct {
		in   float64
		want int8
	}{
		{in: 0, want: 0},
		{in: 200, want: 127},
		{in: -200, want: -127},
		{in: 50, want: 50},
	}
	for _, tt := range tests {
		if got := clampInt8(tt.in); got != tt.want {
			t.Errorf("clampInt8(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
