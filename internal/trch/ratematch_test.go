package trch

import (
	"testing"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
)

func TestRateMatch_IdentityWhenSizesEqual(t *testing.T) {
	in := bitvector.FromBits([]byte{1, 0, 1, 1, 0, 0, 1, 0})
	out := RateMatch(in, len(in), 1)
	if !out.Equal(in) {
		t.Fatalf("RateMatch() with outSize==len(in) = %v, want identity %v", []byte(out), []byte(in))
	}
}

func TestRateMatch_PunctureProducesExactSize(t *testing.T) {
	in := make(bitvector.BitVector, 40)
	for i := range in {
		in[i] = byte(i % 2)
	}
	const outSize = 30
	out := RateMatch(in, outSize, 1)
	if len(out) != outSize {
		t.Fatalf("RateMatch() punctured length = %d, want %d", len(out), outSize)
	}
}

func TestRateMatch_RepeatProducesExactSize(t *testing.T) {
	in := make(bitvector.BitVector, 20)
	for i := range in {
		in[i] = byte(i % 2)
	}
	const outSize = 35
	out := RateMatch(in, outSize, 1)
	if len(out) != outSize {
		t.Fatalf("RateMatch() repeated length = %d, want %d", len(out), outSize)
	}
}

func TestUnRateMatch_RoundTripsPuncturedBits(t *testing.T) {
	in := make(bitvector.BitVector, 40)
	for i := range in {
		in[i] = byte(i % 2)
	}
	const outSize = 30
	const eini = 1

	matched := RateMatch(in, outSize, eini)

	soft := make(bitvector.SoftVector, len(matched))
	for i, b := range matched {
		if b == 1 {
			soft[i] = 1.0
		} else {
			soft[i] = -1.0
		}
	}

	recovered := UnRateMatch(soft, len(in), eini)
	if len(recovered) != len(in) {
		t.Fatalf("UnRateMatch() length = %d, want %d", len(recovered), len(in))
	}

	for i, bit := range in {
		want := -1.0
		if bit == 1 {
			want = 1.0
		}
		if recovered[i] != want && recovered[i] != 0.5 {
			t.Errorf("UnRateMatch()[%d] = %v, want %v (or 0.5 for a punctured position)", i, recovered[i], want)
		}
	}
}

func TestComputeEplusEminus_PunctureAndRepeat(t *testing.T) {
	eplus, eminus := ComputeEplusEminus(40, 30)
	if eplus != 80 {
		t.Errorf("ComputeEplusEminus(40,30) eplus = %d, want 80", eplus)
	}
	if eminus != 20 {
		t.Errorf("ComputeEplusEminus(40,30) eminus = %d, want 20", eminus)
	}

	eplus, eminus = ComputeEplusEminus(20, 35)
	if eplus != 40 {
		t.Errorf("ComputeEplusEminus(20,35) eplus = %d, want 40", eplus)
	}
	if eminus != 30 {
		t.Errorf("ComputeEplusEminus(20,35) eminus = %d, want 30", eminus)
	}
}

func TestComputeUplinkEini_ProducesOneValuePerRadioFrame(t *testing.T) {
	for _, tti := range []TTI{10, 20, 40, 80} {
		einis := ComputeUplinkEini(150, 120, tti)
		if len(einis) != tti.NumRadioFrames() {
			t.Errorf("ComputeUplinkEini() TTI=%d len = %d, want %d", tti, len(einis), tti.NumRadioFrames())
		}
	}
}
