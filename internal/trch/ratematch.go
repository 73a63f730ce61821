// Package trch computes TrCh configuration: transport format sets and
// combinations, rate-matching parameters, and the two 25.212 interleavers.
package trch

import (
	"fmt"
	"math"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
)

// TTI is a transmission time interval in milliseconds.
type TTI int

const (
	TTI10ms TTI = 10
	TTI20ms TTI = 20
	TTI40ms TTI = 40
	TTI80ms TTI = 80
)

// NumRadioFrames returns the number of 10ms radio frames spanned by the TTI.
func (t TTI) NumRadioFrames() int {
	switch t {
	case TTI10ms:
		return 1
	case TTI20ms:
		return 2
	case TTI40ms:
		return 4
	case TTI80ms:
		return 8
	default:
		panic(fmt.Sprintf("trch: invalid TTI %d", t))
	}
}

// inter1Perm is 25.212 table 4: inter-column permutation for the 1st
// interleaver, indexed by log2(numRadioFrames).
var inter1Perm = [4][]int{
	{0},
	{0, 1},
	{0, 2, 1, 3},
	{0, 4, 2, 6, 1, 5, 3, 7},
}

func inter1PermFor(t TTI) []int {
	switch t {
	case TTI10ms:
		return inter1Perm[0]
	case TTI20ms:
		return inter1Perm[1]
	case TTI40ms:
		return inter1Perm[2]
	case TTI80ms:
		return inter1Perm[3]
	default:
		panic(fmt.Sprintf("trch: invalid TTI %d", t))
	}
}

// Interleave1 runs the 25.212 §4.2.5.2 first interleaver over one TrCh's
// full-TTI bit stream (all radio frames concatenated).
func Interleave1(v bitvector.BitVector, t TTI) bitvector.BitVector {
	return bitvector.Interleave(v, inter1PermFor(t), bitvector.DTX)
}

// Deinterleave1 inverts Interleave1.
func Deinterleave1(v bitvector.BitVector, t TTI) bitvector.BitVector {
	return bitvector.Deinterleave(v, inter1PermFor(t), bitvector.DTX)
}

// inter2Perm is 25.212 table 7: inter-column permutation for the 2nd
// (CCTrCh radio-frame) interleaver, fixed at 30 columns.
var inter2Perm = []int{
	0, 20, 10, 5, 15, 25, 3, 13, 23, 8, 18, 28, 1, 11, 21,
	6, 16, 26, 4, 14, 24, 19, 9, 29, 12, 2, 7, 22, 27, 17,
}

// Interleave2 runs the 25.212 §4.2.11 second interleaver over one CCTrCh
// radio frame. If len(v) is not a multiple of 30 it is padded with the DTX
// sentinel before interleaving and truncated back afterward.
func Interleave2(v bitvector.BitVector) bitvector.BitVector {
	return bitvector.Interleave(v, inter2Perm, bitvector.DTX)
}

// Deinterleave2 inverts Interleave2.
func Deinterleave2(v bitvector.BitVector) bitvector.BitVector {
	return bitvector.Deinterleave(v, inter2Perm, bitvector.DTX)
}

// Inter2PermTable exposes the 2nd-interleaver's column permutation for
// callers that need to replay it directly on a non-BitVector stream (the
// FEC decoder's soft demultiplex step).
func Inter2PermTable() []int {
	out := make([]int, len(inter2Perm))
	copy(out, inter2Perm)
	return out
}

// gcdInt is the textbook Euclidean GCD, used by the uplink e_ini derivation.
func gcdInt(x, y int) int {
	if x < 0 {
		x = -x
	}
	if y < 0 {
		y = -y
	}
	for y != 0 {
		x, y = y, x%y
	}
	return x
}

// ComputeEplusEminus derives e_plus/e_minus for a TrCh/TFC pair from its
// pre- and post-rate-matching sizes (25.212 §4.2.7, equation 2/3 scaled by
// a=2 to stay in integers).
func ComputeEplusEminus(nin, nout int) (eplus, eminus int) {
	eplus = 2 * nin
	eminus = 2 * (nout - nin)
	if eminus < 0 {
		eminus = -eminus
	}
	return
}

// ComputeUplinkEini implements 25.212 §4.2.7.1.2.1 exactly: given the
// per-radio-frame input/output sizes and the TTI, returns e_ini for each
// radio frame of the TTI.
func ComputeUplinkEini(insize, outsize int, tti TTI) []int {
	numFrames := tti.NumRadioFrames()
	einis := make([]int, numFrames)
	if insize == 0 && outsize == 0 {
		return einis
	}

	nij := insize
	deltaNij := outsize - insize

	r := deltaNij % nij
	for r < 0 {
		r += nij
	}

	var q int
	if r != 0 && 2*r <= nij {
		q = int(math.Ceil(float64(nij) / float64(r)))
	} else {
		q = int(math.Ceil(float64(nij) / float64(r-nij)))
	}

	qpos := q
	if qpos < 0 {
		qpos = -qpos
	}
	var qprime float64
	if qpos%2 == 0 {
		g := gcdInt(q, numFrames)
		qprime = float64(q) + float64(g)/float64(numFrames)
	} else {
		qprime = float64(q)
	}

	s := make([]int, numFrames)
	for x := 0; x < numFrames; x++ {
		tmp1 := int(math.Abs(math.Floor(float64(x) * qprime)))
		tmp3 := tmp1 % numFrames
		s[tmp3] = tmp1 / numFrames
	}

	p1f := inter1PermFor(tti)
	absDelta := deltaNij
	if absDelta < 0 {
		absDelta = -absDelta
	}
	const a = 2
	for ni := 0; ni < numFrames; ni++ {
		p1fv := p1f[ni]
		einis[ni] = (a*s[p1fv]*absDelta + 1) % (a * nij)
	}
	return einis
}

// RateMatch runs the puncture-or-repeat kernel over in, producing an
// out-sized vector, starting from the given e_ini shift. Punctures when
// len(out) < len(in), repeats when len(out) > len(in); identity copy when
// equal.
func RateMatch(in bitvector.BitVector, outSize, eini int) bitvector.BitVector {
	nin := len(in)
	if outSize == nin {
		return in.Clone()
	}
	eplus, eminus := ComputeEplusEminus(nin, outSize)
	out := make(bitvector.BitVector, outSize)
	e := float64(eini)
	oi := 0

	if outSize < nin {
		for m := 0; m < nin && oi < outSize; m++ {
			e -= float64(eminus)
			if e <= 0 {
				e += float64(eplus)
				continue
			}
			out[oi] = in[m]
			oi++
		}
	} else {
		for m := 0; m < nin && oi < outSize; m++ {
			e -= float64(eminus)
			for e <= 0 {
				if oi >= outSize {
					break
				}
				out[oi] = in[m]
				oi++
				e += float64(eplus)
			}
			if oi >= outSize {
				break
			}
			out[oi] = in[m]
			oi++
		}
	}
	return out
}

// UnRateMatch inverts RateMatch: given the matched output and the original
// input size, reconstructs the (possibly DTX-filled, for punctured
// positions) input-sized soft vector by replaying the same walk and
// scattering/averaging repeated or dropped positions.
func UnRateMatch(out bitvector.SoftVector, inSize, eini int) bitvector.SoftVector {
	nout := len(out)
	if nout == inSize {
		cloned := make(bitvector.SoftVector, inSize)
		copy(cloned, out)
		return cloned
	}
	eplus, eminus := ComputeEplusEminus(inSize, nout)
	in := make(bitvector.SoftVector, inSize)
	counts := make([]int, inSize)
	for i := range in {
		in[i] = 0
	}
	e := float64(eini)
	oi := 0

	if nout < inSize {
		for m := 0; m < inSize && oi < nout; m++ {
			e -= float64(eminus)
			if e <= 0 {
				e += float64(eplus)
				in[m] = 0.5 // punctured position: unknown
				continue
			}
			in[m] = out[oi]
			counts[m] = 1
			oi++
		}
	} else {
		for m := 0; m < inSize && oi < nout; m++ {
			e -= float64(eminus)
			for e <= 0 {
				if oi >= nout {
					break
				}
				in[m] += out[oi]
				counts[m]++
				oi++
				e += float64(eplus)
			}
			if oi >= nout {
				break
			}
			in[m] += out[oi]
			counts[m]++
			oi++
		}
	}
	for i, c := range counts {
		if c > 1 {
			in[i] /= float64(c)
		}
	}
	return in
}
