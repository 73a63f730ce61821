package turbocodec

import (
	"math"

	"github.com/rangenet/umts-nodeb/internal/bitvector"
)

// constituentEncoder is the memory-3 RSC encoder shared by both turbo
// passes: D is the 3-bit shift register, returns the parity bit zk and
// updates D in place.
func constituentEncoder(d *int, inbit int) int {
	d0 := *d
	d1 := *d >> 1
	d2 := *d >> 2
	nextin := (inbit ^ d1 ^ d2) & 1
	zk := (d2 ^ d0 ^ nextin) & 1
	*d = ((*d << 1) | nextin) & 0x7
	return zk
}

// trellisTermination emits the three closing (xk, zk) pairs that flush D to
// zero without taking further input.
func trellisTermination(d *int) (xk, zk int) {
	d0 := *d
	d1 := *d >> 1
	d2 := *d >> 2
	xk = (d2 ^ d1) & 1
	zk = (d2 ^ d0) & 1
	*d = (*d << 1) & 0x7
	return
}

// Encode runs the UMTS rate-1/3 turbo encoder over a K-bit input block,
// returning 3K+12 coded bits: for each input bit, (xk, zk, z'k), followed
// by three termination bit-pairs (xk, zk) for each constituent encoder.
func Encode(input bitvector.BitVector, il *Interleaver) bitvector.BitVector {
	k := len(input)
	out := make(bitvector.BitVector, 3*k+12)
	var ce1, ce2 int
	perm := il.Permutation()
	oi := 0
	for i := 0; i < k; i++ {
		in1 := int(input[i])
		in2 := int(input[perm[i]])
		out[oi] = byte(in1)
		oi++
		out[oi] = byte(constituentEncoder(&ce1, in1))
		oi++
		out[oi] = byte(constituentEncoder(&ce2, in2))
		oi++
	}
	for i := 0; i < 3; i++ {
		xk, zk := trellisTermination(&ce1)
		out[oi] = byte(xk)
		oi++
		out[oi] = byte(zk)
		oi++
	}
	for i := 0; i < 3; i++ {
		xk, zk := trellisTermination(&ce2)
		out[oi] = byte(xk)
		oi++
		out[oi] = byte(zk)
		oi++
	}
	return out
}

// trans describes one trellis transition out of an 8-state memory-3 RSC
// encoder for a given input bit.
type trans struct {
	nextState int
	zk        int
}

// transTable[state][bit] precomputed once.
var transTable [8][2]trans

func init() {
	for state := 0; state < 8; state++ {
		for _, bit := range [2]int{0, 1} {
			d := state
			zk := constituentEncoder(&d, bit)
			transTable[state][bit] = trans{nextState: d, zk: zk}
		}
	}
}

const negInf = -1e18

func logAddExp(a, b float64) float64 {
	if a == negInf {
		return b
	}
	if b == negInf {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// llrFromProb converts P(bit=1) in (0,1) to a log-likelihood ratio
// log(p/(1-p)).
func llrFromProb(p float64) float64 {
	const eps = 1e-6
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return math.Log(p / (1 - p))
}

// bcjrDecode runs one MAP (BCJR) pass of the memory-3 RSC constituent code
// over K information bits plus 3 termination bits, given per-bit channel
// LLRs for the systematic stream (sysLLR) and parity stream (parLLR), and a
// priori extrinsic LLR for the systematic bits (apriori, length K, nil for
// none). It returns the a-posteriori LLR for each of the K information
// bits.
func bcjrDecode(sysLLR, parLLR, apriori []float64, k int) []float64 {
	n := k + 3 // total trellis steps including termination
	// alpha[t][state], beta[t][state] in log domain.
	alpha := make([][8]float64, n+1)
	beta := make([][8]float64, n+1)
	for s := 0; s < 8; s++ {
		for t := range alpha {
			alpha[t][s] = negInf
			beta[t][s] = negInf
		}
	}
	alpha[0][0] = 0
	beta[n][0] = 0 // trellis is forced to terminate at state 0

	// branch log-probability for step t, from state, with given bit.
	branchMetric := func(t, state, bit int) float64 {
		tr := transTable[state][bit]
		var aBit float64
		if bit == 1 {
			if t < k && apriori != nil {
				aBit = apriori[t]
			}
		} else {
			if t < k && apriori != nil {
				aBit = -apriori[t]
			}
		}
		xllr := 0.0
		if t < k {
			xllr = sysLLR[t]
		}
		// termination steps carry no systematic LLR contribution beyond
		// the forced xk value already encoded in the trellis structure.
		var xSign, zSign float64
		if bit == 1 {
			xSign = xllr
		} else {
			xSign = -xllr
		}
		if tr.zk == 1 {
			zSign = parLLR[t]
		} else {
			zSign = -parLLR[t]
		}
		return 0.5*(xSign+zSign) + aBit
	}

	for t := 0; t < n; t++ {
		for s := 0; s < 8; s++ {
			if alpha[t][s] == negInf {
				continue
			}
			for _, bit := range [2]int{0, 1} {
				if t >= k && bit == 1 {
					// termination steps use the forced input bit only;
					// determine it from the trellis structure by allowing
					// both and letting the metric plus structure filter
					// naturally (forced bit is implied by transTable since
					// both passes share the same encoder construction).
				}
				tr := transTable[s][bit]
				m := branchMetric(t, s, bit)
				v := alpha[t][s] + m
				if v > alpha[t+1][tr.nextState] {
					alpha[t+1][tr.nextState] = v
				}
			}
		}
	}
	for t := n - 1; t >= 0; t-- {
		for s := 0; s < 8; s++ {
			best := negInf
			for _, bit := range [2]int{0, 1} {
				tr := transTable[s][bit]
				if beta[t+1][tr.nextState] == negInf {
					continue
				}
				m := branchMetric(t, s, bit)
				v := beta[t+1][tr.nextState] + m
				if v > best {
					best = v
				}
			}
			beta[t][s] = best
		}
	}

	out := make([]float64, k)
	for t := 0; t < k; t++ {
		num, den := negInf, negInf
		for s := 0; s < 8; s++ {
			if alpha[t][s] == negInf {
				continue
			}
			for _, bit := range [2]int{0, 1} {
				tr := transTable[s][bit]
				if beta[t+1][tr.nextState] == negInf {
					continue
				}
				m := branchMetric(t, s, bit)
				v := alpha[t][s] + m + beta[t+1][tr.nextState]
				if bit == 1 {
					num = logAddExp(num, v)
				} else {
					den = logAddExp(den, v)
				}
			}
		}
		out[t] = num - den
	}
	return out
}

// Decode runs the iterative turbo decoder over a 3K+12-bit soft received
// sequence (the layout produced by Encode), for iterations passes,
// returning the K decoded information bits.
func Decode(received bitvector.SoftVector, k int, il *Interleaver, iterations int) bitvector.BitVector {
	if iterations <= 0 {
		iterations = 8
	}
	sys := make([]float64, k+3)
	par1 := make([]float64, k+3)
	par2 := make([]float64, k+3)
	for i := 0; i < k; i++ {
		sys[i] = llrFromProb(received[3*i])
		par1[i] = llrFromProb(received[3*i+1])
		par2[i] = llrFromProb(received[3*i+2])
	}
	tailBase := 3 * k
	for i := 0; i < 3; i++ {
		par1[k+i] = llrFromProb(received[tailBase+2*i+1])
	}
	for i := 0; i < 3; i++ {
		par2[k+i] = llrFromProb(received[tailBase+6+2*i+1])
	}
	// Termination-step systematic LLRs are not transmitted per-pass in the
	// same slot arrangement; treat them as unknown (0 LLR), matching the
	// encoder's structure where xk during termination is derived from the
	// shift register, not an independent channel observation.

	perm := il.Permutation()
	interleave := func(v []float64) []float64 {
		out := make([]float64, len(v))
		copy(out[k:], v[k:])
		for i, src := range perm {
			out[i] = v[src]
		}
		return out
	}
	deinterleave := func(v []float64) []float64 {
		out := make([]float64, len(v))
		copy(out[k:], v[k:])
		for i, dst := range perm {
			out[dst] = v[i]
		}
		return out
	}

	extrinsic1 := make([]float64, k)
	sysInterleaved := interleave(sys)

	for iter := 0; iter < iterations; iter++ {
		post1 := bcjrDecode(sys, par1, extrinsic1, k)
		ext1 := make([]float64, k)
		for i := range ext1 {
			ext1[i] = post1[i] - sys[i] - extrinsic1[i]
		}
		ext1Interleaved := interleave(ext1)

		post2 := bcjrDecode(sysInterleaved, par2, ext1Interleaved, k)
		ext2 := make([]float64, k)
		for i := range ext2 {
			ext2[i] = post2[i] - sysInterleaved[i] - ext1Interleaved[i]
		}
		extrinsic1 = deinterleave(ext2)
	}

	final := bcjrDecode(sys, par1, extrinsic1, k)
	out := make(bitvector.BitVector, k)
	for i, llr := range final {
		if llr > 0 {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}
