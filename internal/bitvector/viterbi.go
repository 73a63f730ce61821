package bitvector

// ConvCode describes a rate-1/2 convolutional code: constraint length K
// (memory order K-1), and the two generator polynomials (as K-bit octal
// taps, MSB = current input bit).
type ConvCode struct {
	K    int
	G0   uint32
	G1   uint32
	Name string
}

// ViterbiR2O4 is the rate-1/2, constraint-length-5 code (generators
// 0o23/0o35 in this bit ordering, equivalently octal 023/035 — the GSM
// convolutional path), used for the smaller TrCh channel-coded blocks.
var ViterbiR2O4 = ConvCode{K: 5, G0: 0o23, G1: 0o35, Name: "R2O4"}

// ViterbiR2O9 is the rate-1/2, constraint-length-9 (memory order 8 is the
// GSM-style naming; UMTS numbers it K=9 giving a 256-state trellis, one
// notch below the turbo threshold) code used by 25.212 §4.2.3.1, generator
// polynomials 0o561/0o753 in this tap ordering.
var ViterbiR2O9 = ConvCode{K: 9, G0: 0o561, G1: 0o753, Name: "R2O9"}

// Encode runs the code forward over input bits (each 0/1), returning the
// rate-1/2 interleaved output (g0 bit, g1 bit, g0 bit, g1 bit, ...). The
// encoder starts and the caller is responsible for trellis termination
// (appending K-1 zero tail bits to input before calling, if required).
func (c ConvCode) Encode(input BitVector) BitVector {
	out := make(BitVector, 2*len(input))
	var state uint32
	mask := uint32(1)<<uint(c.K) - 1
	for i, b := range input {
		state = ((state << 1) | uint32(b&1)) & mask
		out[2*i] = parityBit(state & c.G0)
		out[2*i+1] = parityBit(state & c.G1)
	}
	return out
}

func parityBit(x uint32) byte {
	p := byte(0)
	for x != 0 {
		p ^= byte(x & 1)
		x >>= 1
	}
	return p
}

// branchMetric is the soft mismatch cost for one rate-1/2 symbol
// (expectedG0, expectedG1) against received soft probabilities (p0, p1)
// each in [0,1] meaning P(bit=1). Cost 0 is a perfect match.
func branchMetric(expectedG0, expectedG1 byte, p0, p1 float64) float64 {
	cost := 0.0
	if expectedG0 == 1 {
		cost += 1 - p0
	} else {
		cost += p0
	}
	if expectedG1 == 1 {
		cost += 1 - p1
	} else {
		cost += p1
	}
	return cost
}

type viterbiNode struct {
	cost    float64
	history uint64 // most recent decoded bits, LSB = most recent
}

// Decode runs a full soft-input Viterbi decode of a rate-1/2 code over
// received, a SoftVector of length 2*outputLen. It returns outputLen
// decoded hard bits.
func (c ConvCode) Decode(received SoftVector, outputLen int) BitVector {
	numStates := 1 << uint(c.K-1)
	mask := uint32(1)<<uint(c.K) - 1

	cur := make([]viterbiNode, numStates)
	for i := range cur {
		cur[i].cost = 1e18
	}
	cur[0].cost = 0

	for step := 0; step < outputLen; step++ {
		p0 := received[2*step]
		p1 := received[2*step+1]
		next := make([]viterbiNode, numStates)
		for i := range next {
			next[i].cost = 1e18
		}
		for s := 0; s < numStates; s++ {
			if cur[s].cost >= 1e17 {
				continue
			}
			for _, bit := range [2]byte{0, 1} {
				state := (uint32(s)<<1 | uint32(bit)) & mask
				g0 := parityBit(state & c.G0)
				g1 := parityBit(state & c.G1)
				cost := cur[s].cost + branchMetric(g0, g1, p0, p1)
				nextState := int(state) & (numStates - 1)
				if cost < next[nextState].cost {
					next[nextState].cost = cost
					next[nextState].history = cur[s].history<<1 | uint64(bit)
				}
			}
		}
		cur = next
	}

	best := 0
	for s := 1; s < numStates; s++ {
		if cur[s].cost < cur[best].cost {
			best = s
		}
	}
	out := make(BitVector, outputLen)
	h := cur[best].history
	for i := outputLen - 1; i >= 0; i-- {
		out[i] = byte(h & 1)
		h >>= 1
	}
	return out
}

// DecodeT runs the T-algorithm variant: after each step, survivors whose
// cost exceeds (minCost + deltaT) are pruned before proceeding. This caps
// the working set for the larger UMTS R2O9 code, at the cost of an
// occasional suboptimal path when deltaT is set too tight. deltaT defaults
// to 9.0 per the reference decoder.
func (c ConvCode) DecodeT(received SoftVector, outputLen int, deltaT float64) BitVector {
	if deltaT <= 0 {
		deltaT = 9.0
	}
	numStates := 1 << uint(c.K-1)
	mask := uint32(1)<<uint(c.K) - 1

	const inf = 1e18
	cur := make([]viterbiNode, numStates)
	for i := range cur {
		cur[i].cost = inf
	}
	cur[0].cost = 0

	for step := 0; step < outputLen; step++ {
		p0 := received[2*step]
		p1 := received[2*step+1]
		next := make([]viterbiNode, numStates)
		for i := range next {
			next[i].cost = inf
		}
		for s := 0; s < numStates; s++ {
			if cur[s].cost >= inf {
				continue
			}
			for _, bit := range [2]byte{0, 1} {
				state := (uint32(s)<<1 | uint32(bit)) & mask
				g0 := parityBit(state & c.G0)
				g1 := parityBit(state & c.G1)
				cost := cur[s].cost + branchMetric(g0, g1, p0, p1)
				nextState := int(state) & (numStates - 1)
				if cost < next[nextState].cost {
					next[nextState].cost = cost
					next[nextState].history = cur[s].history<<1 | uint64(bit)
				}
			}
		}
		minCost := inf
		for _, n := range next {
			if n.cost < minCost {
				minCost = n.cost
			}
		}
		threshold := minCost + deltaT
		for i := range next {
			if next[i].cost > threshold {
				next[i].cost = inf
			}
		}
		cur = next
	}

	best := 0
	for s := 1; s < numStates; s++ {
		if cur[s].cost < cur[best].cost {
			best = s
		}
	}
	out := make(BitVector, outputLen)
	h := cur[best].history
	for i := outputLen - 1; i >= 0; i-- {
		out[i] = byte(h & 1)
		h >>= 1
	}
	return out
}
