// Package turbocodec implements the UMTS rate-1/3 turbo encoder/decoder and
// its 25.212 §4.2.3.2.3 internal interleaver.
package turbocodec

// pv holds (prime p, primitive root v) pairs from 25.212 table 2, used both
// to pick the interleaver's prime p and to build the per-row prime list q.
var pv = [][2]int{
	{7, 3}, {11, 2}, {13, 2}, {17, 3}, {19, 2}, {23, 5}, {29, 2}, {31, 3},
	{37, 2}, {41, 6}, {43, 3}, {47, 5}, {53, 2}, {59, 2}, {61, 2}, {67, 2},
	{71, 7}, {73, 5}, {79, 3}, {83, 2}, {89, 3}, {97, 5}, {101, 2}, {103, 5},
	{107, 2}, {109, 6}, {113, 3}, {127, 3}, {131, 2}, {137, 3}, {139, 2},
	{149, 2}, {151, 6}, {157, 5}, {163, 2}, {167, 5}, {173, 2}, {179, 2},
	{181, 2}, {191, 19}, {193, 5}, {197, 2}, {199, 3}, {211, 2}, {223, 3},
	{227, 2}, {229, 6}, {233, 3}, {239, 7}, {241, 7}, {251, 6}, {257, 3},
}

var irpp5 = []int{4, 3, 2, 1, 0}
var irpp10 = []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
var irpp20 = []int{19, 9, 14, 4, 0, 2, 5, 7, 12, 18, 16, 13, 17, 15, 3, 1, 6, 11, 8, 10}
var irpp20a = []int{19, 9, 14, 4, 0, 2, 5, 7, 12, 18, 10, 8, 13, 17, 3, 1, 16, 6, 15, 11}

// Interleaver is the K-bit 25.212 §4.2.3.2.3 internal turbo interleaver: a
// permutation of [0,K) built once per block size and reused for every block
// of that size.
type Interleaver struct {
	K           int
	permutation []int
}

// NewInterleaver builds the interleaver permutation for block size K,
//40 <= K <= 5114.
func NewInterleaver(K int) *Interleaver {
	if K == 0 {
		return &Interleaver{K: 0}
	}
	if K < 40 || K > 5114 {
		panic("turbocodec: K out of range")
	}

	var R int
	switch {
	case K <= 159:
		R = 5
	case K <= 200:
		R = 10
	case K <= 480:
		R = 20
	case K <= 530:
		R = 10
	default:
		R = 20
	}

	var C, p, v int
	if K >= 481 && K <= 530 {
		p = 53
		v = 2
		C = p
	} else {
		i := 0
		for {
			p = pv[i][0]
			v = pv[i][1]
			if K <= R*(p+1) {
				break
			}
			i++
		}
		switch {
		case K <= R*(p-1):
			C = p - 1
		case K <= R*p:
			C = p
		default:
			C = p + 1
		}
	}

	matrix := make([]int, R*C)
	for i := 0; i < K; i++ {
		matrix[i] = i
	}
	for i := K; i < R*C; i++ {
		matrix[i] = -1
	}

	s := make([]int, p-1)
	s[0] = 1
	for j := 1; j <= p-2; j++ {
		s[j] = (v * s[j-1]) % p
	}

	q := make([]int, R)
	q[0] = 1
	pvptr := 0
	for i := 1; i <= R-1; i++ {
		for {
			q[i] = pv[pvptr][0]
			pvptr++
			if gcdInt(q[i], p-1) == 1 {
				break
			}
		}
	}

	var T []int
	switch {
	case K <= 159:
		T = irpp5
	case K <= 200:
		T = irpp10
	case K <= 480:
		T = irpp20a
	case K <= 530:
		T = irpp10
	case K <= 2280:
		T = irpp20a
	case K <= 2480:
		T = irpp20
	case K <= 3160:
		T = irpp20a
	case K <= 3210:
		T = irpp20
	default:
		T = irpp20a
	}

	r := make([]int, R)
	for i := 0; i <= R-1; i++ {
		r[T[i]] = q[i]
	}

	for i := 0; i < R; i++ {
		U := make([]int, C)
		for j := 0; j <= p-2; j++ {
			U[j] = s[(j*r[i])%(p-1)]
		}
		switch C {
		case p:
			U[p-1] = 0
		case p + 1:
			U[p-1] = 0
			U[p] = p
			if K == R*C && i == R-1 {
				U[p], U[0] = U[0], U[p]
			}
		case p - 1:
			for j := 0; j <= p-2; j++ {
				U[j] = U[j] - 1
			}
		default:
			panic("turbocodec: invalid C relative to p")
		}
		row := make([]int, C)
		for j := 0; j < C; j++ {
			row[j] = matrix[i*C+U[j]]
		}
		copy(matrix[i*C:i*C+C], row)
	}

	permutation := make([]int, 0, K)
	for col := 0; col < C; col++ {
		for row := 0; row < R; row++ {
			v := matrix[col+C*T[row]]
			if v < 0 {
				continue
			}
			permutation = append(permutation, v)
		}
	}
	if len(permutation) != K {
		panic("turbocodec: interleaver construction did not produce K entries")
	}
	return &Interleaver{K: K, permutation: permutation}
}

// Permutation returns the underlying index permutation; Permutation()[i] is
// the source index for interleaved position i.
func (t *Interleaver) Permutation() []int { return t.permutation }

// Permute returns out such that out[i] = in[perm[i]].
func (t *Interleaver) Permute(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, src := range t.permutation {
		out[i] = in[src]
	}
	return out
}

// Deinterleave scatters in back to natural order: out[perm[i]] = in[i].
func (t *Interleaver) Deinterleave(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, dst := range t.permutation {
		out[dst] = in[i]
	}
	return out
}

func gcdInt(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
