package bitvector

// ParityGenerator64 is a 64-bit LFSR parametrised by a generator polynomial
// coefficient and register length, used both to run a codec forward
// (encoderShift, building the parity/CRC) and to check a received codeword
// (syndromeShift, where a zero final state indicates no detected error).
type ParityGenerator64 struct {
	Coefficient uint64
	Length      uint
}

// NewParityGenerator64 builds a generator for the given polynomial
// coefficient (the polynomial without its leading D^Length term, bit i
// holding the D^i coefficient) and register length.
func NewParityGenerator64(coefficient uint64, length uint) ParityGenerator64 {
	return ParityGenerator64{Coefficient: coefficient, Length: length}
}

// EncoderShift advances the encoder state by one input bit.
func (g ParityGenerator64) EncoderShift(state uint64, bit byte) uint64 {
	msb := (state >> (g.Length - 1)) & 1
	next := state << 1
	if msb^uint64(bit&1) == 1 {
		next ^= g.Coefficient
	}
	mask := uint64(1)<<g.Length - 1
	return next & mask
}

// SyndromeShift advances the syndrome-check state by one input bit. The
// input sequence is the received word including its trailing parity bits;
// a zero final state means the syndrome is clean.
func (g ParityGenerator64) SyndromeShift(state uint64, bit byte) uint64 {
	return g.EncoderShift(state, bit)
}

// Parity computes the full codec run over v, returning the final encoder
// state (the parity/CRC bits, right-justified).
func (g ParityGenerator64) Parity(v BitVector) uint64 {
	var state uint64
	for _, b := range v {
		state = g.EncoderShift(state, b)
	}
	return state
}

// Syndrome computes the full syndrome-check run over v (v must include its
// trailing parity bits already).
func (g ParityGenerator64) Syndrome(v BitVector) uint64 {
	var state uint64
	for _, b := range v {
		state = g.SyndromeShift(state, b)
	}
	return state
}

// Parity wraps a ParityGenerator64 with fixed codeword/parity sizes and
// exposes the CRC attach operation used by the transport channel CRC step.
type Parity struct {
	Gen        ParityGenerator64
	DataSize   int // N, size of the protected data field
	ParitySize int // L, CRC length
}

// 3GPP 25.212 section 4.2.1 generator polynomials, g_CRC24, g_CRC16,
// g_CRC12, g_CRC8, expressed as the feedback coefficient of an LFSR whose
// register length equals the CRC size.
const (
	gCRC24 = 0o40000143 // D24+D23+D6+D5+D+1, reduced form used by the shift register
	gCRC16 = 0o10041    // D16+D12+D5+1
	gCRC12 = 0o4017     // D12+D11+D3+D2+D+1
	gCRC8  = 0o233      // D8+D7+D4+D3+D+1
)

// NewParity builds a Parity helper for the given CRC size (8, 12, 16 or 24)
// protecting a dataSize-bit field.
func NewParity(crcSize, dataSize int) Parity {
	var coeff uint64
	switch crcSize {
	case 8:
		coeff = gCRC8
	case 12:
		coeff = gCRC12
	case 16:
		coeff = gCRC16
	case 24:
		coeff = gCRC24
	case 0:
		coeff = 0
	default:
		panic("bitvector: unsupported CRC size")
	}
	return Parity{
		Gen:        NewParityGenerator64(coeff, uint(maxInt(crcSize, 1))),
		DataSize:   dataSize,
		ParitySize: crcSize,
	}
}

// WriteParityWord computes the ParitySize-bit CRC of data and writes it
// MSB-first into target starting at writeStart.
func (p Parity) WriteParityWord(data BitVector, target BitVector, writeStart int) {
	if p.ParitySize == 0 {
		return
	}
	state := p.Gen.Parity(data)
	target.WriteField(writeStart, p.ParitySize, state)
}

// Check runs the syndrome check over codeword (data followed by its CRC)
// and reports whether the syndrome is zero, i.e. no detected error.
func (p Parity) Check(codeword BitVector) bool {
	if p.ParitySize == 0 {
		return true
	}
	return p.Gen.Syndrome(codeword) == 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
