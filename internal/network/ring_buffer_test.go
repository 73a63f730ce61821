package network

import (
	"bytes"
	"testing"
)

func TestRingBufferAddAndGetData(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		writes   [][]byte
		readLen  int
		wantOK   bool
		wantData []byte
	}{
		{
			name:     "single write read-back",
			capacity: 16,
			writes:   [][]byte{[]byte("hello")},
			readLen:  5,
			wantOK:   true,
			wantData: []byte("hello"),
		},
		{
			name:     "fill to capacity across two writes",
			capacity: 8,
			writes:   [][]byte{[]byte("abcdef"), []byte("gh")},
			readLen:  8,
			wantOK:   true,
			wantData: []byte("abcdefgh"),
		},
		{
			name:     "read more than buffered fails",
			capacity: 8,
			writes:   [][]byte{[]byte("ab")},
			readLen:  3,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer(tt.capacity, tt.name)
			for _, w := range tt.writes {
				if !rb.AddData(w) {
					t.Fatalf("AddData(%q) = false, want true", w)
				}
			}

			got := make([]byte, tt.readLen)
			ok := rb.GetData(got)
			if ok != tt.wantOK {
				t.Fatalf("GetData() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !bytes.Equal(got, tt.wantData) {
				t.Errorf("GetData() = %q, want %q", got, tt.wantData)
			}
		})
	}
}

func TestRingBufferAddDataRejectsOverCapacity(t *testing.T) {
	rb := NewRingBuffer(4, "small")
	if rb.AddData([]byte("toolong")) {
		t.Fatalf("AddData should reject a write exceeding capacity")
	}
	if rb.DataSize() != 0 {
		t.Errorf("DataSize() = %d after rejected write, want 0", rb.DataSize())
	}
}

func TestRingBufferPeekDoesNotConsume(t *testing.T) {
	rb := NewRingBuffer(16, "peek")
	rb.AddData([]byte("line1\n"))

	peeked := rb.PeekAll()
	if !bytes.Equal(peeked, []byte("line1\n")) {
		t.Errorf("PeekAll() = %q, want %q", peeked, "line1\n")
	}
	if rb.DataSize() != 6 {
		t.Errorf("DataSize() after Peek = %d, want 6 (peek must not consume)", rb.DataSize())
	}

	rb.Discard(6)
	if !rb.IsEmpty() {
		t.Errorf("IsEmpty() = false after Discard(6), want true")
	}
}

func TestRingBufferFreeSpaceAndHasSpace(t *testing.T) {
	rb := NewRingBuffer(10, "space")
	if !rb.HasSpace(10) {
		t.Fatalf("fresh buffer should have space for its full capacity")
	}
	rb.AddData([]byte("1234"))
	if rb.FreeSpace() != 6 {
		t.Errorf("FreeSpace() = %d, want 6", rb.FreeSpace())
	}
	if rb.HasSpace(7) {
		t.Errorf("HasSpace(7) = true, want false with only 6 free")
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(8, "clear")
	rb.AddData([]byte("abcd"))
	rb.Clear()
	if !rb.IsEmpty() || rb.DataSize() != 0 || rb.FreeSpace() != 8 {
		t.Errorf("Clear() did not reset buffer state: size=%d free=%d", rb.DataSize(), rb.FreeSpace())
	}
}
