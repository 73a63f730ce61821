package ovsf

import "testing"

func TestChannelTree_ReservationExcludesDescendantsAndAncestors(t *testing.T) {
	tree := NewChannelTree()

	if err := tree.Reserve(256, 0); err != nil {
		t.Fatalf("Reserve(256,0) error = %v", err)
	}
	if err := tree.Reserve(256, 1); err != nil {
		t.Fatalf("Reserve(256,1) error = %v", err)
	}

	sf256Tier := Tier(256)
	allocated := make([]int, 0, 256)
	for i := 0; i < 254; i++ {
		code, err := tree.AllocateByTier(sf256Tier)
		if err != nil {
			t.Fatalf("AllocateByTier(%d) call %d: error = %v", sf256Tier, i, err)
		}
		allocated = append(allocated, code)
	}
	if _, err := tree.AllocateByTier(sf256Tier); err == nil {
		t.Fatal("AllocateByTier() at SF=256 after exhausting the remaining 254 free leaves should fail, got nil error")
	}

	sf4Tier := Tier(4)
	if _, err := tree.AllocateByTier(sf4Tier); err == nil {
		t.Fatal("AllocateByTier() at SF=4 should fail while any SF=256 descendant under it is allocated/reserved")
	}

	for _, code := range allocated {
		tree.Free(256, code)
	}

	code, err := tree.AllocateByTier(sf4Tier)
	if err != nil {
		t.Fatalf("AllocateByTier(%d) after freeing the SF=256 allocations: error = %v, want success", sf4Tier, err)
	}
	if code != 1 {
		t.Fatalf("AllocateByTier(%d) = code %d, want 1: SF=4 code 0 still covers the reserved SF=256 codes 0 and 1", sf4Tier, code)
	}

	tree.FreeReservation(256, 0)
	tree.FreeReservation(256, 1)

	if _, err := tree.AllocateByTier(sf4Tier); err != nil {
		t.Fatalf("AllocateByTier(%d) after freeing all SF=256 descendants: error = %v, want success", sf4Tier, err)
	}
}

func TestChannelTree_IsFreeReflectsState(t *testing.T) {
	tree := NewChannelTree()
	if !tree.IsFree(64, 5) {
		t.Fatal("IsFree(64,5) on a fresh tree = false, want true")
	}

	code, err := tree.AllocateByTier(Tier(64))
	if err != nil {
		t.Fatalf("AllocateByTier() error = %v", err)
	}
	if tree.IsFree(64, code) {
		t.Errorf("IsFree(64,%d) after allocation = true, want false", code)
	}

	tree.Free(64, code)
	if !tree.IsFree(64, code) {
		t.Errorf("IsFree(64,%d) after Free() = false, want true", code)
	}
}
