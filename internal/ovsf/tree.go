// Package ovsf implements the OVSF spreading-code channel tree: seven
// tiers over spreading factors 4..256, with reservation and allocation
// tracked under mutual exclusion between a node, its subtree, and its
// ancestors.
package ovsf

import (
	"fmt"
	"sync"
)

// NumTiers is the number of spreading-factor tiers this tree manages,
// SF = 2^(tier+2) for tier in [0,6], i.e. SF in {4,8,16,32,64,128,256}.
const NumTiers = 7

// Tier returns log2(sf)-2 for a valid spreading factor, or -1.
func Tier(sf int) int {
	t := 0
	for s := 4; s <= 256; s *= 2 {
		if s == sf {
			return t
		}
		t++
	}
	return -1
}

// TierToSF is the inverse of Tier.
func TierToSF(tier int) int {
	if tier < 0 || tier >= NumTiers {
		panic(fmt.Sprintf("ovsf: invalid tier %d", tier))
	}
	return 4 << uint(tier)
}

type node struct {
	reserved     bool // explicitly taken by a non-DCH use
	alsoReserved bool // ancestor of a reservation
	allocated    bool // DCH leaf in use
}

// ChannelTree is the NodeB-wide OVSF code tree. All tiers share a single
// lock since reservation and allocation both need to walk ancestor and
// descendant chains atomically.
type ChannelTree struct {
	mu    sync.Mutex
	tiers [NumTiers][]node
}

// NewChannelTree builds an empty tree.
func NewChannelTree() *ChannelTree {
	t := &ChannelTree{}
	for tier := 0; tier < NumTiers; tier++ {
		t.tiers[tier] = make([]node, 1<<uint(tier+2))
	}
	return t
}

// ancestors returns (tier, code) pairs for every strict ancestor of
// (tier, code), tier descending.
func ancestors(tier, code int) [][2]int {
	out := make([][2]int, 0, tier)
	t, c := tier, code
	for t > 0 {
		t--
		c /= 2
		out = append(out, [2]int{t, c})
	}
	return out
}

// descendants returns every (tier, code) pair in the subtree strictly
// below (tier, code).
func (t *ChannelTree) descendants(tier, code int) [][2]int {
	var out [][2]int
	var walk func(tt, cc int)
	walk = func(tt, cc int) {
		if tt+1 >= NumTiers {
			return
		}
		for _, child := range [2]int{2 * cc, 2*cc + 1} {
			out = append(out, [2]int{tt + 1, child})
			walk(tt+1, child)
		}
	}
	walk(tier, code)
	return out
}

// Reserve marks (sf, code) as explicitly reserved for a non-DCH use (e.g.
// CPICH, PCCPCH, PRACH). It aborts (returns an error) on conflict with an
// existing reservation or allocation anywhere on the ancestor chain or in
// the subtree.
func (t *ChannelTree) Reserve(sf, code int) error {
	tier := Tier(sf)
	if tier < 0 {
		return fmt.Errorf("ovsf: invalid spreading factor %d", sf)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkFreeLocked(tier, code); err != nil {
		return err
	}
	t.tiers[tier][code].reserved = true
	for _, a := range ancestors(tier, code) {
		t.tiers[a[0]][a[1]].alsoReserved = true
	}
	return nil
}

func (t *ChannelTree) checkFreeLocked(tier, code int) error {
	n := &t.tiers[tier][code]
	if n.reserved || n.alsoReserved || n.allocated {
		return fmt.Errorf("ovsf: SF=%d code=%d already reserved/allocated", TierToSF(tier), code)
	}
	for _, a := range ancestors(tier, code) {
		an := &t.tiers[a[0]][a[1]]
		if an.reserved || an.allocated {
			return fmt.Errorf("ovsf: ancestor SF=%d code=%d blocks this allocation", TierToSF(a[0]), a[1])
		}
	}
	for _, d := range t.descendants(tier, code) {
		dn := &t.tiers[d[0]][d[1]]
		if dn.reserved || dn.allocated {
			return fmt.Errorf("ovsf: descendant SF=%d code=%d blocks this allocation", TierToSF(d[0]), d[1])
		}
	}
	return nil
}

// AllocateByTier scans codes at the given tier in ascending order and
// atomically allocates (marks a DCH leaf as in use) the first free one. It
// returns the allocated code, or an error if the tier is exhausted.
func (t *ChannelTree) AllocateByTier(tier int) (int, error) {
	if tier < 0 || tier >= NumTiers {
		return 0, fmt.Errorf("ovsf: invalid tier %d", tier)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for code := range t.tiers[tier] {
		if t.checkFreeLocked(tier, code) == nil {
			t.tiers[tier][code].allocated = true
			return code, nil
		}
	}
	return 0, fmt.Errorf("ovsf: tier %d (SF=%d) exhausted", tier, TierToSF(tier))
}

// Free releases an allocation made by AllocateByTier.
func (t *ChannelTree) Free(sf, code int) {
	tier := Tier(sf)
	if tier < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tiers[tier][code].allocated = false
}

// FreeReservation releases a reservation made by Reserve.
func (t *ChannelTree) FreeReservation(sf, code int) {
	tier := Tier(sf)
	if tier < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tiers[tier][code].reserved = false
	for _, a := range ancestors(tier, code) {
		t.tiers[a[0]][a[1]].alsoReserved = t.hasReservedDescendant(a[0], a[1])
	}
}

func (t *ChannelTree) hasReservedDescendant(tier, code int) bool {
	for _, d := range t.descendants(tier, code) {
		if t.tiers[d[0]][d[1]].reserved {
			return true
		}
	}
	return false
}

// IsFree reports whether (sf, code) could currently be allocated or
// reserved.
func (t *ChannelTree) IsFree(sf, code int) bool {
	tier := Tier(sf)
	if tier < 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checkFreeLocked(tier, code) == nil
}

// BandwidthToTier maps a requested bandwidth (bits/sec) to the coarsest
// (highest-SF, lowest-bandwidth) tier able to carry it. The guaranteed
// variant is stricter, requiring one tier finer (double the capacity
// margin) than the best-effort mapping.
func BandwidthToTier(bps int, guaranteed bool) int {
	// Approximate downlink DPDCH raw bit rates per spreading factor at
	// SF=256..4 under a single code, doubling each tier.
	caps := [NumTiers]int{15000, 30000, 60000, 120000, 240000, 480000, 960000}
	tier := NumTiers - 1
	for i, c := range caps {
		if bps <= c {
			tier = i
			break
		}
	}
	if guaranteed && tier > 0 {
		tier--
	}
	return tier
}
