package dch

import (
	"testing"
	"time"

	"github.com/rangenet/umts-nodeb/internal/ovsf"
)

func TestChannel_OpenActivateClose(t *testing.T) {
	tree := ovsf.NewChannelTree()
	ch := NewChannel(tree, nil, 10*time.Millisecond)

	if ch.State() != Free {
		t.Fatalf("initial state = %s, want FREE", ch.State())
	}

	if err := ch.Open(ovsf.Tier(64), 42, "conv-k5"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if ch.State() != Allocated {
		t.Fatalf("state after Open = %s, want ALLOCATED", ch.State())
	}
	if ch.SF() != 64 {
		t.Errorf("SF() = %d, want 64", ch.SF())
	}
	if tree.IsFree(64, ch.Code()) {
		t.Errorf("tree should report (64, %d) as taken after Open", ch.Code())
	}

	ch.Activate()
	if ch.State() != Active {
		t.Fatalf("state after Activate = %s, want ACTIVE", ch.State())
	}
	ch.Activate() // idempotent
	if ch.State() != Active {
		t.Fatalf("state after second Activate = %s, want ACTIVE", ch.State())
	}

	sf, code := ch.SF(), ch.Code()
	ch.Close("released")
	if ch.State() != Allocated {
		t.Fatalf("state immediately after Close = %s, want ALLOCATED (cool-off)", ch.State())
	}
	if tree.IsFree(sf, code) {
		t.Errorf("tree should still hold (%d, %d) during cool-off", sf, code)
	}

	time.Sleep(30 * time.Millisecond)
	if ch.State() != Free {
		t.Fatalf("state after cool-off = %s, want FREE", ch.State())
	}
	if !tree.IsFree(sf, code) {
		t.Errorf("tree should release (%d, %d) after cool-off", sf, code)
	}
}

func TestChannel_OpenTwiceFails(t *testing.T) {
	tree := ovsf.NewChannelTree()
	ch := NewChannel(tree, nil, time.Millisecond)
	if err := ch.Open(ovsf.Tier(128), 1, "turbo"); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := ch.Open(ovsf.Tier(128), 1, "turbo"); err == nil {
		t.Error("second Open() on an already-open channel should fail")
	}
}

func TestChannel_CloseWhenFreeIsNoop(t *testing.T) {
	tree := ovsf.NewChannelTree()
	ch := NewChannel(tree, nil, time.Millisecond)
	ch.Close("unused") // must not panic
	if ch.State() != Free {
		t.Errorf("state = %s, want FREE", ch.State())
	}
}

func TestPool_OpenCloseReopen(t *testing.T) {
	tree := ovsf.NewChannelTree()
	pool := NewPool(tree, nil, 5*time.Millisecond)

	ch, err := pool.Open(1, ovsf.Tier(32), 7, "conv-k9")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := pool.Open(1, ovsf.Tier(32), 7, "conv-k9"); err == nil {
		t.Error("opening an already-in-use id should fail")
	}

	pool.Close(1, "teardown")
	time.Sleep(20 * time.Millisecond)
	if ch.State() != Free {
		t.Fatalf("channel state after pool Close+cool-off = %s, want FREE", ch.State())
	}

	if _, err := pool.Open(1, ovsf.Tier(32), 7, "conv-k9"); err != nil {
		t.Errorf("reopening id after cool-off should succeed, got %v", err)
	}
}

func TestChannel_TreeExhaustion(t *testing.T) {
	tree := ovsf.NewChannelTree()
	tier := ovsf.Tier(256)

	var channels []*Channel
	for i := 0; i < 256; i++ {
		ch := NewChannel(tree, nil, time.Millisecond)
		if err := ch.Open(tier, uint32(i), "conv-k5"); err != nil {
			t.Fatalf("Open() %d error = %v", i, err)
		}
		channels = append(channels, ch)
	}

	extra := NewChannel(tree, nil, time.Millisecond)
	if err := extra.Open(tier, 999, "conv-k5"); err == nil {
		t.Error("Open() on an exhausted tier should fail")
	}
}
