// Package dch implements the dedicated-channel lifecycle state machine
// (SPEC_FULL.md §4.11): FREE → ALLOCATED (open) → ACTIVE (first TTI) →
// ALLOCATED (close), with a cool-off delay before a closed channel's OVSF
// allocation is actually returned to the tree. Grounded on the teacher's
// per-link goroutine-pool shape (modem.WorkerPool) and its map+mutex
// ownership pattern.
package dch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rangenet/umts-nodeb/internal/diagnostics"
	"github.com/rangenet/umts-nodeb/internal/ovsf"
)

// State is a DCH's lifecycle state.
type State int

const (
	Free State = iota
	Allocated
	Active
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Allocated:
		return "ALLOCATED"
	case Active:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// DefaultCoolOff is how long a closed channel holds its OVSF allocation
// before the subtree is actually returned to the tree.
const DefaultCoolOff = 2 * time.Second

// Channel is one dedicated channel's lifecycle over a shared OVSF tree,
// optionally persisting its session history via diagnostics.Repository.
type Channel struct {
	mu      sync.Mutex
	tree    *ovsf.ChannelTree
	repo    *diagnostics.Repository
	coolOff time.Duration

	state          State
	sf, code       int
	scramblingCode uint32
	coder          string
	sessionID      string
}

// NewChannel builds a channel manager over tree, optionally recording
// session history to repo (nil disables persistence). coolOff<=0 uses
// DefaultCoolOff.
func NewChannel(tree *ovsf.ChannelTree, repo *diagnostics.Repository, coolOff time.Duration) *Channel {
	if coolOff <= 0 {
		coolOff = DefaultCoolOff
	}
	return &Channel{tree: tree, repo: repo, coolOff: coolOff, state: Free}
}

// Open allocates a free leaf at the given OVSF tier and transitions
// FREE → ALLOCATED. Returns an error (a configuration-kind failure per
// SPEC_FULL.md §7) if the tier is exhausted.
func (c *Channel) Open(tier int, scramblingCode uint32, coder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Free {
		return fmt.Errorf("dch: channel already %s", c.state)
	}
	code, err := c.tree.AllocateByTier(tier)
	if err != nil {
		return err
	}
	c.sf = ovsf.TierToSF(tier)
	c.code = code
	c.scramblingCode = scramblingCode
	c.coder = coder
	c.state = Allocated

	if c.repo != nil {
		session := diagnostics.NewDCHSession(scramblingCode, c.sf, code, coder)
		c.sessionID = session.ID
		if err := c.repo.OpenSession(session); err != nil {
			log.Printf("dch: failed to persist session open: %v", err)
		}
	}
	return nil
}

// Activate transitions ALLOCATED → ACTIVE on the channel's first
// transmitted or received TTI. A no-op once already ACTIVE or if not
// currently ALLOCATED.
func (c *Channel) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Allocated {
		c.state = Active
	}
}

// Close transitions immediately back to ALLOCATED (so a concurrent Open
// on the same Channel value cannot race the eventual tree release) and
// frees the underlying OVSF allocation after a cool-off delay. A no-op if
// the channel is already FREE.
func (c *Channel) Close(reason string) {
	c.mu.Lock()
	if c.state == Free {
		c.mu.Unlock()
		return
	}
	c.state = Allocated
	sf, code, sessionID := c.sf, c.code, c.sessionID
	c.mu.Unlock()

	if c.repo != nil && sessionID != "" {
		if err := c.repo.CloseSession(sessionID, reason); err != nil {
			log.Printf("dch: failed to persist session close: %v", err)
		}
	}

	go func() {
		time.Sleep(c.coolOff)
		c.tree.Free(sf, code)
		c.mu.Lock()
		c.state = Free
		c.sessionID = ""
		c.mu.Unlock()
	}()
}

// State reports the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SF reports the channel's allocated spreading factor (valid once
// ALLOCATED or ACTIVE).
func (c *Channel) SF() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sf
}

// Code reports the channel's allocated OVSF code (valid once ALLOCATED or
// ACTIVE).
func (c *Channel) Code() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// SessionID returns the diagnostics session id bound to this channel's
// current (or most recently closed, during cool-off) allocation.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Pool manages a fixed set of DCH lifecycle Channels keyed by a caller
// id (e.g. a MAC-assigned DCH identifier), mirroring modem.WorkerPool's
// map+mutex shape.
type Pool struct {
	mu       sync.Mutex
	tree     *ovsf.ChannelTree
	repo     *diagnostics.Repository
	coolOff  time.Duration
	channels map[int]*Channel
}

// NewPool builds an empty pool over the given tree.
func NewPool(tree *ovsf.ChannelTree, repo *diagnostics.Repository, coolOff time.Duration) *Pool {
	return &Pool{tree: tree, repo: repo, coolOff: coolOff, channels: make(map[int]*Channel)}
}

// Open opens a new channel under id. Returns an error if id is already in
// use by a non-FREE channel, or if the tree allocation fails.
func (p *Pool) Open(id int, tier int, scramblingCode uint32, coder string) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.channels[id]; ok && ch.State() != Free {
		return nil, fmt.Errorf("dch: id %d already in use (%s)", id, ch.State())
	}
	ch := NewChannel(p.tree, p.repo, p.coolOff)
	if err := ch.Open(tier, scramblingCode, coder); err != nil {
		return nil, err
	}
	p.channels[id] = ch
	return ch, nil
}

// Close closes the channel under id, if any.
func (p *Pool) Close(id int, reason string) {
	p.mu.Lock()
	ch, ok := p.channels[id]
	p.mu.Unlock()
	if ok {
		ch.Close(reason)
	}
}

// Get returns the channel under id, if any.
func (p *Pool) Get(id int) (*Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[id]
	return ch, ok
}
