// Command nodeb runs a UMTS Node-B Layer-1 baseband process: it wires the
// configuration, diagnostics store, OVSF channel tree, radio frame clock,
// transceiver transports, and chip-rate modem together and drives the
// per-slot receive/transmit loop (SPEC_FULL.md §4.14).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rangenet/umts-nodeb/internal/config"
	"github.com/rangenet/umts-nodeb/internal/dch"
	"github.com/rangenet/umts-nodeb/internal/diagnostics"
	"github.com/rangenet/umts-nodeb/internal/modem"
	"github.com/rangenet/umts-nodeb/internal/ovsf"
	"github.com/rangenet/umts-nodeb/internal/radioclock"
	"github.com/rangenet/umts-nodeb/internal/transceiver"
)

const version = "0.1.0"

// slotPeriod is the wall-clock duration of one 2560-chip radio slot.
var slotPeriod = time.Duration(radioclock.ChipsPerSlot) * time.Second / time.Duration(radioclock.ChipRateHz)

func defaultConfigPath() string {
	if env := os.Getenv("NODEB_CONFIG"); env != "" {
		return env
	}
	return "nodeb.ini"
}

// NodeB owns every long-lived service for one ARFCN's baseband process.
type NodeB struct {
	config *config.Config

	tree *ovsf.ChannelTree
	db   *diagnostics.DB
	repo *diagnostics.Repository

	clock    *radioclock.Clock
	outQueue *radioclock.OutboundQueue

	device      *transceiver.Device
	downlink    *modem.DownlinkSlot
	workers     *modem.WorkerPool
	rach        *modem.RACHDetector
	dchPool     *dch.Pool

	mu      sync.RWMutex
	running bool
}

// NewNodeB builds a NodeB from the given configuration file.
func NewNodeB(configFile string) (*NodeB, error) {
	cfg := config.NewConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	tree := ovsf.NewChannelTree()
	if err := tree.Reserve(256, 0); err != nil {
		return nil, fmt.Errorf("reserve CPICH: %w", err)
	}
	if err := tree.Reserve(256, 1); err != nil {
		return nil, fmt.Errorf("reserve PCCPCH: %w", err)
	}
	if err := tree.Reserve(256, 2); err != nil {
		return nil, fmt.Errorf("reserve PRACH: %w", err)
	}

	var db *diagnostics.DB
	var repo *diagnostics.Repository
	if cfg.GetDatabaseEnabled() {
		var gormLog *log.Logger
		if cfg.GetDatabaseDebug() {
			gormLog = log.Default()
		}
		var err error
		db, err = diagnostics.NewDB(diagnostics.Config{Path: cfg.GetDatabasePath()}, gormLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open diagnostics database: %w", err)
		}
		repo = diagnostics.NewRepository(db.GetDB())
	}

	device := transceiver.NewDevice(
		cfg.GetXcvrAddress(),
		int(cfg.GetXcvrControlPort()),
		int(cfg.GetXcvrClockPort()),
		int(cfg.GetXcvrDataPort()),
	)

	sigs := make([]modem.PreambleSignature, 0, 16)
	for i := 0; i < 16; i++ {
		sigs = append(sigs, modem.BuildPreambleSignature(int(cfg.GetPrimaryScCode()), i))
	}

	n := &NodeB{
		config:   cfg,
		tree:     tree,
		db:       db,
		repo:     repo,
		clock:    radioclock.NewClock(),
		outQueue: radioclock.NewOutboundQueue(4 * radioclock.SlotsPerFrame),
		device:   device,
		downlink: &modem.DownlinkSlot{ScCode: int(cfg.GetPrimaryScCode()), Tree: tree},
		workers:  modem.NewWorkerPool(int(cfg.GetWorkerPoolCap())),
		rach:     modem.NewRACHDetector(sigs, cfg.GetRACHThreshold()),
		dchPool:  dch.NewPool(tree, repo, dch.DefaultCoolOff),
	}

	device.OnClockIndication(n.handleClockIndication)
	device.OnData(n.handleUplinkPacket)

	return n, nil
}

func (n *NodeB) handleClockIndication(fn int) {
	n.clock.SetFN(fn)
}

func (n *NodeB) handleUplinkPacket(pkt transceiver.DataPacket) {
	at := radioclock.Time{FN: pkt.FN, Slot: pkt.TN}
	samples := make([]float64, len(pkt.I))
	for i, v := range pkt.I {
		samples[i] = float64(v)
	}

	if n.rach.State() == modem.RACHIdle {
		n.rach.Correlate(at, samples, 16)
	}

	n.workers.Dispatch(modem.RxSlot{At: at, Samples: samples})
}

// Run opens the transceiver transports and drives the slot loop until ctx
// is cancelled.
func (n *NodeB) Run(ctx context.Context) error {
	n.mu.Lock()
	n.running = true
	n.mu.Unlock()

	log.Printf("nodeb v%s starting, band=%s ARFCN ul=%d dl=%d",
		version, n.config.GetBand(), n.config.GetARFCNUplink(), n.config.GetARFCNDownlink())

	if err := n.device.Open(); err != nil {
		return fmt.Errorf("failed to open transceiver: %w", err)
	}
	defer n.device.Close()

	slotTicker := time.NewTicker(slotPeriod)
	defer slotTicker.Stop()
	pollTicker := time.NewTicker(2 * time.Millisecond)
	defer pollTicker.Stop()
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	log.Printf("nodeb running - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			log.Printf("shutdown requested")
			n.mu.Lock()
			n.running = false
			n.mu.Unlock()
			return nil

		case <-pollTicker.C:
			n.device.PollClock()
			n.device.PollData(int(n.config.GetMaxDelaySpread()))
			if n.device.IsDead() {
				return fmt.Errorf("transceiver control channel is dead")
			}

		case <-slotTicker.C:
			n.transmitSlot()

		case <-statsTicker.C:
			n.logStats()
		}
	}
}

func (n *NodeB) transmitSlot() {
	if !n.device.HasClock() {
		return
	}
	at := n.clock.Now()
	due, stale := n.outQueue.PopDue(at)
	if stale > 0 {
		log.Printf("nodeb: dropped %d stale outbound bursts", stale)
	}

	bursts := make([]modem.TxBitsBurst, 0, len(due))
	for _, b := range due {
		bursts = append(bursts, modem.TxBitsBurst{At: at, Bits: b.Data})
	}

	iq := n.downlink.Synthesize(at, bursts)
	q := make([]int8, len(iq))
	pkt := transceiver.DataPacket{TN: at.Slot, FN: at.FN, I: iq, Q: q}
	if err := n.device.SendDownlink(pkt); err != nil {
		log.Printf("nodeb: downlink send error: %v", err)
	}
}

func (n *NodeB) logStats() {
	log.Printf("nodeb: clock hasFN=%v outbound_pending=%d", n.device.HasClock(), n.outQueue.Len())
}

func main() {
	var (
		configFile = flag.String("config", defaultConfigPath(), "Configuration file path")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("nodeb v%s\n", version)
		return
	}

	if flag.NArg() > 0 {
		*configFile = flag.Arg(0)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("nodeb v%s starting with config: %s", version, *configFile)

	n, err := NewNodeB(*configFile)
	if err != nil {
		log.Fatalf("failed to create nodeb: %v", err)
	}
	if n.db != nil {
		defer n.db.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := n.Run(ctx); err != nil {
		log.Fatalf("nodeb error: %v", err)
	}
	log.Printf("nodeb stopped")
}
