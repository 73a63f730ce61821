package modem

import (
	"context"
	"log"
	"sync"

	"github.com/rangenet/umts-nodeb/internal/fec"
	"github.com/rangenet/umts-nodeb/internal/ovsf"
	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

// RxSlot is one received slot-sized chunk, I/Q samples as the chip-rate
// transceiver delivers them (including the trailing guard region used for
// delay-spread search, already trimmed to exactly ChipsPerSlot here for
// the decoded arm).
type RxSlot struct {
	At      radioclock.Time
	Samples []float64 // real-valued chip stream for this implementation's scope
}

// RxBitsBurst is one slot's worth of decoded soft control/data bits handed
// up to the FEC stack, with its detected TFCI soft-bit pair (if any).
type RxBitsBurst struct {
	At       radioclock.Time
	Data     []float64
	TFCIBits [2]float64
	TPCBits  [2]float64
}

// DCHWorker accumulates one DCH's 15-slot frames; per frame it descrambles
// each slot, despreads the control field (SF=256, code 0) and the data
// field (SF=64, code 0), runs the Reed-Muller TFCI correlation over the
// frame's 30 TFCI soft bits, and emits an RxBitsBurst on Out carrying the
// data soft bits and the first slot's TFCI soft-bit pair. It does no
// channel or TOA estimation (NPilot is stored but not used), and the
// detected TFCI is neither attached to the burst nor used to choose the
// data spreading factor.
type DCHWorker struct {
	ScrambleCode int
	NPilot       int
	In           chan RxSlot
	Out          chan RxBitsBurst

	mu         sync.Mutex
	frame      []RxSlot
	tfciAccum  []float64
	cancel     context.CancelFunc
}

// NewDCHWorker starts the worker's goroutine, grounded on the teacher's
// per-link goroutine pattern: a single inbound channel, a single outbound
// channel, and a context for cancellation.
func NewDCHWorker(ctx context.Context, scrambleCode, nPilot int) *DCHWorker {
	cctx, cancel := context.WithCancel(ctx)
	w := &DCHWorker{
		ScrambleCode: scrambleCode,
		NPilot:       nPilot,
		In:           make(chan RxSlot, radioclock.SlotsPerFrame*2),
		Out:          make(chan RxBitsBurst, 4),
		cancel:       cancel,
	}
	go w.run(cctx)
	return w
}

// Stop cancels the worker; further sends on In are ignored.
func (w *DCHWorker) Stop() { w.cancel() }

func (w *DCHWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case slot, ok := <-w.In:
			if !ok {
				return
			}
			w.accumulate(slot)
		}
	}
}

func (w *DCHWorker) accumulate(slot RxSlot) {
	w.mu.Lock()
	w.frame = append(w.frame, slot)
	complete := len(w.frame) == radioclock.SlotsPerFrame
	var frame []RxSlot
	if complete {
		frame = w.frame
		w.frame = nil
	}
	w.mu.Unlock()
	if !complete {
		return
	}
	w.processFrame(frame)
}

func (w *DCHWorker) processFrame(frame []RxSlot) {
	scramble := ScramblingCode(w.ScrambleCode, radioclock.ChipsPerSlot)
	tfciSoft := make([]float64, 0, 30)
	dataSoft := make([]float64, 0, radioclock.SlotsPerFrame*10)

	for _, slot := range frame {
		chips := make([]float64, len(slot.Samples))
		for i, s := range slot.Samples {
			if i < len(scramble) {
				chips[i] = s * float64(scramble[i])
			}
		}
		control := ovsf.Despread(chips, 256, 0)
		if len(control) >= 2 {
			tfciSoft = append(tfciSoft, control[0], control[1])
		}
		dataBits := ovsf.Despread(chips, 64, 0)
		dataSoft = append(dataSoft, dataBits...)
	}

	if len(tfciSoft) >= 30 {
		_ = fec.FindTFCI(tfciSoft[:30], fec.MaxTfci)
	}
	var tfciBits [2]float64
	if len(tfciSoft) >= 2 {
		tfciBits = [2]float64{tfciSoft[0], tfciSoft[1]}
	}

	select {
	case w.Out <- RxBitsBurst{At: frame[0].At, Data: dataSoft, TFCIBits: tfciBits}:
	default:
		log.Printf("modem: DCH worker output queue full, dropping frame at %s", frame[0].At)
	}
}

// WorkerPool fans uplink slots out to per-DCH workers, bounded at cap
// concurrent workers (default 100), grounded on the teacher's
// goroutine-per-link Run loop.
type WorkerPool struct {
	mu      sync.Mutex
	cap     int
	workers map[int]*DCHWorker
}

// NewWorkerPool builds a pool with the given capacity (default 100 when
// cap<=0).
func NewWorkerPool(cap int) *WorkerPool {
	if cap <= 0 {
		cap = 100
	}
	return &WorkerPool{cap: cap, workers: make(map[int]*DCHWorker)}
}

// Open starts a worker for the given DCH id, returning an error if the
// pool is at capacity.
func (p *WorkerPool) Open(ctx context.Context, dchID, scrambleCode, nPilot int) (*DCHWorker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) >= p.cap {
		return nil, errPoolFull
	}
	w := NewDCHWorker(ctx, scrambleCode, nPilot)
	p.workers[dchID] = w
	return w, nil
}

// Close stops and removes the worker for dchID.
func (p *WorkerPool) Close(dchID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.workers[dchID]; ok {
		w.Stop()
		delete(p.workers, dchID)
	}
}

// Dispatch forwards slot to every active worker (each DCH sees every slot;
// per-channel filtering by scrambling/spreading happens downstream).
func (p *WorkerPool) Dispatch(slot RxSlot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		select {
		case w.In <- slot:
		default:
			log.Printf("modem: DCH worker input queue full, dropping slot at %s", slot.At)
		}
	}
}

var errPoolFull = poolFullError{}

type poolFullError struct{}

func (poolFullError) Error() string { return "modem: worker pool at capacity" }
