// Package transceiver implements the control/clock/data socket glue to the
// radio front-end described in SPEC_FULL.md §6: three UDP transports
// (control, clock, data), a line-oriented CMD/RSP control protocol, and
// binary chip-rate data framing. The three transports are built on
// package network's UDPSocket, grounded on the teacher's UDP connection
// wrapper (internal/network/udp_socket.go).
package transceiver

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/rangenet/umts-nodeb/internal/network"
)

// maxConsecutiveControlFailures is the number of back-to-back control-socket
// timeouts after which the device is marked dead (SPEC_FULL.md §7:
// "persistent failure marks the device dead").
const maxConsecutiveControlFailures = 5

// Device owns the three transports to one ARFCN's radio front end.
type Device struct {
	control *socket
	clock   *socket
	data    *socket

	clockHandler func(fn int)
	dataHandler  func(DataPacket)

	lastClockInd time.Time
	hasClock     bool

	controlFailures int
	retryBackoff    *network.Timer
	dead            bool
}

// NewDevice builds a Device targeting the given host and three UDP ports.
func NewDevice(host string, controlPort, clockPort, dataPort int) *Device {
	return &Device{
		control:      newSocket(host, controlPort),
		clock:        newSocket(host, clockPort),
		data:         newSocket(host, dataPort),
		retryBackoff: network.NewTimer(1000, 0, 200), // 200ms between retries
	}
}

// Open opens all three transports.
func (d *Device) Open() error {
	if err := d.control.open(); err != nil {
		return fmt.Errorf("transceiver: control socket: %w", err)
	}
	if err := d.clock.open(); err != nil {
		return fmt.Errorf("transceiver: clock socket: %w", err)
	}
	if err := d.data.open(); err != nil {
		return fmt.Errorf("transceiver: data socket: %w", err)
	}
	return nil
}

// Close closes all three transports.
func (d *Device) Close() {
	d.control.close()
	d.clock.close()
	d.data.close()
}

// OnClockIndication registers the callback invoked whenever an
// "IND CLOCK <FN>" message arrives on the clock socket.
func (d *Device) OnClockIndication(fn func(fn int)) { d.clockHandler = fn }

// OnData registers the callback invoked for each received data packet.
func (d *Device) OnData(fn func(DataPacket)) { d.dataHandler = fn }

// PollClock reads any pending clock-indication datagrams and invokes the
// registered handler. Missed indications beyond ~3s flag "clock lost" via
// HasClock without aborting (SPEC_FULL.md §4.10/§7).
func (d *Device) PollClock() {
	for {
		line, ok, err := d.clock.readLine()
		if err != nil {
			log.Printf("transceiver: clock socket read error: %v", err)
			return
		}
		if !ok {
			return
		}
		var fn int
		if _, err := fmt.Sscanf(line, "IND CLOCK %d", &fn); err != nil {
			log.Printf("transceiver: malformed clock indication %q", line)
			continue
		}
		d.lastClockInd = time.Now()
		d.hasClock = true
		if d.clockHandler != nil {
			d.clockHandler(fn)
		}
	}
}

// HasClock reports whether a clock indication has been seen within the
// last 3 seconds.
func (d *Device) HasClock() bool {
	return d.hasClock && time.Since(d.lastClockInd) < 3*time.Second
}

// IsDead reports whether the control channel has failed persistently and
// this Device should no longer be used (SPEC_FULL.md §7: "persistent
// failure marks the device dead").
func (d *Device) IsDead() bool { return d.dead }

// SendCommand issues "CMD <name> <params...>" and waits (with a ~6s
// timeout) for the matching "RSP <name> <status> ...". Returns the
// response params on status 0, an error otherwise (a Transport-kind
// failure per SPEC_FULL.md §7). Consecutive failures count toward
// maxConsecutiveControlFailures, after which the device is marked dead.
func (d *Device) SendCommand(name string, params ...string) ([]string, error) {
	resp, err := d.trySendCommand(name, params...)
	if err != nil {
		d.controlFailures++
		if d.controlFailures >= maxConsecutiveControlFailures {
			d.dead = true
			log.Printf("transceiver: control channel dead after %d consecutive failures", d.controlFailures)
		}
		if d.retryBackoff != nil {
			d.retryBackoff.Start(0, 0)
			for d.retryBackoff.IsRunning() {
				d.retryBackoff.ClockAuto()
			}
		}
		return nil, err
	}
	d.controlFailures = 0
	return resp, nil
}

func (d *Device) trySendCommand(name string, params ...string) ([]string, error) {
	line := "CMD " + name
	for _, p := range params {
		line += " " + p
	}
	if err := d.control.writeLine(line); err != nil {
		return nil, fmt.Errorf("transceiver: send %s: %w", name, err)
	}

	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) {
		line, ok, err := d.control.readLine()
		if err != nil {
			return nil, fmt.Errorf("transceiver: read response to %s: %w", name, err)
		}
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "RSP" || fields[1] != name {
			continue
		}
		status := fields[2]
		if status != "0" {
			return nil, fmt.Errorf("transceiver: %s failed, status=%s", name, status)
		}
		return fields[3:], nil
	}
	return nil, fmt.Errorf("transceiver: %s: control socket timeout", name)
}

// socket pairs an unbound local network.UDPSocket (ephemeral port, so the
// front end can reply from whatever port it listens on) with the fixed
// remote address this Device targets.
type socket struct {
	udp        *network.UDPSocket
	remoteHost string
	remotePort int
	remote     *net.UDPAddr
	rx         *network.RingBuffer
}

func newSocket(host string, port int) *socket {
	return &socket{remoteHost: host, remotePort: port}
}

func (s *socket) open() error {
	remote, err := network.ParseUDPAddr(s.remoteHost, s.remotePort)
	if err != nil {
		return err
	}
	s.remote = remote
	s.udp = network.NewUDPSocketServer(0)
	s.rx = network.NewRingBuffer(8192, fmt.Sprintf("%s:%d", s.remoteHost, s.remotePort))
	return s.udp.Open()
}

func (s *socket) close() {
	if s.udp != nil {
		s.udp.Close()
		s.udp = nil
	}
}

// readLine drains any pending datagrams into the socket's line buffer and
// returns the next '\n'-terminated line, if one is complete. ok is false
// when no full line is available yet (not an error).
func (s *socket) readLine() (string, bool, error) {
	buf := make([]byte, 1500)
	for {
		n, _, err := s.udp.Read(buf)
		if err != nil {
			return "", false, err
		}
		if n <= 0 {
			break
		}
		if !s.rx.AddData(buf[:n]) {
			s.rx.Clear()
		}
	}

	data := s.rx.PeekAll()
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return "", false, nil
	}
	s.rx.Discard(idx + 1)
	return strings.TrimSpace(string(data[:idx])), true, nil
}

func (s *socket) read(buf []byte) (int, *net.UDPAddr, error) {
	n, addr, err := s.udp.Read(buf)
	if n < 0 {
		return 0, addr, err
	}
	return n, addr, err
}

func (s *socket) write(buf []byte) error {
	return s.udp.Write(buf, s.remote)
}

func (s *socket) writeLine(line string) error {
	return s.write([]byte(line + "\n"))
}
