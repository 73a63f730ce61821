package transceiver

import (
	"encoding/binary"
	"fmt"

	"github.com/rangenet/umts-nodeb/internal/radioclock"
)

// DataPacket is one decoded chip-rate burst exchanged over the data
// transport: a timeslot header plus I/Q samples. Uplink packets carry a
// trailing guard region (maxDelay chips) used for delay-spread search;
// downlink packets carry none.
type DataPacket struct {
	TN      int // timeslot number, 0..14
	FN      int // frame number at the start of this burst
	I       []int8
	Q       []int8
	MaxDelay int // uplink only; 0 for downlink packets
}

// EncodeDownlink returns the 3-byte TN+FN header, 2*ChipsPerSlot I/Q
// bytes, and a 1-byte trailer, matching the transceiver's fixed downlink
// frame layout.
func EncodeDownlink(p DataPacket) ([]byte, error) {
	if len(p.I) != radioclock.ChipsPerSlot || len(p.Q) != radioclock.ChipsPerSlot {
		return nil, fmt.Errorf("transceiver: downlink packet must carry %d I and Q samples, got %d/%d",
			radioclock.ChipsPerSlot, len(p.I), len(p.Q))
	}
	buf := make([]byte, 3+2*radioclock.ChipsPerSlot+1)
	buf[0] = byte(p.TN)
	binary.BigEndian.PutUint16(buf[1:3], uint16(p.FN))
	off := 3
	for i := 0; i < radioclock.ChipsPerSlot; i++ {
		buf[off+2*i] = byte(p.I[i])
		buf[off+2*i+1] = byte(p.Q[i])
	}
	buf[len(buf)-1] = 0 // trailer, reserved
	return buf, nil
}

// DecodeUplink parses one uplink data packet: a 3-byte TN+FN header
// followed by 2*(ChipsPerSlot+1024+maxDelay) interleaved I/Q bytes, the
// extra 1024+maxDelay chips being the guard region used for TOA search.
func DecodeUplink(buf []byte, maxDelay int) (DataPacket, error) {
	samplesPerArm := radioclock.ChipsPerSlot + 1024 + maxDelay
	want := 3 + 2*samplesPerArm
	if len(buf) != want {
		return DataPacket{}, fmt.Errorf("transceiver: uplink packet length %d, want %d (maxDelay=%d)",
			len(buf), want, maxDelay)
	}
	p := DataPacket{
		TN:       int(buf[0]),
		FN:       int(binary.BigEndian.Uint16(buf[1:3])),
		I:        make([]int8, samplesPerArm),
		Q:        make([]int8, samplesPerArm),
		MaxDelay: maxDelay,
	}
	off := 3
	for i := 0; i < samplesPerArm; i++ {
		p.I[i] = int8(buf[off+2*i])
		p.Q[i] = int8(buf[off+2*i+1])
	}
	return p, nil
}

// PollData reads any pending data-socket datagrams, decodes them as
// uplink packets, and invokes the registered handler.
func (d *Device) PollData(maxDelay int) {
	buf := make([]byte, 3+2*(radioclock.ChipsPerSlot+1024+maxDelay))
	for {
		n, _, err := d.data.read(buf)
		if err != nil {
			return
		}
		if n <= 0 {
			return
		}
		pkt, err := DecodeUplink(buf[:n], maxDelay)
		if err != nil {
			continue
		}
		if d.dataHandler != nil {
			d.dataHandler(pkt)
		}
	}
}

// SendDownlink encodes and writes one downlink burst on the data socket.
func (d *Device) SendDownlink(p DataPacket) error {
	buf, err := EncodeDownlink(p)
	if err != nil {
		return err
	}
	return d.data.write(buf)
}
