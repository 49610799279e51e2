// Package hwp implements the Huawei SPP protocol spoken by FreeBuds
// earbud cases over RFCOMM: frame encoding/decoding and the status report
// carrying battery levels and lid state.
//
// Frame layout:
//
//	0x5A | length(2, BE) | 0x00 | command(2) | TLV params | crc16(2, BE)
//
// The length field counts the reserved byte, the command and the params.
// The CRC (XMODEM) covers every byte before it.
package hwp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedReport is wrapped by every decode failure: short buffers,
// bad framing bytes, CRC mismatches and truncated parameters.
var ErrMalformedReport = errors.New("malformed report")

const (
	frameMagic = 0x5A

	// magic + length(2) + reserved + command(2) + crc(2)
	minFrameLen = 8
)

// CommandID identifies a request/response pair. Responses carry the same
// ID as the request that triggered them.
type CommandID uint16

const (
	CmdBatteryQuery CommandID = 0x0108
	CmdLowLatency   CommandID = 0x2B6C
)

// Param is one type-length-value entry in a frame body.
type Param struct {
	Type  uint8
	Value []byte
}

// Packet is a decoded frame: a command plus its parameters.
type Packet struct {
	Command CommandID
	Params  []Param
}

// Marshal encodes the packet into a complete frame, CRC included.
func (p Packet) Marshal() []byte {
	body := make([]byte, 0, 16)
	for _, prm := range p.Params {
		body = append(body, prm.Type, uint8(len(prm.Value)))
		body = append(body, prm.Value...)
	}
	length := 1 + 2 + len(body) // reserved + command + params
	frame := make([]byte, 0, 3+length+2)
	frame = append(frame, frameMagic)
	frame = binary.BigEndian.AppendUint16(frame, uint16(length))
	frame = append(frame, 0x00)
	frame = binary.BigEndian.AppendUint16(frame, uint16(p.Command))
	frame = append(frame, body...)
	frame = binary.BigEndian.AppendUint16(frame, crc16(frame))
	return frame
}

// ParsePacket decodes one complete frame. The input must be exactly one
// frame as emitted by the device; reassembly of partial reads is the
// transport's job.
func ParsePacket(raw []byte) (Packet, error) {
	if len(raw) < minFrameLen {
		return Packet{}, fmt.Errorf("frame too short (%d bytes): %w", len(raw), ErrMalformedReport)
	}
	if raw[0] != frameMagic {
		return Packet{}, fmt.Errorf("bad magic 0x%02x: %w", raw[0], ErrMalformedReport)
	}
	if raw[3] != 0x00 {
		return Packet{}, fmt.Errorf("bad reserved byte 0x%02x: %w", raw[3], ErrMalformedReport)
	}
	length := int(binary.BigEndian.Uint16(raw[1:3]))
	if length < 3 || len(raw) != 3+length+2 {
		return Packet{}, fmt.Errorf("declared length %d does not match %d-byte frame: %w",
			length, len(raw), ErrMalformedReport)
	}
	want := binary.BigEndian.Uint16(raw[len(raw)-2:])
	if got := crc16(raw[:len(raw)-2]); got != want {
		return Packet{}, fmt.Errorf("crc mismatch (calculated 0x%04x, frame has 0x%04x): %w",
			got, want, ErrMalformedReport)
	}

	pkt := Packet{Command: CommandID(binary.BigEndian.Uint16(raw[4:6]))}
	body := raw[6 : len(raw)-2]
	for i := 0; i < len(body); {
		if len(body)-i < 2 {
			return Packet{}, fmt.Errorf("truncated parameter at offset %d: %w", i, ErrMalformedReport)
		}
		t, l := body[i], int(body[i+1])
		if len(body)-i-2 < l {
			return Packet{}, fmt.Errorf("parameter %d overruns frame: %w", t, ErrMalformedReport)
		}
		pkt.Params = append(pkt.Params, Param{
			Type:  t,
			Value: append([]byte(nil), body[i+2:i+2+l]...),
		})
		i += 2 + l
	}
	return pkt, nil
}

// param returns the value of the first parameter with the given type.
func (p Packet) param(t uint8) ([]byte, bool) {
	for _, prm := range p.Params {
		if prm.Type == t {
			return prm.Value, true
		}
	}
	return nil, false
}

// NewBatteryQuery builds the battery poll request. The stock app sends the
// three parameter types empty; the buds answer with the values filled in.
func NewBatteryQuery() Packet {
	return Packet{
		Command: CmdBatteryQuery,
		Params:  []Param{{Type: 1}, {Type: 2}, {Type: 3}},
	}
}

// NewLowLatency builds the low-latency (game mode) toggle request.
func NewLowLatency(enabled bool) Packet {
	v := byte(0)
	if enabled {
		v = 1
	}
	return Packet{
		Command: CmdLowLatency,
		Params:  []Param{{Type: 1, Value: []byte{v}}},
	}
}
