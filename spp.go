package main

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"freebudsctl/hwp"
)

// The buds speak the vendor protocol on RFCOMM channel 1.
const sppChannel = 1

const replyDeadline = 3 * time.Second

// sppClient is one vendor-protocol session over an RFCOMM socket.
type sppClient struct {
	fd   int
	addr string
}

// macToBytes converts "AA:BB:CC:DD:EE:FF" into the reversed byte order the
// kernel expects in sockaddr_rc.
func macToBytes(addr string) ([6]byte, error) {
	var out [6]byte
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return out, fmt.Errorf("invalid MAC address %q", addr)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) != 2 {
			return out, fmt.Errorf("invalid MAC address %q", addr)
		}
		out[5-i] = byte(v)
	}
	return out, nil
}

func dialSPP(addr string, timeout time.Duration) (*sppClient, error) {
	mac, err := macToBytes(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}
	sa := &unix.SockaddrRFCOMM{Addr: mac, Channel: sppChannel}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm connect %s: %w", addr, err)
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
	return &sppClient{fd: fd, addr: addr}, nil
}

func (c *sppClient) close() {
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
}

func (c *sppClient) readFull(buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := unix.Read(c.fd, buf[off:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
		off += n
	}
	return nil
}

// readFrame reassembles exactly one vendor frame off the socket: the 4-byte
// header first, then the declared remainder plus the CRC trailer.
func (c *sppClient) readFrame() ([]byte, error) {
	header := make([]byte, 4)
	if err := c.readFull(header); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	if header[0] != 0x5A {
		return nil, fmt.Errorf("bad frame magic 0x%02x", header[0])
	}
	length := int(header[1])<<8 | int(header[2])
	if length < 3 {
		return nil, fmt.Errorf("bad frame length %d", length)
	}
	// The reserved byte is already part of the header we read.
	rest := make([]byte, length-1+2)
	if err := c.readFull(rest); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return append(header, rest...), nil
}

func (c *sppClient) send(p hwp.Packet) error {
	if _, err := unix.Write(c.fd, p.Marshal()); err != nil {
		return fmt.Errorf("rfcomm write: %w", err)
	}
	return nil
}

// roundTrip sends a request and returns the raw bytes of the first reply
// carrying the same command ID. The buds push unsolicited state frames on
// the same channel; those are skipped.
func (c *sppClient) roundTrip(req hwp.Packet) ([]byte, error) {
	if err := c.send(req); err != nil {
		return nil, err
	}
	end := time.Now().Add(replyDeadline)
	for time.Now().Before(end) {
		raw, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		if replyMatches(raw, req.Command) {
			return raw, nil
		}
		log.Printf("skipping frame for command 0x%02x%02x", raw[4], raw[5])
	}
	return nil, fmt.Errorf("no reply for command 0x%04x within %s", uint16(req.Command), replyDeadline)
}

// replyMatches reports whether a raw frame answers the given command.
func replyMatches(raw []byte, cmd hwp.CommandID) bool {
	return len(raw) >= 6 && hwp.CommandID(uint16(raw[4])<<8|uint16(raw[5])) == cmd
}

// queryBattery polls the buds and decodes the status reply.
func (c *sppClient) queryBattery() (hwp.EarbudStatus, error) {
	raw, err := c.roundTrip(hwp.NewBatteryQuery())
	if err != nil {
		return hwp.EarbudStatus{}, err
	}
	return hwp.DecodeStatusReport(raw)
}

func (c *sppClient) setLowLatency(enabled bool) error {
	_, err := c.roundTrip(hwp.NewLowLatency(enabled))
	return err
}
