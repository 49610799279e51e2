package hwp

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestCRC16Xmodem(t *testing.T) {
	// Standard XMODEM check value.
	assert.Equal(t, uint16(0x31C3), crc16([]byte("123456789")))
	assert.Equal(t, uint16(0x0000), crc16(nil))
}

func TestMarshalBatteryQuery(t *testing.T) {
	// Captured from the stock app: three empty parameters, CRC appended.
	want := mustHex(t, "5a0009000108010002000300fbb9")
	assert.Equal(t, want, NewBatteryQuery().Marshal())
}

func TestMarshalLowLatency(t *testing.T) {
	want := mustHex(t, "5a0006002b6c010101a411")
	assert.Equal(t, want, NewLowLatency(true).Marshal())

	off := NewLowLatency(false).Marshal()
	assert.Equal(t, byte(0x00), off[8])
}

func TestParsePacketRoundTrip(t *testing.T) {
	in := Packet{
		Command: CmdBatteryQuery,
		Params: []Param{
			{Type: 1, Value: []byte{0x41}},
			{Type: 2, Value: []byte{0x50, 0x45, 0x32}},
		},
	}
	out, err := ParsePacket(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParsePacketMalformed(t *testing.T) {
	valid := NewBatteryQuery().Marshal()

	badCRC := append([]byte(nil), valid...)
	badCRC[len(badCRC)-1] ^= 0xFF

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 0xA5

	badReserved := append([]byte(nil), valid...)
	badReserved[3] = 0x01

	cases := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"two bytes", []byte{0x5A, 0x00}},
		{"seven bytes", valid[:7]},
		{"bad magic", badMagic},
		{"bad reserved", badReserved},
		{"truncated body", valid[:len(valid)-3]},
		{"bad crc", badCRC},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePacket(tc.raw)
			assert.ErrorIs(t, err, ErrMalformedReport)
		})
	}
}

func TestParsePacketTruncatedParam(t *testing.T) {
	// A parameter header claiming more value bytes than the frame holds.
	p := Packet{Command: CmdBatteryQuery, Params: []Param{{Type: 2, Value: []byte{0x50}}}}
	raw := p.Marshal()
	raw[7] = 5 // length byte of the only parameter
	// Fix the CRC so the overrun is what fails, not the checksum.
	c := crc16(raw[:len(raw)-2])
	raw[len(raw)-2] = byte(c >> 8)
	raw[len(raw)-1] = byte(c)

	_, err := ParsePacket(raw)
	assert.ErrorIs(t, err, ErrMalformedReport)
}
