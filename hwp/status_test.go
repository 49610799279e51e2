package hwp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v uint8) *uint8 { return &v }

func TestDecodeStatusReport(t *testing.T) {
	// left=80%, right not reporting, case=50%, case charging, lid open,
	// neither bud seated.
	raw := Packet{
		Command: CmdBatteryQuery,
		Params: []Param{
			{Type: paramLevels, Value: []byte{80, 0xFF, 50}},
			{Type: paramCharging, Value: []byte{0, 0, 1}},
			{Type: paramCaseState, Value: []byte{0x01}},
		},
	}.Marshal()

	st, err := DecodeStatusReport(raw)
	require.NoError(t, err)
	assert.Equal(t, EarbudStatus{
		LeftBattery:  pct(80),
		RightBattery: nil,
		CaseBattery:  pct(50),
		CaseCharging: true,
		CaseOpen:     true,
	}, st)
}

func TestDecodeStatusReportCapture(t *testing.T) {
	// Byte-exact frame: global=65%, left=80%, right unknown, case=50%,
	// case charging, lid open.
	raw := mustHex(t, "5a0013000108010141020350ff320303000001040101a1ed")
	st, err := DecodeStatusReport(raw)
	require.NoError(t, err)
	assert.Equal(t, pct(65), st.GlobalBattery)
	assert.Equal(t, pct(80), st.LeftBattery)
	assert.Nil(t, st.RightBattery)
	assert.Equal(t, pct(50), st.CaseBattery)
	assert.True(t, st.CaseCharging)
	assert.True(t, st.CaseOpen)
	assert.False(t, st.LeftInCase)
	assert.False(t, st.RightInCase)
}

func TestDecodeStatusReportDeterministic(t *testing.T) {
	raw := mustHex(t, "5a0013000108010141020350ff320303000001040101a1ed")
	a, err := DecodeStatusReport(raw)
	require.NoError(t, err)
	b, err := DecodeStatusReport(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeStatusReportSentinels(t *testing.T) {
	cases := []struct {
		name string
		b    byte
		want *uint8
	}{
		{"zero", 0, pct(0)},
		{"full", 100, pct(100)},
		{"sentinel", 0xFF, nil},
		{"out of range", 101, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := Packet{
				Command: CmdBatteryQuery,
				Params:  []Param{{Type: paramLevels, Value: []byte{tc.b, tc.b, tc.b}}},
			}.Marshal()
			st, err := DecodeStatusReport(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, st.LeftBattery)
			assert.Equal(t, tc.want, st.RightBattery)
			assert.Equal(t, tc.want, st.CaseBattery)
		})
	}
}

func TestDecodeStatusReportSeating(t *testing.T) {
	raw := Packet{
		Command: CmdBatteryQuery,
		Params:  []Param{{Type: paramCaseState, Value: []byte{0x06}}},
	}.Marshal()
	st, err := DecodeStatusReport(raw)
	require.NoError(t, err)
	assert.False(t, st.CaseOpen)
	assert.True(t, st.LeftInCase)
	assert.True(t, st.RightInCase)
}

func TestDecodeStatusReportErrors(t *testing.T) {
	t.Run("wrong command", func(t *testing.T) {
		raw := NewLowLatency(true).Marshal()
		_, err := DecodeStatusReport(raw)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})

	t.Run("short level triple", func(t *testing.T) {
		raw := Packet{
			Command: CmdBatteryQuery,
			Params:  []Param{{Type: paramLevels, Value: []byte{80, 50}}},
		}.Marshal()
		_, err := DecodeStatusReport(raw)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})

	t.Run("short buffers", func(t *testing.T) {
		for _, raw := range [][]byte{nil, {}, {0x5A, 0x00}} {
			_, err := DecodeStatusReport(raw)
			assert.ErrorIs(t, err, ErrMalformedReport)
		}
	})
}

func TestMatchAdvertisement(t *testing.T) {
	assert.True(t, MatchAdvertisement("HUAWEI FreeBuds SE 2", nil))
	assert.True(t, MatchAdvertisement("FreeBuds SE 2", nil))
	assert.True(t, MatchAdvertisement("", []uint16{0x0156}))
	assert.False(t, MatchAdvertisement("JBL Flip", []uint16{0x0057}))
	assert.False(t, MatchAdvertisement("", nil))
}
