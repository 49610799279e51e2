package hwp

import "fmt"

// Parameter types in the battery/state report.
const (
	paramGlobalLevel = 1 // one byte, overall level
	paramLevels      = 2 // left, right, case
	paramCharging    = 3 // left, right, case (0/1 each)
	paramCaseState   = 4 // bit0 lid open, bit1 left seated, bit2 right seated
)

// EarbudStatus is one decoded status report. Battery fields are nil when
// the component did not report a level (bud out of the case, case asleep).
type EarbudStatus struct {
	GlobalBattery *uint8 `json:"global_battery,omitempty"`
	LeftBattery   *uint8 `json:"left_battery,omitempty"`
	RightBattery  *uint8 `json:"right_battery,omitempty"`
	CaseBattery   *uint8 `json:"case_battery,omitempty"`

	LeftCharging  bool `json:"left_charging"`
	RightCharging bool `json:"right_charging"`
	CaseCharging  bool `json:"case_charging"`

	CaseOpen    bool `json:"case_open"`
	LeftInCase  bool `json:"left_in_case"`
	RightInCase bool `json:"right_in_case"`
}

// decodeLevel maps a raw battery byte to a percentage. 0xFF means "no
// reading"; any other value above 100 is garbage from the device and is
// treated the same way, never clamped.
func decodeLevel(b byte) *uint8 {
	if b > 100 {
		return nil
	}
	v := b
	return &v
}

// DecodeStatusReport parses one complete status frame into an EarbudStatus.
// It is a pure function of its input: no I/O, no state, safe to call from
// any goroutine. Failures wrap ErrMalformedReport and never yield a
// partial status.
func DecodeStatusReport(raw []byte) (EarbudStatus, error) {
	pkt, err := ParsePacket(raw)
	if err != nil {
		return EarbudStatus{}, err
	}
	if pkt.Command != CmdBatteryQuery {
		return EarbudStatus{}, fmt.Errorf("unexpected command 0x%04x: %w",
			uint16(pkt.Command), ErrMalformedReport)
	}

	var st EarbudStatus
	if v, ok := pkt.param(paramGlobalLevel); ok && len(v) >= 1 {
		st.GlobalBattery = decodeLevel(v[0])
	}
	if v, ok := pkt.param(paramLevels); ok {
		if len(v) < 3 {
			return EarbudStatus{}, fmt.Errorf("level parameter has %d bytes, want 3: %w",
				len(v), ErrMalformedReport)
		}
		st.LeftBattery = decodeLevel(v[0])
		st.RightBattery = decodeLevel(v[1])
		st.CaseBattery = decodeLevel(v[2])
	}
	if v, ok := pkt.param(paramCharging); ok && len(v) >= 3 {
		st.LeftCharging = v[0] != 0
		st.RightCharging = v[1] != 0
		st.CaseCharging = v[2] != 0
	}
	if v, ok := pkt.param(paramCaseState); ok && len(v) >= 1 {
		st.CaseOpen = v[0]&0x01 != 0
		st.LeftInCase = v[0]&0x02 != 0
		st.RightInCase = v[0]&0x04 != 0
	}
	return st, nil
}
