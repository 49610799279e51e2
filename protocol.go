package main

import "freebudsctl/hwp"

// DeviceState represents the current state of the buds' classic-BT link.
type DeviceState string

const (
	StateConnected DeviceState = "connected"
	StateIdle      DeviceState = "idle"
	StateDisabled  DeviceState = "disabled"
)

// IPCRequest is sent from the CLI client to the daemon.
type IPCRequest struct {
	Command string `json:"command"`           // "status" | "battery" | "connect" | "disconnect" | "latency"
	Device  string `json:"device,omitempty"`  // MAC address, optional
	Enabled *bool  `json:"enabled,omitempty"` // for "latency"
}

// IPCResponse is sent from the daemon back to the CLI client.
type IPCResponse struct {
	State   string            `json:"state,omitempty"`
	Device  string            `json:"device,omitempty"`
	Battery *hwp.EarbudStatus `json:"battery,omitempty"`
	AgeSec  int               `json:"age_sec,omitempty"` // age of a cached battery reading
	Error   string            `json:"error,omitempty"`
}
