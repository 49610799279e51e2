package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

func ipcCall(req IPCRequest) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath())
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to daemon: %w (is `freebudsctl daemon` running?)", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

func printResponse(resp IPCResponse) error {
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return json.NewEncoder(os.Stdout).Encode(resp)
}

func runStatus() error {
	resp, err := ipcCall(IPCRequest{Command: "status"})
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(resp)
}

func runBattery(device string) error {
	resp, err := ipcCall(IPCRequest{Command: "battery", Device: device})
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func runConnect(device string) error {
	if device == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if device, err = resolveDevice(cfg, device); err != nil {
			return err
		}
	}
	resp, err := ipcCall(IPCRequest{Command: "connect", Device: device})
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func runDisconnect() error {
	resp, err := ipcCall(IPCRequest{Command: "disconnect"})
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func runLatency(arg string) error {
	var enabled bool
	switch arg {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return fmt.Errorf("latency takes on or off, got %q", arg)
	}
	resp, err := ipcCall(IPCRequest{Command: "latency", Enabled: &enabled})
	if err != nil {
		return err
	}
	return printResponse(resp)
}

// runWatch polls the daemon for battery readings and prints one JSON line
// per reading until interrupted.
func runWatch() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for {
		resp, err := ipcCall(IPCRequest{Command: "battery"})
		if err != nil {
			return err
		}
		if resp.Error != "" {
			log.Printf("poll: %s", resp.Error)
		} else if err := enc.Encode(resp); err != nil {
			return err
		}
		time.Sleep(cfg.pollInterval())
	}
}
