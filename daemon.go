package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"freebudsctl/hwp"
)

func socketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "freebudsctl.sock")
}

type daemon struct {
	bz  *bluez
	cfg Config

	mu           sync.Mutex
	activeDevice string // MAC address of the active device
	spp          *sppClient
	lastStatus   *hwp.EarbudStatus
	lastPoll     time.Time
}

// session returns the SPP client for the active device, dialing if needed.
// Caller must hold d.mu.
func (d *daemon) session() (*sppClient, error) {
	if d.spp != nil {
		return d.spp, nil
	}
	if d.activeDevice == "" {
		return nil, fmt.Errorf("no active device")
	}
	if d.bz.resolveState(d.activeDevice) != StateConnected {
		return nil, fmt.Errorf("device %s is not connected", d.activeDevice)
	}
	c, err := dialSPP(d.activeDevice, replyDeadline)
	if err != nil {
		return nil, err
	}
	d.spp = c
	return c, nil
}

// dropSession closes the SPP socket and forgets the cached reading.
// Caller must hold d.mu.
func (d *daemon) dropSession() {
	if d.spp != nil {
		d.spp.close()
		d.spp = nil
	}
	d.lastStatus = nil
}

// setActive switches the active device, tearing down any session bound to
// the previous one. Caller must hold d.mu.
func (d *daemon) setActive(addr string) {
	if d.activeDevice == addr {
		return
	}
	if d.activeDevice != "" {
		log.Printf("switching from %s to %s", d.activeDevice, addr)
		d.dropSession()
	}
	d.activeDevice = addr
}

// pollBattery refreshes the cached status, retrying once on a fresh session
// if the old socket went stale. Caller must hold d.mu.
func (d *daemon) pollBattery() (*hwp.EarbudStatus, error) {
	c, err := d.session()
	if err != nil {
		return nil, err
	}
	st, err := c.queryBattery()
	if err != nil {
		d.dropSession()
		if c, err = d.session(); err != nil {
			return nil, err
		}
		if st, err = c.queryBattery(); err != nil {
			d.dropSession()
			return nil, err
		}
	}
	d.lastStatus = &st
	d.lastPoll = time.Now()
	return &st, nil
}

func (d *daemon) handleRequest(req IPCRequest) IPCResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch req.Command {
	case "status":
		if d.activeDevice == "" {
			return IPCResponse{State: string(StateDisabled)}
		}
		resp := IPCResponse{
			State:  string(d.bz.resolveState(d.activeDevice)),
			Device: d.activeDevice,
		}
		if d.lastStatus != nil {
			resp.Battery = d.lastStatus
			resp.AgeSec = int(time.Since(d.lastPoll).Seconds())
		}
		return resp

	case "battery":
		if req.Device != "" {
			d.setActive(req.Device)
		}
		st, err := d.pollBattery()
		if err != nil {
			return IPCResponse{Error: err.Error()}
		}
		return IPCResponse{State: string(StateConnected), Device: d.activeDevice, Battery: st}

	case "connect":
		addr := req.Device
		if addr == "" {
			addr = d.activeDevice
		}
		if addr == "" {
			return IPCResponse{Error: "device address is required"}
		}
		d.setActive(addr)
		if err := d.bz.ensureConnected(addr); err != nil {
			return IPCResponse{Error: err.Error()}
		}
		return IPCResponse{State: string(StateConnected), Device: addr}

	case "disconnect":
		if d.activeDevice == "" {
			return IPCResponse{Error: "no active device"}
		}
		d.dropSession()
		if err := d.bz.disconnectDevice(d.activeDevice); err != nil {
			return IPCResponse{Error: err.Error()}
		}
		return IPCResponse{State: string(StateIdle), Device: d.activeDevice}

	case "latency":
		if req.Enabled == nil {
			return IPCResponse{Error: "latency requires on or off"}
		}
		c, err := d.session()
		if err != nil {
			return IPCResponse{Error: err.Error()}
		}
		if err := c.setLowLatency(*req.Enabled); err != nil {
			d.dropSession()
			return IPCResponse{Error: err.Error()}
		}
		return IPCResponse{State: string(StateConnected), Device: d.activeDevice}

	default:
		return IPCResponse{Error: fmt.Sprintf("unknown command: %q", req.Command)}
	}
}

func (d *daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	var req IPCRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp := IPCResponse{Error: "invalid request: " + err.Error()}
		json.NewEncoder(conn).Encode(resp)
		return
	}

	resp := d.handleRequest(req)
	json.NewEncoder(conn).Encode(resp)
}

func (d *daemon) watchSignals(sigCh chan *dbus.Signal) {
	for sig := range sigCh {
		if sig.Name != propsSignal {
			continue
		}
		// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
		if len(sig.Body) < 2 {
			continue
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != deviceIface {
			continue
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			continue
		}
		connVar, ok := changed["Connected"]
		if !ok {
			continue
		}
		connected, ok := connVar.Value().(bool)
		if !ok {
			continue
		}
		mac := macFromPath(sig.Path)
		d.mu.Lock()
		if mac != "" && mac == d.activeDevice && !connected {
			log.Printf("active device %s disconnected, dropping SPP session", mac)
			d.dropSession()
		}
		d.mu.Unlock()
	}
}

// pollLoop refreshes the battery cache at the configured cadence while the
// active device is connected.
func (d *daemon) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(d.cfg.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		d.mu.Lock()
		if d.activeDevice != "" && d.bz.resolveState(d.activeDevice) == StateConnected {
			if _, err := d.pollBattery(); err != nil {
				log.Printf("battery poll: %v", err)
			}
		}
		d.mu.Unlock()
	}
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bz, err := newBluez()
	if err != nil {
		return err
	}
	defer bz.close()

	sock := socketPath()
	os.Remove(sock) // remove stale socket
	ln, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("listen %s: %w", sock, err)
	}
	os.Chmod(sock, 0700)
	defer os.Remove(sock)
	defer ln.Close()

	d := &daemon{bz: bz, cfg: cfg}
	if len(cfg.Devices) > 0 {
		d.activeDevice = cfg.Devices[0].Address
	}

	// Signal watcher goroutine.
	dbusSignals := bz.subscribePropertyChanges()
	go d.watchSignals(dbusSignals)

	stop := make(chan struct{})
	go d.pollLoop(stop)

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("shutting down")
		close(stop)
		ln.Close()
	}()

	log.Printf("listening on %s", sock)
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed by shutdown goroutine.
			return nil
		}
		go d.handleConn(conn)
	}
}
