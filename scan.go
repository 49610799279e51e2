package main

import (
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"

	"freebudsctl/hwp"
)

var bleAdapter = bluetooth.DefaultAdapter

// runScan discovers nearby FreeBuds over BLE and prints one line per device.
func runScan(timeout time.Duration) error {
	if err := bleAdapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	log.Printf("scanning for %s...", timeout)

	stop := time.AfterFunc(timeout, func() {
		if err := bleAdapter.StopScan(); err != nil {
			log.Printf("stop scan: %v", err)
		}
	})
	defer stop.Stop()

	seen := make(map[string]bool)
	err := bleAdapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		var ids []uint16
		for _, m := range result.ManufacturerData() {
			ids = append(ids, m.CompanyID)
		}
		if !hwp.MatchAdvertisement(result.LocalName(), ids) {
			return
		}
		id := result.Address.String()
		if seen[id] {
			return
		}
		seen[id] = true
		fmt.Printf("%s\t%s\tRSSI %d\n", id, result.LocalName(), result.RSSI)
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}
