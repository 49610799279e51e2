package main

import (
	"fmt"
	"os"
	"time"
)

const usage = "usage: freebudsctl <daemon|status|battery [device]|watch|connect [device]|disconnect|latency on|off|scan>"

func optArg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "daemon":
		err = runDaemon()
	case "status":
		err = runStatus()
	case "battery":
		err = runBattery(optArg(2))
	case "watch":
		err = runWatch()
	case "connect":
		err = runConnect(optArg(2))
	case "disconnect":
		err = runDisconnect()
	case "latency":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: freebudsctl latency on|off")
			os.Exit(1)
		}
		err = runLatency(os.Args[2])
	case "scan":
		err = runScan(10 * time.Second)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
