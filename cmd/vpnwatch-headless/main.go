// Command vpnwatch-headless runs the same tunnel-detection module as
// vpnwatch but without the pprof stack-dump and stdin-signal-emulation
// trimmings — a slim entrypoint for containers and embedded deployments.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/safing/portbase/info"
	"github.com/safing/portbase/log"
	"github.com/safing/portbase/modules"

	"github.com/safing/vpnwatch/tunneldetect"
)

func main() {
	var configFile, replayFile string
	flag.StringVar(&configFile, "config", "", "optional YAML config overlay")
	flag.StringVar(&replayFile, "replay", "", "replay a pcap file instead of intercepting live traffic")
	flag.Parse()

	tunneldetect.SetOptions(tunneldetect.Options{
		ConfigFile: configFile,
		ReplayFile: replayFile,
	})

	info.Set("vpnwatch (headless)", "0.1.0", "AGPLv3", false)

	err := modules.Start()
	if err != nil {
		if err == modules.ErrCleanExit {
			os.Exit(0)
		} else {
			modules.Shutdown()
			os.Exit(1)
		}
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	select {
	case <-signalCh:
		fmt.Println(" <INTERRUPT>")
		log.Warning("main: program was interrupted, shutting down.")
		modules.Shutdown()
	case <-modules.ShuttingDown():
	}
}
