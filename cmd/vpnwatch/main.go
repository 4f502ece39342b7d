// Command vpnwatch runs the full tunnel-detection daemon: packet
// capture, host tracking, report sinks and the diagnostics API, all
// wired up as a single portbase/modules process.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/safing/portbase/info"
	"github.com/safing/portbase/log"
	"github.com/safing/portbase/modules"

	"github.com/safing/vpnwatch/tunneldetect"
)

var (
	printStackOnExit   bool
	enableInputSignals bool

	configFile      string
	geoIPCityDB     string
	auditDBPath     string
	staticAssetsZip string
	replayFile      string
)

func init() {
	flag.BoolVar(&printStackOnExit, "print-stack-on-exit", false, "prints the stack before of shutting down")
	flag.BoolVar(&enableInputSignals, "input-signals", false, "emulate signals using stdin")

	flag.StringVar(&configFile, "config", "", "optional YAML config overlay")
	flag.StringVar(&geoIPCityDB, "geoip-city-db", "", "path to a MaxMind GeoLite2-City database; enables report enrichment")
	flag.StringVar(&auditDBPath, "audit-db", "", "path to a bbolt audit database; enables /hosts/{addr}/history")
	flag.StringVar(&staticAssetsZip, "ui-zip", "", "path to a zip archive of static web UI assets")
	flag.StringVar(&replayFile, "replay", "", "replay a pcap file instead of intercepting live traffic")
}

func main() {
	flag.Parse()

	tunneldetect.SetOptions(tunneldetect.Options{
		ConfigFile:      configFile,
		GeoIPCityDB:     geoIPCityDB,
		AuditDBPath:     auditDBPath,
		StaticAssetsZip: staticAssetsZip,
		ReplayFile:      replayFile,
	})

	// Set Info
	info.Set("vpnwatch", "0.1.0", "AGPLv3", true)

	// Start
	err := modules.Start()
	if err != nil {
		if err == modules.ErrCleanExit {
			os.Exit(0)
		} else {
			modules.Shutdown()
			os.Exit(1)
		}
	}

	// Shutdown
	// catch interrupt for clean shutdown
	signalCh := make(chan os.Signal, 1)
	if enableInputSignals {
		go inputSignals(signalCh)
	}
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

		// catch signals during shutdown
		go func() {
			for {
				<-signalCh
				fmt.Println(" <INTERRUPT> again, but already shutting down")
			}
		}()

		if printStackOnExit {
			fmt.Println("=== PRINTING TRACES ===")
			fmt.Println("=== GOROUTINES ===")
			pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
			fmt.Println("=== BLOCKING ===")
			pprof.Lookup("block").WriteTo(os.Stdout, 1)
			fmt.Println("=== MUTEXES ===")
			pprof.Lookup("mutex").WriteTo(os.Stdout, 1)
			fmt.Println("=== END TRACES ===")
		}

		go func() {
			time.Sleep(10 * time.Second)
			fmt.Fprintln(os.Stderr, "===== TAKING TOO LONG FOR SHUTDOWN - PRINTING STACK TRACES =====")
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
			os.Exit(1)
		}()

		err := modules.Shutdown()
		if err != nil {
			os.Exit(1)
		} else {
			os.Exit(0)
		}

	case <-modules.ShuttingDown():
	}
}

func inputSignals(signalCh chan os.Signal) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch scanner.Text() {
		case "SIGHUP":
			signalCh <- syscall.SIGHUP
		case "SIGINT":
			signalCh <- syscall.SIGINT
		case "SIGQUIT":
			signalCh <- syscall.SIGQUIT
		case "SIGTERM":
			signalCh <- syscall.SIGTERM
		}
	}
}
