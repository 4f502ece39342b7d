package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/safing/vpnwatch/capture"
	"github.com/safing/vpnwatch/hosttrack"
	"github.com/safing/vpnwatch/ingress"
	"github.com/safing/vpnwatch/report"
)

func init() {
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <pcap-file>",
	Short: "Run the detection pipeline over a pcap file without a daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := capture.OpenPcapReplay(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer src.Close()

		tracker := hosttrack.New(hosttrack.DefaultConfig(), &report.LogSink{})
		cfg := ingress.DefaultConfig()

		var total, analyzed int
		for pkt := range src.Packets() {
			total++
			verdict := ingress.Classify(pkt.Src, pkt.Dst, cfg)
			if verdict.Decision == ingress.Skip {
				continue
			}
			analyzed++
			tracker.Observe(verdict.Internal, verdict.External, pkt.TS)
		}

		slog.Info("replay complete", "packets", total, "analyzed", analyzed, "hosts", tracker.Len())
		for _, e := range tracker.Snapshot() {
			fmt.Printf("%s -> %s  current=%d previous=%d\n",
				addrString(e.Address), addrString(e.Conn.Peer), e.Conn.CountCurrent, e.Conn.CountPrevious)
		}
		return nil
	},
}

func addrString(addr hosttrack.Address) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}
