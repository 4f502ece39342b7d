// Command vpnwatchctl is a small operator CLI for a running vpnwatch
// daemon: checking its host-table status and kicking off an offline
// pcap replay. A cobra root command with one subcommand per file,
// each registering itself from that file's init.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var apiAddr string

var rootCmd = &cobra.Command{
	Use:   "vpnwatchctl",
	Short: "operator CLI for a running vpnwatch daemon",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8717", "vpnwatch diagnostics API base URL")

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
