package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the hosts currently tracked by a running vpnwatch daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(apiAddr + "/hosts")
		if err != nil {
			return fmt.Errorf("reaching %s: %w", apiAddr, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s/hosts: unexpected status %s", apiAddr, resp.Status)
		}

		var hosts []struct {
			Address       string `json:"address"`
			Peer          string `json:"peer"`
			CountCurrent  uint64 `json:"countCurrent"`
			CountPrevious uint64 `json:"countPrevious"`
			Note          string `json:"note"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&hosts); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ADDRESS\tPEER\tCURRENT\tPREVIOUS\tNOTE")
		for _, h := range hosts {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", h.Address, h.Peer, h.CountCurrent, h.CountPrevious, h.Note)
		}
		return tw.Flush()
	},
}
