package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/r3labs/diff/v3"

	"github.com/safing/vpnwatch/report"
)

// historyStep pairs a raw audited report with what changed since the
// previous report for the same host, so an operator can see not just
// that a host tripped suspicion repeatedly but what actually shifted.
type historyStep struct {
	Event  report.Event  `json:"event"`
	Change diff.Changelog `json:"change,omitempty"`
}

// handleHistory replays the audit log for a single host and annotates
// each entry with its diff from the one before it.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddr(mux.Vars(r)["addr"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if s.audit == nil {
		_ = json.NewEncoder(w).Encode([]historyStep{})
		return
	}

	all, err := s.audit.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var steps []historyStep
	var prev *report.Event
	for _, ev := range all {
		if ev.Internal != addr {
			continue
		}
		step := historyStep{Event: ev}
		if prev != nil {
			if changelog, err := diff.Diff(*prev, ev); err == nil {
				step.Change = changelog
			}
		}
		steps = append(steps, step)
		evCopy := ev
		prev = &evCopy
	}

	_ = json.NewEncoder(w).Encode(steps)
}
