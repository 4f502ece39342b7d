package api

import (
	"net/http"

	"github.com/awalterschulze/gographviz"
)

// handleGraph renders the current internal-host-to-external-peer
// topology as Graphviz dot source, for an operator to pipe into `dot`
// and eyeball which internal hosts talk to which external addresses.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	graph := gographviz.NewGraph()
	_ = graph.SetName("vpnwatch")
	_ = graph.SetDir(true)

	seen := make(map[string]bool)
	ensureNode := func(name string) {
		if !seen[name] {
			_ = graph.AddNode("vpnwatch", name, nil)
			seen[name] = true
		}
	}

	for _, e := range s.tracker.Snapshot() {
		internal := `"` + addrString(e.Address) + `"`
		peer := `"` + addrString(e.Conn.Peer) + `"`
		ensureNode(internal)
		ensureNode(peer)
		attrs := map[string]string{
			"label": quoteLabel(e.Conn.CountCurrent),
		}
		_ = graph.AddEdge(internal, peer, true, attrs)
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(graph.String()))
}

func quoteLabel(count uint64) string {
	return `"` + uitoa(count) + `"`
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
