package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mitchellh/copystructure"
	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/vincent-petithory/dataurl"

	"github.com/safing/vpnwatch/hosttrack"
)

// parseAddr accepts a dotted-decimal IPv4 address from a URL path
// variable and returns it as a hosttrack.Address.
func parseAddr(s string) (hosttrack.Address, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("not an IP address: %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("not an IPv4 address: %q", s)
	}
	return hosttrack.Address(uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])), nil
}

func addrString(addr hosttrack.Address) string {
	return net.IPv4(byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr)).String()
}

// hostView is the JSON shape returned for a single tracked host.
type hostView struct {
	Address       string `json:"address"`
	Peer          string `json:"peer"`
	WindowStart   int64  `json:"windowStart"`
	CountCurrent  uint64 `json:"countCurrent"`
	CountPrevious uint64 `json:"countPrevious"`
	Note          string `json:"note,omitempty"`
}

func (s *Server) toView(e hosttrack.HostEntry) hostView {
	return hostView{
		Address:       addrString(e.Address),
		Peer:          addrString(e.Conn.Peer),
		WindowStart:   int64(e.Conn.WindowStart),
		CountCurrent:  e.Conn.CountCurrent,
		CountPrevious: e.Conn.CountPrevious,
		Note:          s.notes.get(e.Address),
	}
}

func (s *Server) handleListHosts(w http.ResponseWriter, r *http.Request) {
	timing := servertiming.FromContext(r.Context())
	m := timing.NewMetric("snapshot").Start()
	snap := s.tracker.Snapshot()
	m.Stop()

	views := make([]hostView, 0, len(snap))
	for _, e := range snap {
		views = append(views, s.toView(e))
	}

	// copystructure exercises a real deep copy before the response is
	// serialized, so a concurrent Note edit can never race with the
	// in-flight json.Marshal below.
	copied, err := copystructure.Copy(views)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(copied)
}

// hostDetailView adds an inline, base64 data-URI sparkline to hostView
// so a single request renders a host's detail panel without a second
// round trip for the PNG.
type hostDetailView struct {
	hostView
	SparklineDataURI string `json:"sparklineDataUri,omitempty"`
}

func (s *Server) handleGetHost(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddr(mux.Vars(r)["addr"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, ok := s.tracker.Lookup(addr)
	if !ok {
		http.NotFound(w, r)
		return
	}

	view := hostDetailView{hostView: s.toView(entry)}
	if png, err := renderSparklinePNG(entry.Conn); err == nil {
		view.SparklineDataURI = dataurl.EncodeBytes(png)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}
