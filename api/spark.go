package api

import (
	"bytes"
	"net/http"

	"github.com/fogleman/gg"
	"github.com/gorilla/mux"

	"github.com/safing/vpnwatch/hosttrack"
)

const (
	sparkWidth  = 160
	sparkHeight = 32
)

// handleSparkline renders a tiny two-bar chart comparing a host's
// count_previous and count_current with each other. Both bars are
// scaled to the larger of the two counts; the configured count_packets
// threshold is not drawn and does not affect the scale.
func (s *Server) handleSparkline(w http.ResponseWriter, r *http.Request) {
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

	png, err := renderSparklinePNG(entry.Conn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func renderSparklinePNG(conn hosttrack.ConnectionState) ([]byte, error) {
	dc := gg.NewContext(sparkWidth, sparkHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	ceiling := sparkCeiling(conn)
	drawBar(dc, 8, float64(conn.CountPrevious), ceiling, 0.4, 0.4, 0.8)
	drawBar(dc, 88, float64(conn.CountCurrent), ceiling, 0.8, 0.3, 0.3)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sparkCeiling(conn hosttrack.ConnectionState) float64 {
	ceiling := float64(conn.CountCurrent)
	if float64(conn.CountPrevious) > ceiling {
		ceiling = float64(conn.CountPrevious)
	}
	if ceiling == 0 {
		return 1
	}
	return ceiling
}

func drawBar(dc *gg.Context, x, value, ceiling, r, g, b float64) {
	const barWidth = 64
	barHeight := (value / ceiling) * (sparkHeight - 4)
	dc.SetRGB(r, g, b)
	dc.DrawRectangle(x, sparkHeight-2-barHeight, barWidth, barHeight)
	dc.Fill()
}
