package report

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/umahmood/haversine"

	"github.com/safing/vpnwatch/addrclass"
)

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
	ASOrganization string `maxminddb:"autonomous_system_organization"`
}

// EnrichingSink looks up External in a MaxMind GeoIP2/GeoLite2 City+ASN
// database and attaches a best-effort country, ASN organization and
// distance from Home before forwarding to Next. Lookup failures are
// non-fatal: the event is forwarded unenriched.
type EnrichingSink struct {
	Next Sink
	Home Coordinate

	db *maxminddb.Reader
}

// NewEnrichingSink opens dbPath (a MaxMind .mmdb file) and returns a
// sink wrapping next. The caller decides how to handle an open
// failure; callers that want to proceed unenriched may downgrade the
// error to a warning instead of failing startup.
func NewEnrichingSink(next Sink, dbPath string, home Coordinate) (*EnrichingSink, error) {
	db, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &EnrichingSink{Next: next, Home: home, db: db}, nil
}

// Close releases the underlying database handle, if open.
func (s *EnrichingSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Report implements Sink.
func (s *EnrichingSink) Report(ev Event) {
	if s.db != nil {
		ip := addrToIP(ev.External)
		var rec geoRecord
		if err := s.db.Lookup(ip, &rec); err == nil {
			ev.Country = rec.Country.ISOCode
			ev.ASNOrg = rec.ASOrganization
			if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
				_, km := haversine.Distance(
					haversine.Coord{Lat: s.Home.Lat, Lon: s.Home.Lon},
					haversine.Coord{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude},
				)
				ev.DistanceKM = km
			}
		}
	}
	if s.Next != nil {
		s.Next.Report(ev)
	}
}

func addrToIP(a addrclass.Address) net.IP {
	return net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}
