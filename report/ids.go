package report

import (
	"github.com/gofrs/uuid"
	"github.com/mr-tron/base58"
)

// IDSink stamps every event with a fresh UUID (Event.ID) and a short
// base58 rendering of it (Event.Token) before passing it on. It
// should be the first sink in the chain so every downstream sink
// (dedup, audit, websocket) sees the same identifiers.
type IDSink struct {
	Next Sink
}

// Report implements Sink.
func (s IDSink) Report(ev Event) {
	if id, err := uuid.NewV4(); err == nil {
		ev.ID = id.String()
		ev.Token = base58.Encode(id.Bytes())
	}
	if s.Next != nil {
		s.Next.Report(ev)
	}
}
