package api

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/safing/vpnwatch/hosttrack"
)

// noteStore keeps operator annotations ("this is the office VPN
// concentrator, ignore it") as a single JSON document keyed by
// address, read with gjson and mutated with sjson rather than a plain
// map — the document is what a future on-disk persistence of notes
// would serialize as-is.
type noteStore struct {
	mu  sync.RWMutex
	doc string
}

func newNoteStore() *noteStore {
	return &noteStore{doc: "{}"}
}

func (n *noteStore) get(addr hosttrack.Address) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return gjson.Get(n.doc, addrString(addr)).String()
}

func (n *noteStore) set(addr hosttrack.Address, note string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	updated, err := sjson.Set(n.doc, addrString(addr), note)
	if err != nil {
		return err
	}
	n.doc = updated
	return nil
}

func (s *Server) handlePatchNote(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddr(mux.Vars(r)["addr"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	note := gjson.GetBytes(body, "note").String()

	if err := s.notes.set(addr, note); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
