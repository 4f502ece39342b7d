package report

import (
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"
)

var auditBucket = []byte("reports")

// AuditSink appends every report to a bbolt bucket, keyed by an
// auto-incrementing sequence number. This is a permanent log of
// Report emissions only — it does not snapshot or restore host
// tracker state.
type AuditSink struct {
	db *bbolt.DB
}

// OpenAuditSink opens (creating if needed) a bbolt database at path
// and ensures the reports bucket exists.
func OpenAuditSink(path string) (*AuditSink, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(auditBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &AuditSink{db: db}, nil
}

// Close closes the underlying database file.
func (a *AuditSink) Close() error {
	return a.db.Close()
}

// Report implements Sink.
func (a *AuditSink) Report(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(auditBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, payload)
	})
}

// All returns every recorded report, oldest first. Intended for the
// diagnostics API's history endpoint and for tests, not the hot path.
func (a *AuditSink) All() ([]Event, error) {
	var events []Event
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(auditBucket)
		return b.ForEach(func(_, v []byte) error {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			events = append(events, ev)
			return nil
		})
	})
	return events, err
}
