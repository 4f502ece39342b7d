//go:build linux

package capture

import (
	"fmt"
	"strings"

	"github.com/coreos/go-iptables/iptables"
)

// IptablesRule manages the single NFQUEUE diversion rule vpnwatch needs:
// every forwarded IPv4 packet is copied to the given queue and, because
// --queue-bypass is set, still traverses the chain normally if no
// listener is attached.
type IptablesRule struct {
	tables  *iptables.IPTables
	queueID uint16
	rule    []string
}

// NewIptablesRule prepares (but does not yet install) a FORWARD rule
// diverting packets to queueID.
func NewIptablesRule(queueID uint16) (*IptablesRule, error) {
	tbls, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return nil, fmt.Errorf("capture: open iptables: %w", err)
	}
	return &IptablesRule{
		tables:  tbls,
		queueID: queueID,
		rule:    strings.Fields(fmt.Sprintf("-j NFQUEUE --queue-num %d --queue-bypass", queueID)),
	}, nil
}

// Install inserts the diversion rule if it isn't already present.
func (r *IptablesRule) Install() error {
	ok, err := r.tables.Exists("filter", "FORWARD", r.rule...)
	if err != nil {
		return fmt.Errorf("capture: check rule: %w", err)
	}
	if ok {
		return nil
	}
	if err := r.tables.Insert("filter", "FORWARD", 1, r.rule...); err != nil {
		return fmt.Errorf("capture: insert rule: %w", err)
	}
	return nil
}

// Remove deletes the diversion rule if present.
func (r *IptablesRule) Remove() error {
	ok, err := r.tables.Exists("filter", "FORWARD", r.rule...)
	if err != nil {
		return fmt.Errorf("capture: check rule: %w", err)
	}
	if !ok {
		return nil
	}
	if err := r.tables.Delete("filter", "FORWARD", r.rule...); err != nil {
		return fmt.Errorf("capture: delete rule: %w", err)
	}
	return nil
}
