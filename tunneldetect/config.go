package tunneldetect

import (
	"os"

	"github.com/safing/portbase/config"
	"gopkg.in/yaml.v3"
)

// Configuration keys, registered with portbase/config so each one
// surfaces in any portbase-aware management UI, not just a config file.
const (
	CfgCountPacketsKey           = "tunneldetect/countPackets"
	CfgTimeWindowSecKey          = "tunneldetect/timeWindowSec"
	CfgWindowOverlapThresholdKey = "tunneldetect/windowOverlapThreshold"
	CfgFilterInternalOnlyKey     = "tunneldetect/filterInternalOnly"
	CfgOrientInternalAsSrcKey    = "tunneldetect/orientInternalAsSource"
	CfgIdleEvictionSecKey        = "tunneldetect/idleEvictionSec"
	CfgAPIListenAddressKey       = "tunneldetect/apiListenAddress"
	CfgNFQueueIDKey              = "tunneldetect/nfqueueId"
)

func registerConfig() error {
	options := []*config.Option{
		{
			Name:           "Packet Count Threshold",
			Key:            CfgCountPacketsKey,
			Description:    "Reports a host as suspected VPN-tunnel traffic once its current window exceeds this many packets to one peer.",
			OptType:        config.OptTypeInt,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   10000,
		},
		{
			Name:           "Window Length (seconds)",
			Key:            CfgTimeWindowSecKey,
			Description:    "Length of the sliding counting window, in seconds.",
			OptType:        config.OptTypeInt,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   1200,
		},
		{
			Name:           "Window Overlap Threshold",
			Key:            CfgWindowOverlapThresholdKey,
			Description:    "Reports a host if the sum of the previous and current window counts exceeds this value at rollover.",
			OptType:        config.OptTypeInt,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   7500,
		},
		{
			Name:           "Filter Internal Traffic Only",
			Key:            CfgFilterInternalOnlyKey,
			Description:    "Skip packets where both endpoints are public. Packets where both endpoints are private are skipped whatever this setting is.",
			OptType:        config.OptTypeBool,
			ExpertiseLevel: config.ExpertiseLevelUser,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   true,
		},
		{
			Name:           "Orient Internal Address As Source",
			Key:            CfgOrientInternalAsSrcKey,
			Description:    "Swap source/destination so the private address is always treated as the connection's origin.",
			OptType:        config.OptTypeBool,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   true,
		},
		{
			Name:           "Idle Host Eviction (seconds)",
			Key:            CfgIdleEvictionSecKey,
			Description:    "Remove a host from the table after this many seconds without a new packet from it. Zero disables eviction.",
			OptType:        config.OptTypeInt,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelExperimental,
			DefaultValue:   0,
		},
		{
			Name:           "Diagnostics API Listen Address",
			Key:            CfgAPIListenAddressKey,
			Description:    "host:port the diagnostics HTTP API listens on.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   "127.0.0.1:8717",
		},
		{
			Name:           "NFQUEUE Number",
			Key:            CfgNFQueueIDKey,
			Description:    "Netfilter queue number to intercept on (Linux only).",
			OptType:        config.OptTypeInt,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   17717,
		},
	}
	for _, opt := range options {
		if err := config.Register(opt); err != nil {
			return err
		}
	}
	return nil
}

// fileOverlay is the shape of an optional YAML config file; any key
// present overrides the portbase/config default for that run. This is
// the one place the module reads a plain file instead of going through
// portbase/config's own persistence, for operators who prefer a config
// file checked into version control over the management UI.
type fileOverlay struct {
	CountPackets           *uint64 `yaml:"count_packets"`
	TimeWindowSec          *int64  `yaml:"time_window_sec"`
	WindowOverlapThreshold *uint64 `yaml:"window_overlap_threshold"`
	FilterInternalOnly     *bool   `yaml:"filter_internal_only"`
	OrientInternalAsSource *bool   `yaml:"orient_internal_as_source"`
	IdleEvictionSec        *int64  `yaml:"idle_eviction_sec"`
	APIListenAddress       *string `yaml:"api_listen_address"`
	NFQueueID              *uint16 `yaml:"nfqueue_id"`
}

func loadFileOverlay(path string) (*fileOverlay, error) {
	if path == "" {
		return &fileOverlay{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	return &overlay, nil
}
