// Package tunneldetect wires vpnwatch's detection pipeline —
// capture → ingress filter → host tracker → report sinks → diagnostics
// API — into a single portbase/modules lifecycle, registering itself
// with Prep/Start/Stop hooks and inter-module dependencies the same
// way every other module in this codebase does.
package tunneldetect

import (
	"context"
	"fmt"
	"time"

	"github.com/safing/portbase/config"
	"github.com/safing/portbase/log"
	"github.com/safing/portbase/modules"
	"golang.org/x/sync/errgroup"

	"github.com/safing/vpnwatch/addrclass"
	"github.com/safing/vpnwatch/api"
	"github.com/safing/vpnwatch/capture"
	"github.com/safing/vpnwatch/hosttrack"
	"github.com/safing/vpnwatch/ingress"
	"github.com/safing/vpnwatch/metrics"
	"github.com/safing/vpnwatch/report"
)

var tunnelDetectModule = modules.Register("tunneldetect", prep, start, stop, "config", "database")

// Options holds everything that can only be supplied by the caller at
// process start (file paths, flags) rather than through
// portbase/config. An empty Options is valid; every field has a
// sensible default.
type Options struct {
	// ConfigFile is an optional YAML overlay read in Prep (see
	// fileOverlay), applied on top of the portbase/config defaults.
	ConfigFile string
	// GeoIPCityDB, when non-empty, enables the report.EnrichingSink.
	GeoIPCityDB string
	// AuditDBPath, when non-empty, enables the report.AuditSink.
	AuditDBPath string
	// StaticAssetsZip, when non-empty, serves a bundled web UI.
	StaticAssetsZip string
	// ReplayFile, when non-empty, replaces live NFQUEUE interception
	// with offline reading from a pcap file (see vpnwatchctl replay).
	ReplayFile string
}

var opts Options

// SetOptions must be called before modules.Start(), from the binary's
// main(), to supply process-start-only configuration.
func SetOptions(o Options) {
	opts = o
}

var (
	cfgCountPackets  config.IntOption
	cfgTimeWindowSec config.IntOption
	cfgOverlap       config.IntOption
	cfgFilterOnly    config.BoolOption
	cfgOrientSrc     config.BoolOption
	cfgIdleEviction  config.IntOption
	cfgAPIListen     config.StringOption
	cfgNFQueueID     config.IntOption
)

var (
	tracker    *hosttrack.Tracker
	idleWrap   *hosttrack.IdleEvictor
	auditSink  *report.AuditSink
	liveSink   *report.WebsocketSink
	apiServer  *api.Server
	source     capture.Source
	cancelLoop context.CancelFunc
	group      *errgroup.Group
)

func prep() error {
	if err := registerConfig(); err != nil {
		return fmt.Errorf("tunneldetect: register config: %w", err)
	}

	overlay, err := loadFileOverlay(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("tunneldetect: load config overlay %q: %w", opts.ConfigFile, err)
	}
	applyFileOverlay(overlay)

	cfgCountPackets = config.Concurrent.GetAsInt(CfgCountPacketsKey, 10000)
	cfgTimeWindowSec = config.Concurrent.GetAsInt(CfgTimeWindowSecKey, 1200)
	cfgOverlap = config.Concurrent.GetAsInt(CfgWindowOverlapThresholdKey, 7500)
	cfgFilterOnly = config.Concurrent.GetAsBool(CfgFilterInternalOnlyKey, true)
	cfgOrientSrc = config.Concurrent.GetAsBool(CfgOrientInternalAsSrcKey, true)
	cfgIdleEviction = config.Concurrent.GetAsInt(CfgIdleEvictionSecKey, 0)
	cfgAPIListen = config.Concurrent.GetAsString(CfgAPIListenAddressKey, "127.0.0.1:8717")
	cfgNFQueueID = config.Concurrent.GetAsInt(CfgNFQueueIDKey, 17717)

	trackerCfg := hosttrack.Config{
		CountPackets:           uint64(cfgCountPackets()),
		TimeWindowSec:          hosttrack.Timestamp(cfgTimeWindowSec()),
		WindowOverlapThreshold: uint64(cfgOverlap()),
	}
	return hosttrack.ValidateConfig(trackerCfg)
}

// applyFileOverlay pushes any YAML-supplied values into
// portbase/config as runtime overrides, giving the file a lower
// precedence than an explicit management-UI change but a higher one
// than the compiled-in default.
func applyFileOverlay(o *fileOverlay) {
	set := func(key string, value interface{}) {
		if err := config.SetConfigOption(key, value); err != nil {
			log.Warningf("tunneldetect: config overlay for %s: %s", key, err)
		}
	}
	if o.CountPackets != nil {
		set(CfgCountPacketsKey, int64(*o.CountPackets))
	}
	if o.TimeWindowSec != nil {
		set(CfgTimeWindowSecKey, *o.TimeWindowSec)
	}
	if o.WindowOverlapThreshold != nil {
		set(CfgWindowOverlapThresholdKey, int64(*o.WindowOverlapThreshold))
	}
	if o.FilterInternalOnly != nil {
		set(CfgFilterInternalOnlyKey, *o.FilterInternalOnly)
	}
	if o.OrientInternalAsSource != nil {
		set(CfgOrientInternalAsSrcKey, *o.OrientInternalAsSource)
	}
	if o.IdleEvictionSec != nil {
		set(CfgIdleEvictionSecKey, *o.IdleEvictionSec)
	}
	if o.APIListenAddress != nil {
		set(CfgAPIListenAddressKey, *o.APIListenAddress)
	}
	if o.NFQueueID != nil {
		set(CfgNFQueueIDKey, int64(*o.NFQueueID))
	}
}

func start() error {
	sink := buildSinks()

	trackerCfg := hosttrack.Config{
		CountPackets:           uint64(cfgCountPackets()),
		TimeWindowSec:          hosttrack.Timestamp(cfgTimeWindowSec()),
		WindowOverlapThreshold: uint64(cfgOverlap()),
	}
	tracker = hosttrack.New(trackerCfg, sink)

	var obs observer = tracker
	var idleHorizon time.Duration
	if horizon := cfgIdleEviction(); horizon > 0 {
		idleHorizon = time.Duration(horizon) * time.Second
		idleWrap = hosttrack.WithIdleEviction(tracker, idleHorizon)
		obs = idleWrap
	}

	src, err := openSource()
	if err != nil {
		return fmt.Errorf("tunneldetect: open capture source: %w", err)
	}
	source = src

	apiServer = api.NewServer(cfgAPIListen(), tracker, auditSink, liveSink)
	if opts.StaticAssetsZip != "" {
		apiServer.MountStatic("/ui/", api.NewStaticHandler(opts.StaticAssetsZip))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancelLoop = cancel
	eg, egCtx := errgroup.WithContext(ctx)
	group = eg

	eg.Go(func() error {
		runCaptureLoop(egCtx, source, obs)
		return nil
	})
	eg.Go(func() error {
		err := apiServer.ListenAndServe()
		if err != nil {
			log.Errorf("tunneldetect: diagnostics API stopped: %s", err)
		}
		return nil
	})
	if idleWrap != nil {
		eg.Go(func() error {
			runIdleSweep(egCtx, idleWrap, idleHorizon)
			return nil
		})
	}

	return nil
}

// observer is the subset of Tracker/IdleEvictor that the capture loop
// needs: just Observe.
type observer interface {
	Observe(internal, external hosttrack.Address, ts hosttrack.Timestamp)
}

func openSource() (capture.Source, error) {
	if opts.ReplayFile != "" {
		return capture.OpenPcapReplay(opts.ReplayFile)
	}
	return openLiveSource(uint16(cfgNFQueueID()))
}

// runIdleSweep periodically forces ev's idle clock to check every
// entry against horizon, since gcache only expires entries lazily on
// access. A quarter of the horizon keeps a host from sitting evicted-
// but-undetected for more than a fraction of its own idle window.
func runIdleSweep(ctx context.Context, ev *hosttrack.IdleEvictor, horizon time.Duration) {
	interval := horizon / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev.Sweep()
		}
	}
}

func runCaptureLoop(ctx context.Context, src capture.Source, obs observer) {
	cfg := ingress.Config{
		FilterInternalOnly:     cfgFilterOnly(),
		OrientInternalAsSource: cfgOrientSrc(),
	}
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-src.Packets():
			if !ok {
				return
			}
			verdict := ingress.Classify(pkt.Src, pkt.Dst, cfg)
			if verdict.Decision == ingress.Skip {
				metrics.SkipPacket()
				continue
			}
			metrics.ObservePacket()
			obs.Observe(verdict.Internal, verdict.External, addrclass.Timestamp(pkt.TS))
			metrics.SetHostsTracked(tracker.Len())
		}
	}
}

// buildSinks wires the report pipeline: every event is stamped with an
// ID, deduplicated, optionally GeoIP-enriched, and then fanned out to
// every terminal sink (log, metrics, audit). Order matters — dedup
// fingerprints the raw internal/external pair before enrichment can
// change the event's shape.
func buildSinks() report.Sink {
	var terminals report.Multi
	terminals = append(terminals, &report.LogSink{})
	terminals = append(terminals, report.SinkFunc(func(report.Event) { metrics.ReportEmitted() }))

	if opts.AuditDBPath != "" {
		sink, err := report.OpenAuditSink(opts.AuditDBPath)
		if err != nil {
			log.Warningf("tunneldetect: audit sink disabled: %s", err)
		} else {
			auditSink = sink
			terminals = append(terminals, auditSink)
		}
	}

	liveSink = report.NewWebsocketSink()
	terminals = append(terminals, liveSink)

	var next report.Sink = terminals
	if opts.GeoIPCityDB != "" {
		enriching, err := report.NewEnrichingSink(terminals, opts.GeoIPCityDB, report.Coordinate{})
		if err != nil {
			log.Warningf("tunneldetect: GeoIP enrichment disabled: %s", err)
		} else {
			next = enriching
		}
	}

	deduped := report.NewDedupSink(next, 4096)
	return &report.IDSink{Next: deduped}
}

func stop() error {
	if cancelLoop != nil {
		cancelLoop()
	}
	if apiServer != nil {
		_ = apiServer.Shutdown()
	}
	if group != nil {
		_ = group.Wait()
	}
	if source != nil {
		_ = source.Close()
	}
	if auditSink != nil {
		_ = auditSink.Close()
	}
	return nil
}

var _ = tunnelDetectModule
