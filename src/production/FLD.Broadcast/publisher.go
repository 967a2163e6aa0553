package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	telemetry "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Telemetry"
)

const (
	outcomeData        = "data"
	outcomeNoData      = "no_data"
	outcomeFetchFailed = "fetch_failed"
)

// Subscribers receives every snapshot; the realtime hub implements it
type Subscribers interface {
	BroadcastDeviceData(ctx context.Context, snapshots []fldmodels.DeviceSnapshot) error
}

// SnapshotStore keeps the last snapshot for late readers
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, snapshots []fldmodels.DeviceSnapshot) error
}

// SnapshotPublisher forwards snapshots to an external bus
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snapshots []fldmodels.DeviceSnapshot) error
}

type Option func(*Publisher)

func WithStore(s SnapshotStore) Option {
	return func(p *Publisher) { p.store = s }
}

func WithBus(b SnapshotPublisher) Option {
	return func(p *Publisher) { p.bus = b }
}

// Publisher builds the per-device live snapshot straight from the provider
// and pushes it to subscribers. It never reads the reading store, so it
// keeps working while the database is unavailable.
type Publisher struct {
	devices     telemetry.DeviceLister
	source      telemetry.FeedSource
	results     int
	subscribers Subscribers
	store       SnapshotStore
	bus         SnapshotPublisher
	logger      *logger.Logger
}

func NewPublisher(devices telemetry.DeviceLister, source telemetry.FeedSource, results int, subscribers Subscribers, log *logger.Logger, opts ...Option) *Publisher {
	if results < 1 {
		results = 1
	}
	p := &Publisher{
		devices:     devices,
		source:      source,
		results:     results,
		subscribers: subscribers,
		logger:      log.WithComponent("broadcast-publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunCycle builds one snapshot and delivers it. Delivery failures are
// logged; only a failing device registry is returned.
func (p *Publisher) RunCycle(ctx context.Context) error {
	log := p.logger.WithCycleID(uuid.NewString())

	snapshots, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}

	if p.subscribers != nil {
		if err := p.subscribers.BroadcastDeviceData(ctx, snapshots); err != nil {
			log.Logger.Warn().Err(err).Msg("Failed to broadcast snapshot")
		}
	}
	if p.store != nil {
		if err := p.store.StoreSnapshot(ctx, snapshots); err != nil {
			log.Logger.Warn().Err(err).Msg("Failed to cache snapshot")
		}
	}
	if p.bus != nil {
		if err := p.bus.PublishSnapshot(ctx, snapshots); err != nil {
			log.Logger.Warn().Err(err).Msg("Failed to publish snapshot")
		}
	}

	log.Logger.Debug().Int("devices", len(snapshots)).Msg("Snapshot broadcast")
	return nil
}

// Snapshot lists the registry and builds one entry per device
func (p *Publisher) Snapshot(ctx context.Context) ([]fldmodels.DeviceSnapshot, error) {
	devices, err := p.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return p.Build(ctx, devices), nil
}

// Build fetches every device concurrently. The result has one entry per
// device, in registry order; failed devices carry an error marker.
func (p *Publisher) Build(ctx context.Context, devices []fldmodels.Device) []fldmodels.DeviceSnapshot {
	out := make([]fldmodels.DeviceSnapshot, len(devices))
	outcomes := make([]string, len(devices))

	var wg sync.WaitGroup
	for i := range devices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i], outcomes[i] = p.snapshotDevice(ctx, devices[i])
		}(i)
	}
	wg.Wait()

	counts := map[string]int{}
	for _, o := range outcomes {
		counts[o]++
	}
	for outcome, n := range counts {
		metrics.AddSnapshotDevices(outcome, n)
	}
	return out
}

func (p *Publisher) snapshotDevice(ctx context.Context, device fldmodels.Device) (fldmodels.DeviceSnapshot, string) {
	snap := fldmodels.DeviceSnapshot{
		DeviceID:  device.HexID(),
		Name:      device.Name,
		Latitude:  device.Location.Latitude,
		Longitude: device.Location.Longitude,
	}

	feed, err := p.source.FetchFeeds(ctx, device.ThingSpeakChannelID, p.results)
	if err != nil {
		p.logger.Logger.Warn().Err(err).
			Str("device_id", snap.DeviceID).
			Str("channel_id", device.ThingSpeakChannelID).
			Msg("Snapshot fetch failed")
		snap.Error = fldmodels.SnapshotErrorFetchFailed
		return snap, outcomeFetchFailed
	}

	entry, ok := feed.Latest()
	if !ok {
		snap.Error = fldmodels.SnapshotErrorNoData
		return snap, outcomeNoData
	}

	latest, err := telemetry.LatestData(entry)
	if err != nil {
		p.logger.Logger.Warn().Err(err).Str("device_id", snap.DeviceID).Msg("Latest entry is malformed")
		snap.Error = fldmodels.SnapshotErrorFetchFailed
		return snap, outcomeFetchFailed
	}
	snap.LatestData = &latest
	return snap, outcomeData
}
