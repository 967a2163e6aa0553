package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubDevices struct {
	devices []fldmodels.Device
	err     error
}

func (s stubDevices) List(context.Context) ([]fldmodels.Device, error) {
	return s.devices, s.err
}

type stubSource struct {
	feeds map[string]*thingspeak.ChannelFeed
	fail  map[string]error
}

func (s stubSource) FetchFeeds(_ context.Context, channelID string, _ int) (*thingspeak.ChannelFeed, error) {
	if err := s.fail[channelID]; err != nil {
		return nil, err
	}
	if feed, ok := s.feeds[channelID]; ok {
		return feed, nil
	}
	return &thingspeak.ChannelFeed{}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	calls [][]fldmodels.DeviceSnapshot
	err   error
}

func (r *recordingSink) record(s []fldmodels.DeviceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recordingSink) BroadcastDeviceData(_ context.Context, s []fldmodels.DeviceSnapshot) error {
	return r.record(s)
}

func (r *recordingSink) StoreSnapshot(_ context.Context, s []fldmodels.DeviceSnapshot) error {
	return r.record(s)
}

func (r *recordingSink) PublishSnapshot(_ context.Context, s []fldmodels.DeviceSnapshot) error {
	return r.record(s)
}

func device(name, channel string) fldmodels.Device {
	return fldmodels.Device{
		ID:                  primitive.NewObjectID(),
		Name:                name,
		ThingSpeakChannelID: channel,
		Location:            fldmodels.Location{Latitude: 6.9271, Longitude: 79.8612},
	}
}

func entry(id int64, level string) thingspeak.FeedEntry {
	return thingspeak.FeedEntry{
		EntryID:   id,
		CreatedAt: "2025-03-01T10:00:00Z",
		Field1:    thingspeak.NewFieldValue(level),
	}
}

func TestSnapshotKeepsFailedDevices(t *testing.T) {
	devices := []fldmodels.Device{device("one", "100"), device("two", "200"), device("three", "300"), device("four", "400")}
	source := stubSource{
		feeds: map[string]*thingspeak.ChannelFeed{
			"100": {Feeds: []thingspeak.FeedEntry{entry(1, "1.5"), entry(2, "2.5")}},
			"400": {Feeds: []thingspeak.FeedEntry{{EntryID: 9, CreatedAt: "yesterday"}}},
		},
		fail: map[string]error{"200": errors.New("timeout")},
	}
	p := NewPublisher(stubDevices{devices: devices}, source, 1, nil, logger.NewNop())

	snaps, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snaps) != len(devices) {
		t.Fatalf("expected %d snapshots, got %d", len(devices), len(snaps))
	}
	for i, s := range snaps {
		if s.DeviceID != devices[i].HexID() {
			t.Fatalf("expected registry order at %d", i)
		}
	}

	if snaps[0].LatestData == nil || snaps[0].LatestData.EntryID != 2 {
		t.Fatalf("expected latest entry 2 for device one, got %+v", snaps[0].LatestData)
	}
	if snaps[0].LatestData.WaterLevel == nil || *snaps[0].LatestData.WaterLevel != 2.5 {
		t.Fatalf("expected water level 2.5, got %v", snaps[0].LatestData.WaterLevel)
	}
	if snaps[0].Error != "" {
		t.Fatalf("expected no error on device one, got %q", snaps[0].Error)
	}

	if snaps[1].Error != fldmodels.SnapshotErrorFetchFailed || snaps[1].LatestData != nil {
		t.Fatalf("expected fetch failure marker on device two, got %+v", snaps[1])
	}
	if snaps[2].Error != fldmodels.SnapshotErrorNoData {
		t.Fatalf("expected no-data marker on device three, got %q", snaps[2].Error)
	}
	if snaps[3].Error != fldmodels.SnapshotErrorFetchFailed {
		t.Fatalf("expected malformed timestamp to mark device four failed, got %q", snaps[3].Error)
	}
	if snaps[1].Name != "two" || snaps[1].Latitude != 6.9271 {
		t.Fatalf("expected identity and location on failed device, got %+v", snaps[1])
	}
}

func TestRunCycleDeliversToEverySink(t *testing.T) {
	hub := &recordingSink{}
	store := &recordingSink{err: errors.New("redis down")}
	bus := &recordingSink{}
	devices := []fldmodels.Device{device("one", "100")}

	p := NewPublisher(stubDevices{devices: devices}, stubSource{}, 1, hub, logger.NewNop(), WithStore(store), WithBus(bus))
	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	for name, sink := range map[string]*recordingSink{"hub": hub, "store": store, "bus": bus} {
		if len(sink.calls) != 1 || len(sink.calls[0]) != 1 {
			t.Fatalf("expected one snapshot of one device on %s, got %v", name, sink.calls)
		}
	}
}

func TestRunCycleWithoutDevicesBroadcastsEmpty(t *testing.T) {
	hub := &recordingSink{}
	p := NewPublisher(stubDevices{}, stubSource{}, 1, hub, logger.NewNop())

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(hub.calls) != 1 || len(hub.calls[0]) != 0 {
		t.Fatalf("expected one empty broadcast, got %v", hub.calls)
	}
}

func TestRunCycleRegistryFailure(t *testing.T) {
	hub := &recordingSink{}
	p := NewPublisher(stubDevices{err: errors.New("mongo down")}, stubSource{}, 1, hub, logger.NewNop())

	if err := p.RunCycle(context.Background()); err == nil {
		t.Fatalf("expected registry error")
	}
	if len(hub.calls) != 0 {
		t.Fatalf("expected nothing broadcast, got %d", len(hub.calls))
	}
}
