package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
)

// DeviceLister is the part of the device registry the fetcher reads
type DeviceLister interface {
	List(ctx context.Context) ([]fldmodels.Device, error)
}

// ReadingAppender is the durable reading store
type ReadingAppender interface {
	InsertOne(ctx context.Context, r fldmodels.Reading) error
}

// FeedSource returns the most recent entries of a channel
type FeedSource interface {
	FetchFeeds(ctx context.Context, channelID string, results int) (*thingspeak.ChannelFeed, error)
}

// DeviceResult summarizes one device within a cycle
type DeviceResult struct {
	DeviceID   string `json:"deviceId"`
	Name       string `json:"name"`
	Fetched    int    `json:"fetched"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

// CycleResult summarizes one fetch cycle
type CycleResult struct {
	CycleID       string         `json:"cycleId"`
	Devices       int            `json:"devices"`
	FailedDevices int            `json:"failedDevices"`
	Stored        int            `json:"stored"`
	Duplicates    int            `json:"duplicates"`
	Rejected      int            `json:"rejected"`
	Results       []DeviceResult `json:"results"`
	Duration      time.Duration  `json:"duration"`
}

// Fetcher polls every registered device and appends new readings
type Fetcher struct {
	devices  DeviceLister
	readings ReadingAppender
	source   FeedSource
	results  int
	logger   *logger.Logger
}

func NewFetcher(devices DeviceLister, readings ReadingAppender, source FeedSource, results int, log *logger.Logger) *Fetcher {
	return &Fetcher{
		devices:  devices,
		readings: readings,
		source:   source,
		results:  results,
		logger:   log.WithComponent("telemetry-fetcher"),
	}
}

// RunCycle fetches and persists readings for all devices. Devices are
// processed concurrently and a failing device never affects the others;
// an error is returned only when the device list itself is unavailable.
func (f *Fetcher) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	res := CycleResult{CycleID: uuid.NewString()}
	log := f.logger.WithCycleID(res.CycleID)

	devices, err := f.devices.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list devices: %w", err)
	}
	res.Devices = len(devices)
	if len(devices) == 0 {
		log.Logger.Info().Msg("No devices registered, nothing to fetch")
		return res, nil
	}

	res.Results = make([]DeviceResult, len(devices))
	var wg sync.WaitGroup
	for i := range devices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res.Results[i] = f.fetchDevice(ctx, log, devices[i])
		}(i)
	}
	wg.Wait()

	for _, dr := range res.Results {
		if dr.Error != "" {
			res.FailedDevices++
		}
		res.Stored += dr.Stored
		res.Duplicates += dr.Duplicates
		res.Rejected += dr.Rejected
	}
	res.Duration = time.Since(start)

	log.Logger.Info().
		Int("devices", res.Devices).
		Int("failed_devices", res.FailedDevices).
		Int("stored", res.Stored).
		Int("duplicates", res.Duplicates).
		Dur("duration", res.Duration).
		Msg("Fetch cycle complete")
	return res, nil
}

func (f *Fetcher) fetchDevice(ctx context.Context, log *logger.Logger, device fldmodels.Device) DeviceResult {
	dr := DeviceResult{DeviceID: device.HexID(), Name: device.Name}
	dlog := log.WithDevice(dr.DeviceID, device.ThingSpeakChannelID)

	feed, err := f.source.FetchFeeds(ctx, device.ThingSpeakChannelID, f.results)
	if err != nil {
		dr.Error = err.Error()
		dlog.Logger.Error().Err(err).Msg("Device fetch failed")
		return dr
	}
	dr.Fetched = len(feed.Feeds)
	if dr.Fetched == 0 {
		dlog.Logger.Warn().Msg("No data available for device")
		return dr
	}

	for _, entry := range feed.Feeds {
		reading, err := Normalize(device.ID, entry)
		if err != nil {
			dr.Rejected++
			metrics.IncReadingPersisted("rejected")
			dlog.Logger.Warn().Err(err).Msg("Skipping malformed entry")
			continue
		}

		err = f.readings.InsertOne(ctx, reading)
		switch {
		case err == nil:
			dr.Stored++
			metrics.IncReadingPersisted("stored")
		case errors.Is(err, interfaces.ErrDuplicate):
			dr.Duplicates++
			metrics.IncReadingPersisted("duplicate")
		default:
			dr.Rejected++
			metrics.IncReadingPersisted(metrics.ResultError)
			dlog.Logger.Error().Err(err).Int64("entry_id", entry.EntryID).Msg("Failed to persist reading")
		}
	}

	dlog.Logger.Debug().
		Int("fetched", dr.Fetched).
		Int("stored", dr.Stored).
		Int("duplicates", dr.Duplicates).
		Msg("Device fetched")
	return dr
}
