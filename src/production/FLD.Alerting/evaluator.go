package alerting

import (
	"context"
	"errors"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
)

// ErrNoPrimaryDevice is reported when the registry is empty
var ErrNoPrimaryDevice = errors.New("no primary device registered")

// PrimaryDeviceSource returns the device monitored for alerts
type PrimaryDeviceSource interface {
	GetPrimary(ctx context.Context) (*fldmodels.Device, error)
}

// IndicatorSource reads single-field values from the provider
type IndicatorSource interface {
	FetchField(ctx context.Context, channelID string, field, results int) (*thingspeak.ChannelFeed, error)
}

// LatestReadingSource returns a device's newest stored reading
type LatestReadingSource interface {
	Latest(ctx context.Context, deviceID string) (*fldmodels.Reading, error)
}

// Reasons an evaluation came out active or inactive
const (
	ReasonIndicator   = "indicator"
	ReasonReadingRule = "reading_rule"
	ReasonInactive    = "inactive"
	ReasonNoDevice    = "no_device"
	ReasonNoData      = "no_data"
	ReasonFetchFailed = "fetch_failed"
)

// Decision is the outcome of one evaluation. It is not retained.
type Decision struct {
	Active    bool
	Device    *fldmodels.Device
	Indicator string
	Reason    string
}

// Evaluator decides whether the primary device is in alert
type Evaluator struct {
	devices  PrimaryDeviceSource
	source   IndicatorSource
	readings LatestReadingSource
	field    int
	rule     *ReadingRule
	logger   *logger.Logger
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithReadingRule enables the secondary rule against stored readings
func WithReadingRule(rule ReadingRule, readings LatestReadingSource) EvaluatorOption {
	return func(e *Evaluator) {
		if readings != nil {
			e.rule = &rule
			e.readings = readings
		}
	}
}

func NewEvaluator(devices PrimaryDeviceSource, source IndicatorSource, field int, log *logger.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		devices: devices,
		source:  source,
		field:   field,
		logger:  log.WithComponent("alert-evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate never fails: provider and registry problems are logged and
// yield an inactive decision.
func (e *Evaluator) Evaluate(ctx context.Context) Decision {
	device, err := e.devices.GetPrimary(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			e.logger.Logger.Warn().Err(ErrNoPrimaryDevice).Msg("No device found, skipping alert check")
		} else {
			e.logger.Logger.Warn().Err(err).Msg("Failed to load primary device")
		}
		return Decision{Reason: ReasonNoDevice}
	}
	if device.ThingSpeakChannelID == "" {
		e.logger.WithDevice(device.HexID(), "").Logger.Warn().Msg("Primary device has no channel id")
		return Decision{Device: device, Reason: ReasonNoDevice}
	}

	dlog := e.logger.WithDevice(device.HexID(), device.ThingSpeakChannelID)

	decision := Decision{Device: device, Reason: ReasonInactive}

	feed, err := e.source.FetchField(ctx, device.ThingSpeakChannelID, e.field, 1)
	switch {
	case err != nil:
		dlog.Logger.Warn().Err(err).Msg("Failed to fetch alert indicator")
		decision.Reason = ReasonFetchFailed
	default:
		entry, ok := feed.Latest()
		value := entry.Field(e.field)
		if !ok || !value.Valid() {
			dlog.Logger.Warn().Int("field", e.field).Msg("No indicator data available")
			decision.Reason = ReasonNoData
			break
		}
		decision.Indicator = value.String()
		if ParseIndicator(value) {
			decision.Active = true
			decision.Reason = ReasonIndicator
			return decision
		}
		dlog.Logger.Debug().Str("indicator", decision.Indicator).Msg("Indicator inactive")
	}

	if e.rule != nil && e.matchesRule(ctx, dlog, device) {
		decision.Active = true
		decision.Reason = ReasonReadingRule
	}
	return decision
}

func (e *Evaluator) matchesRule(ctx context.Context, log *logger.Logger, device *fldmodels.Device) bool {
	rd, err := e.readings.Latest(ctx, device.HexID())
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			log.Logger.Warn().Err(err).Msg("Failed to load latest reading")
		}
		return false
	}
	return e.rule.Matches(*rd)
}
