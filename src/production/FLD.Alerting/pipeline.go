package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

// EventPublisher forwards fired alerts to downstream consumers
type EventPublisher interface {
	PublishAlert(ctx context.Context, event fldmodels.AlertEvent) error
}

// Pipeline runs one alert cycle: evaluate, notify nearby users, publish
type Pipeline struct {
	evaluator *Evaluator
	notifier  *ProximityNotifier
	publisher EventPublisher
	message   string
	logger    *logger.Logger
	now       func() time.Time
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithPublisher sends an AlertEvent for every cycle that fires
func WithPublisher(pub EventPublisher) PipelineOption {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// WithClock overrides the time source used for event timestamps
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipeline(evaluator *Evaluator, notifier *ProximityNotifier, message string, log *logger.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		evaluator: evaluator,
		notifier:  notifier,
		message:   message,
		logger:    log.WithComponent("alert-pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunCycle returns the fired event, or nil when no alert is active
func (p *Pipeline) RunCycle(ctx context.Context) (*fldmodels.AlertEvent, error) {
	cycleID := uuid.NewString()
	log := p.logger.WithCycleID(cycleID)

	decision := p.evaluator.Evaluate(ctx)
	if !decision.Active {
		log.Logger.Debug().Str("reason", decision.Reason).Msg("No alert this cycle")
		return nil, nil
	}

	device := decision.Device
	metrics.IncAlertTriggered()
	log.Logger.Warn().
		Str("device_id", device.HexID()).
		Str("indicator", decision.Indicator).
		Str("reason", decision.Reason).
		Msg("Alert condition active, notifying nearby users")

	res, err := p.notifier.Notify(ctx, device.Location.Latitude, device.Location.Longitude, p.message)
	if err != nil {
		return nil, err
	}

	event := fldmodels.AlertEvent{
		CycleID:      cycleID,
		DeviceID:     device.HexID(),
		DeviceName:   device.Name,
		ChannelID:    device.ThingSpeakChannelID,
		Latitude:     device.Location.Latitude,
		Longitude:    device.Location.Longitude,
		Indicator:    decision.Indicator,
		Reason:       decision.Reason,
		Message:      p.message,
		UsersMatched: res.UsersMatched,
		Dispatched:   res.Dispatched,
		Failed:       res.Failed,
		TriggeredAt:  p.now().UTC(),
	}

	if p.publisher != nil {
		if err := p.publisher.PublishAlert(ctx, event); err != nil {
			log.Logger.Warn().Err(err).Msg("Failed to publish alert event")
		}
	}
	return &event, nil
}
