package alerting

import (
	"context"
	"fmt"
	"sync"

	geo "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Geo"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

const defaultMaxParallel = 16

// UserLister loads the full user registry
type UserLister interface {
	GetAll(ctx context.Context) ([]*auth_models.User, error)
}

// NearbyUsers returns users with both coordinates within radiusKm of the
// point, each user at most once.
func NearbyUsers(users []*auth_models.User, lat, lon, radiusKm float64) []*auth_models.User {
	seen := make(map[string]bool, len(users))
	out := make([]*auth_models.User, 0)
	for _, u := range users {
		if u == nil || !u.HasLocation() {
			continue
		}
		key := u.ID.Hex()
		if seen[key] {
			continue
		}
		if geo.WithinRadius(lat, lon, *u.Latitude, *u.Longitude, radiusKm) {
			seen[key] = true
			out = append(out, u)
		}
	}
	return out
}

type dispatch struct {
	channel Channel
	userID  string
	to      string
}

// DispatchFailure describes one failed send
type DispatchFailure struct {
	Channel string `json:"channel"`
	UserID  string `json:"user_id"`
	Error   string `json:"error"`
}

// NotifyResult summarizes one notification round
type NotifyResult struct {
	UsersMatched int               `json:"users_matched"`
	Dispatched   int               `json:"dispatched"`
	Failed       int               `json:"failed"`
	Skipped      int               `json:"skipped"`
	Failures     []DispatchFailure `json:"failures,omitempty"`
}

// ProximityNotifier alerts users near a device on every enabled channel
type ProximityNotifier struct {
	users       UserLister
	channels    []Channel
	radiusKm    float64
	maxParallel int
	logger      *logger.Logger
}

// NotifierOption configures a ProximityNotifier
type NotifierOption func(*ProximityNotifier)

// WithMaxParallel bounds concurrent sends within one round
func WithMaxParallel(n int) NotifierOption {
	return func(p *ProximityNotifier) {
		if n > 0 {
			p.maxParallel = n
		}
	}
}

func NewProximityNotifier(users UserLister, channels []Channel, radiusKm float64, log *logger.Logger, opts ...NotifierOption) *ProximityNotifier {
	p := &ProximityNotifier{
		users:       users,
		channels:    channels,
		radiusKm:    radiusKm,
		maxParallel: defaultMaxParallel,
		logger:      log.WithComponent("proximity-notifier"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify sends message to every user within the radius of (lat, lon).
// All sends of the round form one batch that is awaited as a unit; a
// failed send is recorded and never cancels its siblings.
func (p *ProximityNotifier) Notify(ctx context.Context, lat, lon float64, message string) (NotifyResult, error) {
	var res NotifyResult

	users, err := p.users.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("load users: %w", err)
	}

	nearby := NearbyUsers(users, lat, lon, p.radiusKm)
	res.UsersMatched = len(nearby)
	if len(nearby) == 0 {
		p.logger.Logger.Info().Float64("radius_km", p.radiusKm).Msg("No nearby users to notify")
		return res, nil
	}

	batch, skipped := p.plan(nearby)
	res.Skipped = skipped

	errs := make([]error, len(batch))
	sem := make(chan struct{}, p.maxParallel)
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = batch[i].channel.Send(ctx, batch[i].to, message)
		}(i)
	}
	wg.Wait()

	for i, d := range batch {
		name := d.channel.Name()
		if errs[i] != nil {
			res.Failed++
			res.Failures = append(res.Failures, DispatchFailure{Channel: name, UserID: d.userID, Error: errs[i].Error()})
			metrics.IncNotification(name, metrics.ResultError)
			p.logger.Logger.Error().Err(errs[i]).Str("channel", name).Str("user_id", d.userID).Msg("Notification failed")
			continue
		}
		res.Dispatched++
		metrics.IncNotification(name, metrics.ResultSuccess)
	}

	p.logger.Logger.Info().
		Int("users", res.UsersMatched).
		Int("dispatched", res.Dispatched).
		Int("failed", res.Failed).
		Msg("Alert notifications sent")
	return res, nil
}

// plan flattens users x channels into one batch, dropping users without
// an address on a channel and repeated addresses.
func (p *ProximityNotifier) plan(users []*auth_models.User) ([]dispatch, int) {
	batch := make([]dispatch, 0, len(users)*len(p.channels))
	seen := make(map[string]bool)
	skipped := 0
	for _, u := range users {
		for _, ch := range p.channels {
			to, ok := ch.Recipient(u)
			if !ok {
				skipped++
				continue
			}
			key := ch.Name() + "|" + to
			if seen[key] {
				continue
			}
			seen[key] = true
			batch = append(batch, dispatch{channel: ch, userID: u.ID.Hex(), to: to})
		}
	}
	return batch, skipped
}
