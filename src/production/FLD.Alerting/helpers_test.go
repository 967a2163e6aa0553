package alerting

import (
	"context"
	"errors"
	"sync"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubUsers struct {
	users []*auth_models.User
	err   error
}

func (s stubUsers) GetAll(context.Context) ([]*auth_models.User, error) {
	return s.users, s.err
}

type stubPrimary struct {
	device *fldmodels.Device
	err    error
}

func (s stubPrimary) GetPrimary(context.Context) (*fldmodels.Device, error) {
	if s.device == nil && s.err == nil {
		return nil, interfaces.ErrNotFound
	}
	return s.device, s.err
}

type stubIndicator struct {
	feed *thingspeak.ChannelFeed
	err  error
}

func (s stubIndicator) FetchField(context.Context, string, int, int) (*thingspeak.ChannelFeed, error) {
	return s.feed, s.err
}

type stubLatest struct {
	reading *fldmodels.Reading
}

func (s stubLatest) Latest(context.Context, string) (*fldmodels.Reading, error) {
	if s.reading == nil {
		return nil, interfaces.ErrNotFound
	}
	return s.reading, nil
}

type sent struct {
	to      string
	message string
}

// recordingChannel records sends and fails for addresses listed in failFor
type recordingChannel struct {
	name    string
	failFor map[string]bool

	mu   sync.Mutex
	sent []sent
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Recipient(u *auth_models.User) (string, bool) {
	if c.name == "sms" {
		p := u.Phone()
		return p, p != ""
	}
	return u.Email, u.Email != ""
}

func (c *recordingChannel) Send(_ context.Context, to, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[to] {
		return errors.New("gateway rejected " + to)
	}
	c.sent = append(c.sent, sent{to: to, message: message})
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func userAt(name string, lat, lon float64) *auth_models.User {
	phone := "07" + name
	return &auth_models.User{
		ID:          primitive.NewObjectID(),
		Username:    name,
		Email:       name + "@example.com",
		PhoneNumber: &phone,
		Latitude:    &lat,
		Longitude:   &lon,
	}
}

func feedWithField5(values ...string) *thingspeak.ChannelFeed {
	feed := &thingspeak.ChannelFeed{}
	for i, v := range values {
		feed.Feeds = append(feed.Feeds, thingspeak.FeedEntry{
			EntryID:   int64(i + 1),
			CreatedAt: "2024-05-01T10:00:00Z",
			Field5:    thingspeak.NewFieldValue(v),
		})
	}
	return feed
}
