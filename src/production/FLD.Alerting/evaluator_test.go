package alerting

import (
	"context"
	"errors"
	"testing"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func primaryDevice() *fldmodels.Device {
	return &fldmodels.Device{
		ID:                  primitive.NewObjectID(),
		Name:                "kelani",
		ThingSpeakChannelID: "2831972",
		Location:            fldmodels.Location{Latitude: deviceLat, Longitude: deviceLon},
	}
}

func TestEvaluateActive(t *testing.T) {
	e := NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5("1")}, 5, logger.NewNop())
	d := e.Evaluate(context.Background())
	if !d.Active || d.Reason != ReasonIndicator || d.Indicator != "1" {
		t.Fatalf("expected active indicator decision, got %+v", d)
	}
}

func TestEvaluateUsesNewestEntry(t *testing.T) {
	e := NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5("1", "0")}, 5, logger.NewNop())
	if d := e.Evaluate(context.Background()); d.Active {
		t.Fatalf("expected newest value 0 to be inactive, got %+v", d)
	}
}

func TestEvaluateInactiveValues(t *testing.T) {
	for _, v := range []string{"0", "", "abc"} {
		e := NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5(v)}, 5, logger.NewNop())
		if d := e.Evaluate(context.Background()); d.Active {
			t.Fatalf("value %q: expected inactive", v)
		}
	}
}

func TestEvaluateFailuresAreInactive(t *testing.T) {
	cases := []struct {
		name   string
		e      *Evaluator
		reason string
	}{
		{"no device", NewEvaluator(stubPrimary{}, stubIndicator{feed: feedWithField5("1")}, 5, logger.NewNop()), ReasonNoDevice},
		{"registry error", NewEvaluator(stubPrimary{err: errors.New("down")}, stubIndicator{feed: feedWithField5("1")}, 5, logger.NewNop()), ReasonNoDevice},
		{"fetch error", NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{err: errors.New("timeout")}, 5, logger.NewNop()), ReasonFetchFailed},
		{"empty feed", NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5()}, 5, logger.NewNop()), ReasonNoData},
	}
	for _, c := range cases {
		d := c.e.Evaluate(context.Background())
		if d.Active || d.Reason != c.reason {
			t.Fatalf("%s: expected inactive %s, got %+v", c.name, c.reason, d)
		}
	}
}

func TestEvaluateReadingRule(t *testing.T) {
	level := 7.5
	latest := stubLatest{reading: &fldmodels.Reading{Measurements: fldmodels.Measurements{WaterLevel: &level}}}
	rule := ReadingRule{WaterLevelThreshold: 5, RainThreshold: 1}

	e := NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5("0")}, 5, logger.NewNop(),
		WithReadingRule(rule, latest))
	d := e.Evaluate(context.Background())
	if !d.Active || d.Reason != ReasonReadingRule {
		t.Fatalf("expected reading rule to fire, got %+v", d)
	}

	e = NewEvaluator(stubPrimary{device: primaryDevice()}, stubIndicator{feed: feedWithField5("0")}, 5, logger.NewNop(),
		WithReadingRule(rule, stubLatest{}))
	if d := e.Evaluate(context.Background()); d.Active {
		t.Fatalf("expected no alert without stored readings, got %+v", d)
	}
}
