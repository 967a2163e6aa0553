package container

import (
	"context"
	"errors"
	"testing"

	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
)

func testContainer() *Container {
	cfg := &config.Config{}
	cfg.ThingSpeak.BaseURL = "https://api.thingspeak.com"
	cfg.ThingSpeak.APIKey = "main-key"
	cfg.RainGauge.APIKey = "rain-key"
	return New(cfg, logger.NewNop())
}

func TestOptionalTransportsDisabled(t *testing.T) {
	c := testContainer()

	sc, err := c.SnapshotCache(context.Background())
	if err != nil || sc != nil {
		t.Fatalf("expected nil cache when redis disabled, got %v %v", sc, err)
	}
	p, err := c.Publisher()
	if err != nil || p != nil {
		t.Fatalf("expected nil publisher when mqtt disabled, got %v %v", p, err)
	}
}

func TestClientsAreMemoized(t *testing.T) {
	c := testContainer()

	if c.ThingSpeak() != c.ThingSpeak() {
		t.Fatalf("expected one thingspeak client")
	}
	if c.RainGauge() == c.ThingSpeak() {
		t.Fatalf("expected a separate rain gauge client")
	}
	if c.Hub() != c.Hub() {
		t.Fatalf("expected one hub")
	}
	if c.GetHealthChecker() != c.GetHealthChecker() {
		t.Fatalf("expected one health checker")
	}
}

func TestShutdownRunsCleanupInReverse(t *testing.T) {
	c := testContainer()
	var order []int
	c.AddCleanupFunc(func() error { order = append(order, 1); return nil })
	c.AddCleanupFunc(func() error { order = append(order, 2); return errors.New("ignored") })
	c.AddCleanupFunc(func() error { order = append(order, 3); return nil })

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Fatalf("expected reverse order, got %v", order)
	}

	c.Shutdown(context.Background())
	if len(order) != 3 {
		t.Fatalf("expected cleanup to run once, got %v", order)
	}
}
