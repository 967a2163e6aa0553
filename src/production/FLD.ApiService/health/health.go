package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDegraded = "degraded"

	checkTimeout = 3 * time.Second
)

// Check reports the health of one dependency
type Check func(ctx context.Context) error

type namedCheck struct {
	name     string
	check    Check
	critical bool
}

// HealthChecker runs the registered dependency checks
type HealthChecker struct {
	version string
	checks  []namedCheck
	now     func() time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version, now: time.Now}
}

// Register adds a check. A failing critical check makes the service not ready;
// other failures only degrade it.
func (h *HealthChecker) Register(name string, check Check, critical bool) {
	h.checks = append(h.checks, namedCheck{name: name, check: check, critical: critical})
}

// GetHealthStatus runs every check concurrently and reports whether the
// service is ready to serve.
func (h *HealthChecker) GetHealthStatus(ctx context.Context) (map[string]interface{}, bool) {
	results := make([]error, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func(i int, c namedCheck) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results[i] = c.check(cctx)
		}(i, c)
	}
	wg.Wait()

	checks := make(map[string]interface{}, len(h.checks))
	overall := StatusOK
	ready := true
	for i, c := range h.checks {
		if err := results[i]; err != nil {
			checks[c.name] = map[string]interface{}{"status": StatusError, "error": err.Error()}
			if c.critical {
				ready = false
			}
			overall = StatusDegraded
			continue
		}
		checks[c.name] = map[string]interface{}{"status": StatusOK}
	}
	if !ready {
		overall = StatusError
	}

	return map[string]interface{}{
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"status":    overall,
		"checks":    checks,
	}, ready
}

// MongoCheck pings the primary
func MongoCheck(client *mongo.Client) Check {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("mongo client is nil")
		}
		return client.Ping(ctx, readpref.Primary())
	}
}

// ConnectMongoWithTimeout creates a MongoDB connection and verifies it with a ping
func ConnectMongoWithTimeout(cfg config.DatabaseConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)

	// Atlas requires TLS 1.2
	clientOptions.SetTLSConfig(&tls.Config{
		MinVersion: tls.VersionTLS12,
	})

	clientOptions.SetServerSelectionTimeout(30 * time.Second)
	clientOptions.SetConnectTimeout(30 * time.Second)
	clientOptions.SetSocketTimeout(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	return client, nil
}
