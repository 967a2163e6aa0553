package container

import (
	"context"
	"fmt"
	"sync"

	health "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/health"
	cache "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Cache"
	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	messaging "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Messaging"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	realtime "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Realtime"
	implementation "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
	thingspeak "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ThingSpeak"
	"go.mongodb.org/mongo-driver/mongo"
)

const Version = "1.0.0"

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger

	mongoClient *mongo.Client
	db          *mongo.Database

	deviceRepo  interfaces.DeviceRepository
	userRepo    interfaces.UserRepository
	readingRepo interfaces.ReadingRepository

	thingSpeak *thingspeak.Client
	rainGauge  *thingspeak.Client

	snapshotCache *cache.SnapshotCache
	publisher     *messaging.Publisher
	hub           *realtime.Hub

	healthChecker *health.HealthChecker

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions, run in reverse order
	cleanupFuncs []func() error
}

// NewContainer loads configuration and builds the logger. Connections are
// opened lazily by the getters.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg, logger.NewLogger(&cfg.Logging)), nil
}

// New builds a container around an existing configuration
func New(cfg *config.Config, log *logger.Logger) *Container {
	metrics.Init()
	return &Container{config: cfg, logger: log}
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetDatabase returns the Mongo database, connecting on first use
func (c *Container) GetDatabase() (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.database()
}

func (c *Container) database() (*mongo.Database, error) {
	if c.db != nil {
		return c.db, nil
	}
	client, err := health.ConnectMongoWithTimeout(c.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.mongoClient = client
	c.db = client.Database(c.config.Database.Name)
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		return client.Disconnect(context.Background())
	})
	c.logger.Logger.Info().Str("database", c.config.Database.Name).Msg("Connected to MongoDB")
	return c.db, nil
}

// Repositories returns the device, user and reading stores
func (c *Container) Repositories() (interfaces.DeviceRepository, interfaces.UserRepository, interfaces.ReadingRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deviceRepo == nil {
		db, err := c.database()
		if err != nil {
			return nil, nil, nil, err
		}
		c.deviceRepo = implementation.NewMongoDeviceRepository(db)
		c.userRepo = implementation.NewMongoUserRepository(db)
		c.readingRepo = implementation.NewMongoReadingRepository(db)
	}
	return c.deviceRepo, c.userRepo, c.readingRepo, nil
}

// InitializeDatabase creates the indexes every repository relies on
func (c *Container) InitializeDatabase(ctx context.Context) error {
	devices, users, readings, err := c.Repositories()
	if err != nil {
		return err
	}
	steps := []struct {
		name string
		repo interfaces.Indexer
	}{
		{"device", devices},
		{"user", users},
		{"reading", readings},
	}
	for _, step := range steps {
		if err := step.repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("%s indexes: %w", step.name, err)
		}
	}
	c.logger.Info("Database initialized successfully")
	return nil
}

// ThingSpeak returns the client for device channels
func (c *Container) ThingSpeak() *thingspeak.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thingSpeak == nil {
		c.thingSpeak = thingspeak.NewClient(c.config.ThingSpeak, thingspeak.WithObserver(metrics.ObserveProviderRequest))
	}
	return c.thingSpeak
}

// RainGauge returns the client for the fixed rain gauge channel, which may
// use its own read key.
func (c *Container) RainGauge() *thingspeak.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rainGauge == nil {
		c.rainGauge = thingspeak.NewClient(c.config.ThingSpeak,
			thingspeak.WithAPIKey(c.config.RainGauge.APIKey),
			thingspeak.WithObserver(metrics.ObserveProviderRequest),
		)
	}
	return c.rainGauge
}

// SnapshotCache returns the Redis cache, or nil when REDIS_ADDR is unset
func (c *Container) SnapshotCache(ctx context.Context) (*cache.SnapshotCache, error) {
	if !c.config.RedisEnabled() {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshotCache == nil {
		sc, err := cache.NewSnapshotCache(ctx, c.config.Redis)
		if err != nil {
			return nil, err
		}
		c.snapshotCache = sc
		c.cleanupFuncs = append(c.cleanupFuncs, sc.Close)
		c.logger.Logger.Info().Str("addr", c.config.Redis.Addr).Msg("Connected to Redis")
	}
	return c.snapshotCache, nil
}

// Publisher returns the MQTT publisher, or nil when BROKER_HOST is unset
func (c *Container) Publisher() (*messaging.Publisher, error) {
	if !c.config.MQTTEnabled() {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publisher == nil {
		p, err := messaging.Connect(c.config, c.logger)
		if err != nil {
			return nil, err
		}
		c.publisher = p
		c.cleanupFuncs = append(c.cleanupFuncs, func() error {
			p.Close()
			return nil
		})
	}
	return c.publisher, nil
}

// Hub returns the realtime hub; the caller runs it
func (c *Container) Hub() *realtime.Hub {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hub == nil {
		c.hub = realtime.NewHub(c.logger)
	}
	return c.hub
}

// GetHealthChecker returns a checker covering every enabled dependency.
// Only Mongo is critical for readiness.
func (c *Container) GetHealthChecker() *health.HealthChecker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.healthChecker != nil {
		return c.healthChecker
	}

	hc := health.NewHealthChecker(Version)
	hc.Register("mongo", func(ctx context.Context) error {
		c.mu.Lock()
		client := c.mongoClient
		c.mu.Unlock()
		return health.MongoCheck(client)(ctx)
	}, true)
	if c.snapshotCache != nil {
		hc.Register("redis", c.snapshotCache.Ping, false)
	}
	if c.publisher != nil {
		p := c.publisher
		hc.Register("mqtt", func(context.Context) error {
			if !p.IsConnected() {
				return messaging.ErrNotConnected
			}
			return nil
		}, false)
	}
	c.healthChecker = hc
	return hc
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown releases every connection opened by the container
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
