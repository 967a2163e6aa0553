package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAlertMessage = "Alert: Water level has increased significantly! Flood alert triggered. Please take necessary precautions."

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	ThingSpeak ThingSpeakConfig `json:"thingspeak"`
	RainGauge  RainGaugeConfig  `json:"rain_gauge"`
	Alert      AlertConfig      `json:"alert"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Email      EmailConfig      `json:"email"`
	SMS        SMSConfig        `json:"sms"`
	MQTT       MQTTConfig       `json:"mqtt"`
	Redis      RedisConfig      `json:"redis"`
	Auth       AuthConfig       `json:"auth"`
	Logging    LoggingConfig    `json:"logging"`
	CORS       CORSConfig       `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig holds MongoDB configuration
type DatabaseConfig struct {
	URI            string        `json:"uri"`
	Name           string        `json:"name"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// ThingSpeakConfig holds the telemetry provider configuration
type ThingSpeakConfig struct {
	BaseURL         string        `json:"base_url"`
	APIKey          string        `json:"-"`
	Results         int           `json:"results"`
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	RetryDelay      time.Duration `json:"retry_delay"`
	BreakerFailures int           `json:"breaker_failures"`
	BreakerReset    time.Duration `json:"breaker_reset"`
}

// RainGaugeConfig holds the fixed rain gauge channel
type RainGaugeConfig struct {
	ChannelID string `json:"channel_id"`
	APIKey    string `json:"-"`
	Results   int    `json:"results"`
}

// AlertConfig holds threshold and proximity settings
type AlertConfig struct {
	Field               int     `json:"field"`
	RadiusKm            float64 `json:"radius_km"`
	Message             string  `json:"message"`
	ReadingRuleEnabled  bool    `json:"reading_rule_enabled"`
	WaterLevelThreshold float64 `json:"water_level_threshold"`
	RainThreshold       int     `json:"rain_threshold"`
}

// SchedulerConfig holds polling intervals
type SchedulerConfig struct {
	FetchInterval     time.Duration `json:"fetch_interval"`
	AlertInterval     time.Duration `json:"alert_interval"`
	BroadcastInterval time.Duration `json:"broadcast_interval"`
	SkipOverlap       bool          `json:"skip_overlap"`
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
}

// SMSConfig holds Notify.lk configuration
type SMSConfig struct {
	Enabled     bool          `json:"enabled"`
	URL         string        `json:"url"`
	UserID      string        `json:"user_id"`
	APIKey      string        `json:"-"`
	SenderID    string        `json:"sender_id"`
	CountryCode string        `json:"country_code"`
	Timeout     time.Duration `json:"timeout"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"-"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	TopicPrefix string        `json:"topic_prefix"`
	ClientID    string        `json:"client_id"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// RedisConfig holds the snapshot cache configuration
type RedisConfig struct {
	Addr        string        `json:"addr"`
	Password    string        `json:"-"`
	DB          int           `json:"db"`
	SnapshotTTL time.Duration `json:"snapshot_ttl"`
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecretKey        string        `json:"-"`
	JWTIssuer           string        `json:"jwt_issuer"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	PasswordMinLength   int           `json:"password_min_length"`
	OTPTTL              time.Duration `json:"otp_ttl"`
	Admin               AdminConfig   `json:"admin"`
}

// AdminConfig holds admin user configuration
type AdminConfig struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// A missing .env is fine, variables may come from the environment directly.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URI:            getEnv("MONGODB_URI", ""),
			Name:           getEnv("DB_NAME", "flood"),
			ConnectTimeout: getDuration("MONGODB_CONNECT_TIMEOUT", 20*time.Second),
		},
		ThingSpeak: ThingSpeakConfig{
			BaseURL:         getEnv("THINGSPEAK_BASE_URL", "https://api.thingspeak.com"),
			APIKey:          getEnv("THINGSPEAK_API_KEY", ""),
			Results:         getInt("THINGSPEAK_RESULTS", 10),
			Timeout:         getDuration("THINGSPEAK_TIMEOUT", 8*time.Second),
			MaxRetries:      getInt("THINGSPEAK_MAX_RETRIES", 1),
			RetryDelay:      getDuration("THINGSPEAK_RETRY_DELAY", 500*time.Millisecond),
			BreakerFailures: getInt("THINGSPEAK_BREAKER_FAILURES", 5),
			BreakerReset:    getDuration("THINGSPEAK_BREAKER_RESET", 60*time.Second),
		},
		RainGauge: RainGaugeConfig{
			ChannelID: getEnv("RAIN_CHANNEL_ID", "2831972"),
			APIKey:    getEnv("RAIN_API_KEY", ""),
			Results:   getInt("RAIN_RESULTS", 2),
		},
		Alert: AlertConfig{
			Field:               getInt("ALERT_FIELD", 5),
			RadiusKm:            getFloat("ALERT_RADIUS_KM", 10),
			Message:             getEnv("ALERT_MESSAGE", defaultAlertMessage),
			ReadingRuleEnabled:  getBool("ALERT_READING_RULE_ENABLED", false),
			WaterLevelThreshold: getFloat("ALERT_WATER_LEVEL_THRESHOLD", 0),
			RainThreshold:       getInt("ALERT_RAIN_THRESHOLD", 1),
		},
		Scheduler: SchedulerConfig{
			FetchInterval:     getDuration("FETCH_INTERVAL", 20*time.Second),
			AlertInterval:     getDuration("ALERT_INTERVAL", 20*time.Second),
			BroadcastInterval: getDuration("BROADCAST_INTERVAL", 5*time.Second),
			SkipOverlap:       getBool("SCHEDULER_SKIP_OVERLAP", true),
		},
		Email: EmailConfig{
			Enabled:  getBool("NOTIFY_EMAIL_ENABLED", true),
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", getEnv("SMTP_USER", "")),
			Subject:  getEnv("SMTP_SUBJECT", "Alerts"),
		},
		SMS: SMSConfig{
			Enabled:     getBool("NOTIFY_SMS_ENABLED", true),
			URL:         getEnv("NOTIFY_LK_URL", "https://app.notify.lk/api/v1/send"),
			UserID:      getEnv("NOTIFY_LK_USER_ID", ""),
			APIKey:      getEnv("NOTIFY_LK_API_KEY", ""),
			SenderID:    getEnv("NOTIFY_LK_SENDER_ID", "NotifyDEMO"),
			CountryCode: getEnv("SMS_COUNTRY_CODE", "94"),
			Timeout:     getDuration("SMS_TIMEOUT", 10*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerHost:  getEnv("BROKER_HOST", ""),
			BrokerPort:  getInt("BROKER_PORT", 1883),
			BrokerUser:  getEnv("BROKER_USER", ""),
			BrokerPass:  getEnv("BROKER_PASS", ""),
			UseTLS:      getBool("BROKER_TLS", false),
			CACertPath:  getEnv("BROKER_CA_FILE", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "flood"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "flood-alert-server"),
			KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getInt("REDIS_DB", 0),
			SnapshotTTL: getDuration("SNAPSHOT_TTL", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecretKey:        getEnv("JWT_SECRET_KEY", "change-this-secret-in-production"),
			JWTIssuer:           getEnv("JWT_ISSUER", "flood-api"),
			AccessTokenDuration: getDuration("JWT_ACCESS_TOKEN_DURATION", time.Hour),
			PasswordMinLength:   getInt("PASSWORD_MIN_LENGTH", 6),
			OTPTTL:              getDuration("OTP_TTL", time.Hour),
			Admin: AdminConfig{
				Username: getEnv("ADMIN_USERNAME", "admin"),
				Email:    getEnv("ADMIN_EMAIL", "admin@example.com"),
				Password: getEnv("ADMIN_PASSWORD", "admin123"),
			},
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.ThingSpeak.APIKey == "" {
		return fmt.Errorf("THINGSPEAK_API_KEY is required")
	}
	if c.ThingSpeak.Results < 1 || c.ThingSpeak.Results > 8000 {
		return fmt.Errorf("THINGSPEAK_RESULTS must be between 1 and 8000, got %d", c.ThingSpeak.Results)
	}
	if c.ThingSpeak.Timeout <= 0 {
		return fmt.Errorf("THINGSPEAK_TIMEOUT must be positive")
	}
	if c.ThingSpeak.MaxRetries < 0 {
		return fmt.Errorf("THINGSPEAK_MAX_RETRIES must not be negative")
	}
	if c.Alert.Field < 1 || c.Alert.Field > 8 {
		return fmt.Errorf("ALERT_FIELD must be between 1 and 8, got %d", c.Alert.Field)
	}
	if c.Alert.RadiusKm <= 0 {
		return fmt.Errorf("ALERT_RADIUS_KM must be positive")
	}
	if c.Scheduler.FetchInterval <= 0 || c.Scheduler.AlertInterval <= 0 || c.Scheduler.BroadcastInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	if c.Auth.JWTSecretKey == "change-this-secret-in-production" {
		log.Println("WARNING: Using default JWT secret key. Change JWT_SECRET_KEY in production!")
	}
	if c.Auth.PasswordMinLength < 6 {
		return fmt.Errorf("password minimum length must be at least 6")
	}
	return nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// MQTTEnabled reports whether a broker is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.BrokerHost != ""
}

// RedisEnabled reports whether the snapshot cache is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return floatValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
