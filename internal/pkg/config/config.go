package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Both binaries share it; each
// reads the fields it needs.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Station identity. Grid is the operator's own square, used to compute
	// distances to reporting stations.
	StationCallsign string `env:"STATION_CALLSIGN"`
	StationGrid     string `env:"STATION_GRID"`

	// Comma-separated group targets to archive. Traffic directed at any
	// other @group is dropped at capture.
	MonitoredGroups string `env:"MONITORED_GROUPS" envDefault:"@AMRRON"`

	// JS8Call TCP API.
	JS8CallAddr       string        `env:"JS8CALL_ADDR" envDefault:"127.0.0.1:2442"`
	JS8CallInactivity time.Duration `env:"JS8CALL_INACTIVITY_MAX" envDefault:"5m"`

	IngestServerAddr string `env:"INGEST_SERVER_ADDR" envDefault:":8080"`
	APIServerAddr    string `env:"API_SERVER_ADDR" envDefault:":8081"`
	AdminServerAddr  string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	APIKey           string `env:"API_KEY"`

	MaxFrameSize int64 `env:"MAX_FRAME_SIZE_BYTES" envDefault:"4096"`

	RedisAddr       string        `env:"REDIS_ADDR,required"`
	FrameStream     string        `env:"FRAME_STREAM" envDefault:"frames"`
	FrameDLQStream  string        `env:"FRAME_DLQ_STREAM" envDefault:"frames:dlq"`
	ConsumerGroup   string        `env:"CONSUMER_GROUP" envDefault:"frame-decoders"`
	ConsumerName    string        `env:"CONSUMER_NAME" envDefault:"archiver-1"`
	DecodeBatchSize int64         `env:"DECODE_BATCH_SIZE" envDefault:"32"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`

	WALPath        string `env:"WAL_PATH" envDefault:"./wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"16777216"`   // 16MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"268435456"` // 256MB

	// Archive backend: "sqlite" or "postgres".
	ArchiveDriver string `env:"ARCHIVE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./statwatch.db"`
	PostgresURL   string `env:"POSTGRES_URL"`

	// Budget for the last-known-grid lookup of a report that arrived
	// without a locator. On expiry the record is archived as unknown.
	LookupTimeout  time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"2s"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"10m"`

	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"statwatch"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
