package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"

	"tradeflow/internal/position"
	"tradeflow/pkg/exception"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the resolved runtime configuration.
type Config struct {
	Queue      QueueConfig      `json:"queue"`
	Pool       PoolConfig       `json:"pool"`
	Enrichment EnrichmentConfig `json:"enrichment"`
	Retry      RetryConfig      `json:"retry"`
	Monitor    MonitorConfig    `json:"monitor"`
	Aggregator AggregatorConfig `json:"aggregator"`
	Producer   ProducerConfig   `json:"producer"`
	Store      StoreConfig      `json:"store"`
	Kafka      KafkaConfig      `json:"kafka"`
	Journal    JournalConfig    `json:"journal"`
	HTTP       HTTPConfig       `json:"http"`
	Profiling  ProfilingConfig  `json:"profiling"`
	Features   FeatureFlags     `json:"-"`
}

type QueueConfig struct {
	Capacity int `json:"capacity"`
}

type PoolConfig struct {
	Workers    int `json:"workers"`
	MaxWorkers int `json:"maxWorkers"`
}

type EnrichmentConfig struct {
	Pair            string   `json:"pair"`
	Timeout         Duration `json:"timeout"`
	Seed            int64    `json:"seed"`
	FailureRate     float64  `json:"failureRate"`
	MaxDelay        Duration `json:"maxDelay"`
	BreakerFailures int      `json:"breakerFailures"`
	BreakerCooldown Duration `json:"breakerCooldown"`
}

type RetryConfig struct {
	Attempts  int      `json:"attempts"`
	BaseDelay Duration `json:"baseDelay"`
	MaxDelay  Duration `json:"maxDelay"`
}

type MonitorConfig struct {
	Interval Duration `json:"interval"`
}

type AggregatorConfig struct {
	Interval Duration `json:"interval"`
	Scope    string   `json:"scope"`
}

type ProducerConfig struct {
	Interval     Duration `json:"interval"`
	InitialDelay Duration `json:"initialDelay"`
	Limit        int      `json:"limit"`
	Seed         int64    `json:"seed"`
}

type StoreConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
	MaxConns int    `json:"maxConns"`
}

type KafkaConfig struct {
	Broker string `json:"broker"`
	Topic  string `json:"topic"`
}

// JournalConfig enables the on-disk event journal when Dir is set and Kafka is off.
type JournalConfig struct {
	Dir           string   `json:"dir"`
	FlushInterval Duration `json:"flushInterval"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type ProfilingConfig struct {
	ServerAddress string `json:"serverAddress"`
}

// FeatureFlagsConfig captures optional runtime flags as they appear in the file.
type FeatureFlagsConfig struct {
	EnableProducer  *bool `json:"enableProducer"`
	EnableKafka     *bool `json:"enableKafka"`
	EnableHTTP      *bool `json:"enableHttp"`
	EnableProfiling *bool `json:"enableProfiling"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableProducer  bool
	EnableKafka     bool
	EnableHTTP      bool
	EnableProfiling bool
}

// fileConfig mirrors the JSON config layout.
type fileConfig struct {
	Config
	Features FeatureFlagsConfig `json:"features"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Queue: QueueConfig{Capacity: 1000},
		Pool:  PoolConfig{Workers: 5, MaxWorkers: 10},
		Enrichment: EnrichmentConfig{
			Pair:            "EUR/USD",
			Timeout:         Duration(2 * time.Second),
			BreakerFailures: 5,
			BreakerCooldown: Duration(10 * time.Second),
		},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: Duration(50 * time.Millisecond),
			MaxDelay:  Duration(time.Second),
		},
		Monitor:    MonitorConfig{Interval: Duration(15 * time.Second)},
		Aggregator: AggregatorConfig{Interval: Duration(30 * time.Second), Scope: string(position.ScopeDone)},
		Producer: ProducerConfig{
			Interval:     Duration(5 * time.Second),
			InitialDelay: Duration(100 * time.Millisecond),
		},
		Store:   StoreConfig{Driver: StoreMemory},
		Kafka:   KafkaConfig{Broker: "localhost:9092", Topic: "tradeflow.trades"},
		Journal: JournalConfig{FlushInterval: Duration(time.Second)},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Features: FeatureFlags{
			EnableProducer: true,
			EnableHTTP:     true,
		},
	}
}

// Load resolves configuration from defaults, an optional JSON file, an
// optional .env file and TRADEFLOW_* environment variables, in that order.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		file := fileConfig{Config: cfg}
		if err := json.Unmarshal(data, &file); err != nil {
			return Config{}, errors.Wrap(err, "decode config file")
		}
		cfg = file.Config
		cfg.Features = resolveFeatures(cfg.Features, file.Features)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveFeatures(flags FeatureFlags, cfg FeatureFlagsConfig) FeatureFlags {
	if cfg.EnableProducer != nil {
		flags.EnableProducer = *cfg.EnableProducer
	}
	if cfg.EnableKafka != nil {
		flags.EnableKafka = *cfg.EnableKafka
	}
	if cfg.EnableHTTP != nil {
		flags.EnableHTTP = *cfg.EnableHTTP
	}
	if cfg.EnableProfiling != nil {
		flags.EnableProfiling = *cfg.EnableProfiling
	}
	return flags
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Queue.Capacity <= 0 {
		problems = append(problems, fmt.Sprintf("queue.capacity must be > 0, got %d", c.Queue.Capacity))
	}
	if c.Pool.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("pool.workers must be > 0, got %d", c.Pool.Workers))
	}
	if c.Pool.MaxWorkers < c.Pool.Workers {
		problems = append(problems, fmt.Sprintf("pool.maxWorkers (%d) must be >= pool.workers (%d)", c.Pool.MaxWorkers, c.Pool.Workers))
	}
	if c.Enrichment.Timeout <= 0 {
		problems = append(problems, "enrichment.timeout must be > 0")
	}
	if c.Enrichment.FailureRate < 0 || c.Enrichment.FailureRate > 1 {
		problems = append(problems, "enrichment.failureRate must be between 0 and 1")
	}
	if c.Retry.Attempts <= 0 {
		problems = append(problems, "retry.attempts must be > 0")
	}
	if c.Monitor.Interval <= 0 || c.Aggregator.Interval <= 0 || c.Producer.Interval <= 0 {
		problems = append(problems, "monitor, aggregator and producer intervals must be > 0")
	}
	if _, ok := position.ParseScope(c.Aggregator.Scope); !ok {
		problems = append(problems, fmt.Sprintf("aggregator.scope must be done or all, got %q", c.Aggregator.Scope))
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" && c.Store.Database == "" {
			problems = append(problems, "store.dsn or store.database required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q: %s", c.Store.Driver, exception.ErrUnsupportedDriver))
	}
	if c.Features.EnableKafka && (c.Kafka.Broker == "" || c.Kafka.Topic == "") {
		problems = append(problems, "kafka.broker and kafka.topic required when kafka is enabled")
	}
	if c.Journal.FlushInterval < 0 {
		problems = append(problems, "journal.flushInterval must be >= 0")
	}
	if c.Features.EnableProfiling && c.Profiling.ServerAddress == "" {
		problems = append(problems, "profiling.serverAddress required when profiling is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Wrap(exception.ErrInvalidConfig, strings.Join(problems, "; "))
}

// String returns a summary without credentials.
func (c Config) String() string {
	return fmt.Sprintf(
		"Queue{Capacity:%d}, Pool{Workers:%d, Max:%d}, Enrichment{Pair:%s, Timeout:%s}, Store{Driver:%s}, Producer{Enabled:%v}, Kafka{Enabled:%v}, HTTP{Enabled:%v, Addr:%s}",
		c.Queue.Capacity, c.Pool.Workers, c.Pool.MaxWorkers,
		c.Enrichment.Pair, c.Enrichment.Timeout, c.Store.Driver,
		c.Features.EnableProducer, c.Features.EnableKafka,
		c.Features.EnableHTTP, c.HTTP.Addr,
	)
}
