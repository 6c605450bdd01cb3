package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "TRADEFLOW_"

func applyEnv(c *Config) {
	c.Queue.Capacity = getEnvInt("QUEUE_CAPACITY", c.Queue.Capacity)
	c.Pool.Workers = getEnvInt("POOL_WORKERS", c.Pool.Workers)
	c.Pool.MaxWorkers = getEnvInt("POOL_MAX_WORKERS", c.Pool.MaxWorkers)

	c.Enrichment.Pair = getEnvString("ENRICH_PAIR", c.Enrichment.Pair)
	c.Enrichment.Timeout = getEnvDuration("ENRICH_TIMEOUT", c.Enrichment.Timeout)
	c.Enrichment.Seed = getEnvInt64("ENRICH_SEED", c.Enrichment.Seed)
	c.Enrichment.FailureRate = getEnvFloat("ENRICH_FAILURE_RATE", c.Enrichment.FailureRate)
	c.Enrichment.MaxDelay = getEnvDuration("ENRICH_MAX_DELAY", c.Enrichment.MaxDelay)

	c.Retry.Attempts = getEnvInt("RETRY_ATTEMPTS", c.Retry.Attempts)
	c.Monitor.Interval = getEnvDuration("MONITOR_INTERVAL", c.Monitor.Interval)
	c.Aggregator.Interval = getEnvDuration("AGGREGATOR_INTERVAL", c.Aggregator.Interval)
	c.Aggregator.Scope = getEnvString("AGGREGATOR_SCOPE", c.Aggregator.Scope)

	c.Producer.Interval = getEnvDuration("PRODUCER_INTERVAL", c.Producer.Interval)
	c.Producer.Limit = getEnvInt("PRODUCER_LIMIT", c.Producer.Limit)

	c.Store.Driver = getEnvString("STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnvString("STORE_DSN", c.Store.DSN)
	c.Store.Host = getEnvString("STORE_HOST", c.Store.Host)
	c.Store.Port = getEnvInt("STORE_PORT", c.Store.Port)
	c.Store.User = getEnvString("STORE_USER", c.Store.User)
	c.Store.Password = getEnvString("STORE_PASSWORD", c.Store.Password)
	c.Store.Database = getEnvString("STORE_DATABASE", c.Store.Database)

	c.Kafka.Broker = getEnvString("KAFKA_BROKER", c.Kafka.Broker)
	c.Kafka.Topic = getEnvString("KAFKA_TOPIC", c.Kafka.Topic)
	c.Journal.Dir = getEnvString("JOURNAL_DIR", c.Journal.Dir)
	c.HTTP.Addr = getEnvString("HTTP_ADDR", c.HTTP.Addr)
	c.Profiling.ServerAddress = getEnvString("PYROSCOPE_ADDRESS", c.Profiling.ServerAddress)

	c.Features.EnableProducer = getEnvBool("ENABLE_PRODUCER", c.Features.EnableProducer)
	c.Features.EnableKafka = getEnvBool("ENABLE_KAFKA", c.Features.EnableKafka)
	c.Features.EnableHTTP = getEnvBool("ENABLE_HTTP", c.Features.EnableHTTP)
	c.Features.EnableProfiling = getEnvBool("ENABLE_PROFILING", c.Features.EnableProfiling)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func getEnvString(key, fallback string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := lookup(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := lookup(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback Duration) Duration {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return Duration(d)
		}
	}
	return fallback
}
