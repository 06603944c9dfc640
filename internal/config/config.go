// Package config loads service settings from environment variables with an
// optional YAML file underneath them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OTLP exporter protocols.
const (
	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

const defaultSQLiteDSN = "file:flood_events.db?_foreign_keys=on"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	StoreDriver string
	DatabaseURL string

	// Empty GeometryFile means the embedded Ghana document.
	GeometryFile string
	AxisOrder    domain.AxisOrder

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaReportsTopic  string
	KafkaEventsTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	TracingEnabled    bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OTLPInsecure      bool
	TracingSampleRate float64

	// ConfigFile is the YAML file that was loaded, if any.
	ConfigFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
// When CONFIG_FILE names a YAML file its keys fill in for unset variables.
func Load() (*Config, error) {
	k := koanf.New(".")
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	def := func(key, fallback string) string {
		if v := k.String(key); v != "" {
			return v
		}
		return fallback
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	axis, err := domain.ParseAxisOrder(sharedcfg.EnvOrDefault("GEOMETRY_AXIS_ORDER", def("geometry_axis_order", "lnglat")))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOMETRY_AXIS_ORDER: %w", err)
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", def("kafka_enabled", "false"))
	if err != nil {
		return nil, err
	}
	tracingEnabled, err := parseBool("TRACING_ENABLED", def("tracing_enabled", "false"))
	if err != nil {
		return nil, err
	}
	otlpInsecure, err := parseBool("OTEL_EXPORTER_OTLP_INSECURE", def("otel_exporter_otlp_insecure", "true"))
	if err != nil {
		return nil, err
	}
	sampleRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("TRACING_SAMPLE_RATE", def("tracing_sample_rate", "1")), 64)
	if err != nil || sampleRate < 0 || sampleRate > 1 {
		return nil, errors.New("invalid TRACING_SAMPLE_RATE: must be between 0 and 1")
	}

	driver := strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", def("store_driver", DriverSQLite)))
	databaseURL := sharedcfg.EnvOrDefault("DATABASE_URL", k.String("database_url"))
	if databaseURL == "" && driver == DriverSQLite {
		databaseURL = defaultSQLiteDSN
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", def("http_addr", ":8080")),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", def("log_level", "info")),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", def("log_format", "json")),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", def("cors_allowed_origins", "http://localhost:4200"))),

		StoreDriver: driver,
		DatabaseURL: databaseURL,

		GeometryFile: sharedcfg.EnvOrDefault("GEOMETRY_FILE", k.String("geometry_file")),
		AxisOrder:    axis,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", def("kafka_brokers", "localhost:9092"))),
		KafkaReportsTopic:  sharedcfg.EnvOrDefault("KAFKA_REPORTS_TOPIC", def("kafka_reports_topic", "flood-reports")),
		KafkaEventsTopic:   sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", def("kafka_events_topic", "flood-events")),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", def("kafka_group_id", "flood-viewer-api")),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		TracingEnabled:    tracingEnabled,
		OTLPEndpoint:      sharedcfg.EnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", def("otel_exporter_otlp_endpoint", "localhost:4318")),
		OTLPProtocol:      strings.ToLower(sharedcfg.EnvOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", def("otel_exporter_otlp_protocol", ProtocolHTTP))),
		OTLPInsecure:      otlpInsecure,
		TracingSampleRate: sampleRate,

		ConfigFile: configFile,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want memory, sqlite, or postgres", c.StoreDriver)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaReportsTopic == "" {
			return errors.New("KAFKA_REPORTS_TOPIC is required")
		}
		if c.KafkaEventsTopic == "" {
			return errors.New("KAFKA_EVENTS_TOPIC is required")
		}
	}

	switch c.OTLPProtocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return fmt.Errorf("invalid OTEL_EXPORTER_OTLP_PROTOCOL %q: want http or grpc", c.OTLPProtocol)
	}
	return nil
}

func parseBool(key, fallback string) (bool, error) {
	v, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
