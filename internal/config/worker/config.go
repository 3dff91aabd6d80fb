package worker_config

import (
	"time"

	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/outbox"
	pginfra "github.com/NordCoder/Shortly/internal/repository/postgres"
	"github.com/NordCoder/Shortly/internal/services/worker/sweeper"
)

type DB struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (d *DB) AsPGConfig() pginfra.Config {
	return pginfra.Config{
		URL:               d.DSN,
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		QueryTimeout:      d.QueryTimeout,
	}
}

type KafkaCfg struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
}

type SweeperCfg struct {
	Enable bool          `mapstructure:"enable"`
	Tick   time.Duration `mapstructure:"tick"`
	Batch  int           `mapstructure:"batch"`
	Grace  time.Duration `mapstructure:"grace"`
}

func (s *SweeperCfg) AsRunnerConfig() sweeper.Config {
	return sweeper.Config{Tick: s.Tick, Batch: s.Batch}
}

type OutboxCfg struct {
	Enable        bool          `mapstructure:"enable"`
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (o *OutboxCfg) AsRunnerConfig() outbox.Config {
	return outbox.Config{
		Workers:       o.Workers,
		BatchSize:     o.BatchSize,
		WaitTime:      o.WaitTime,
		InProgressTTL: o.InProgressTTL,
	}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Config struct {
	DB          DB         `mapstructure:"db"`
	Kafka       KafkaCfg   `mapstructure:"kafka"`
	Sweeper     SweeperCfg `mapstructure:"sweeper"`
	Outbox      OutboxCfg  `mapstructure:"outbox"`
	OTEL        OTEL       `mapstructure:"otel"`
	MetricsAddr string     `mapstructure:"metrics_addr"`
	LogLevel    string     `mapstructure:"log_level"`
	LogPretty   bool       `mapstructure:"log_pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.LogLevel, Pretty: c.LogPretty, App: "shortly/worker"}
}
