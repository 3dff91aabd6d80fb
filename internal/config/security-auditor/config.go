package security_auditor_config

import (
	"time"

	"github.com/NordCoder/Shortly/internal/obs"
	pginfra "github.com/NordCoder/Shortly/internal/repository/postgres"
	auditor "github.com/NordCoder/Shortly/internal/services/security-auditor"
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

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	Partitions    int      `mapstructure:"partitions"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
	// Desk is the security desk mailbox; empty turns alerts off.
	Desk string `mapstructure:"desk"`
}

func (s *SMTP) AsMailerConfig() auditor.MailerConfig {
	return auditor.MailerConfig{
		Addr:       s.Addr,
		User:       s.User,
		Password:   s.Password,
		From:       s.From,
		UseTLS:     s.UseTLS,
		Timeout:    s.Timeout,
		SubjPrefix: s.SubjPrefix,
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

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	DB       DB      `mapstructure:"db"`
	In       KafkaIn `mapstructure:"kafka_in"`
	SMTP     SMTP    `mapstructure:"smtp"`
	OTEL     OTEL    `mapstructure:"otel"`
	Server   Server  `mapstructure:"server"`
	LogLevel string  `mapstructure:"log_level"`
	Pretty   bool    `mapstructure:"log_pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.LogLevel, Pretty: c.Pretty, App: "shortly/security-auditor"}
}
