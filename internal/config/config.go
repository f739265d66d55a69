// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration. Precedence is
// ENV > file > defaults; the file is strict YAML.
package config

import (
	"time"

	"github.com/ManuGH/rundownd/internal/ingest/snapshot"
	"github.com/ManuGH/rundownd/internal/telemetry"
)

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	Version  string `yaml:"-"`
	LogLevel string `yaml:"logLevel"`
	// StudioID owns the rundowns ingested from the spool.
	StudioID string `yaml:"studioId"`

	HTTP      HTTPConfig       `yaml:"http"`
	Timing    TimingConfig     `yaml:"timing"`
	Snapshot  snapshot.Config  `yaml:"snapshot"`
	Spool     SpoolConfig      `yaml:"spool"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// HTTPConfig configures the operations endpoint.
type HTTPConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is the number of requests per minute and client IP; 0 disables it.
	RateLimit       int           `yaml:"rateLimit"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// TimingConfig configures the timing ticker.
type TimingConfig struct {
	RefreshInterval        time.Duration `yaml:"refreshInterval"`
	DefaultDisplayDuration time.Duration `yaml:"defaultDisplayDuration"`
}

// SpoolConfig configures the running order spool directory. An empty Dir
// disables the spool.
type SpoolConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// Defaults returns the configuration used when neither file nor
// environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		StudioID: "studio0",
		HTTP: HTTPConfig{
			ListenAddr:      ":8088",
			RateLimit:       600,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Timing: TimingConfig{
			RefreshInterval:        time.Second / 60,
			DefaultDisplayDuration: 3 * time.Second,
		},
		Snapshot: snapshot.Config{
			Backend: "memory",
			Redis:   snapshot.RedisConfig{KeyPrefix: "rundownd:snapshot:"},
		},
		Spool: SpoolConfig{Debounce: 250 * time.Millisecond},
		Telemetry: telemetry.Config{
			ServiceName:  "rundownd",
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
