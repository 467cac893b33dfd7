package config

import "github.com/kelseyhightower/envconfig"

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"hall-reservation"`
}

// LoadTracingConfig reads the OTEL_* variables.
func LoadTracingConfig() (TracingConfig, error) {
	var c TracingConfig
	err := envconfig.Process("", &c)
	return c, err
}
