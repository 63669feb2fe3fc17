package config

// TracingConfig holds OTLP trace export settings.
//
// Traces are exported to a local OTLP HTTP collector (default
// localhost:4318); the collector handles authentication, buffering, and
// forwarding to the backend.
type TracingConfig struct {
	// Enabled turns trace export on. Default: false.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	// ServiceName identifies this service in traces.
	ServiceName string `mapstructure:"service_name" json:"service_name"`

	// Environment tags traces with a deployment environment.
	Environment string `mapstructure:"environment" json:"environment"`
}
