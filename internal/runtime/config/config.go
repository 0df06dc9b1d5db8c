package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Environment keys consumed by the runtime. RuntimeAPI is injected by the
// platform; the handler keys feed the resolver's fallback chain.
const (
	EnvRuntimeAPI         = "AWS_LAMBDA_RUNTIME_API"
	EnvDefaultHandler     = "DEFAULT_HANDLER"
	EnvHandler            = "_HANDLER"
	EnvFunctionDefinition = "FUNCTION_DEFINITION"
)

// DefaultRuntimeVersion is the fixed version segment of the control
// protocol URLs.
const DefaultRuntimeVersion = "2018-06-01"

// Config groups the settings required to run the event loop against a
// control endpoint.
type Config struct {
	// RuntimeAPI is the host:port of the control endpoint
	// (AWS_LAMBDA_RUNTIME_API). Required.
	RuntimeAPI string

	// RuntimeVersion overrides the protocol version segment. Defaults to
	// DefaultRuntimeVersion when empty.
	RuntimeVersion string

	// Resolver identifiers, tried in this order (an empty lookup between
	// Handler and FunctionDefinition selects the registry default).
	DefaultHandler     string
	Handler            string
	FunctionDefinition string

	// ResponseTimeout bounds the response/error POSTs. The next-event poll
	// is a long poll and is never bounded by this value. Zero means no
	// timeout beyond the HTTP client's own behaviour.
	ResponseTimeout time.Duration

	// Transient poll failures back off exponentially between retries.
	// Zero values fall back to library defaults.
	PollBackoffInitialInterval time.Duration
	PollBackoffMaxInterval     time.Duration

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	MetricsPort int
}

// FromEnv builds a Config from the documented environment keys.
func FromEnv() *Config {
	return &Config{
		RuntimeAPI:         os.Getenv(EnvRuntimeAPI),
		DefaultHandler:     os.Getenv(EnvDefaultHandler),
		Handler:            os.Getenv(EnvHandler),
		FunctionDefinition: os.Getenv(EnvFunctionDefinition),
	}
}

// Version returns the protocol version segment to use in control URLs.
func (c *Config) Version() string {
	if c.RuntimeVersion == "" {
		return DefaultRuntimeVersion
	}
	return c.RuntimeVersion
}

func (c Config) String() string {
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// Validate checks that the configuration can drive an event loop.
func (c *Config) Validate() error {
	var errs []error

	if c.RuntimeAPI == "" {
		errs = append(errs, fmt.Errorf("runtime API endpoint is required (%s)", EnvRuntimeAPI))
	}
	errs = append(errs, c.validateBackoff()...)
	errs = append(errs, c.validatePorts()...)

	return errors.Join(errs...)
}

func (c *Config) validateBackoff() []error {
	var errs []error
	if c.PollBackoffInitialInterval < 0 {
		errs = append(errs, errors.New("poll backoff: initial interval cannot be negative"))
	}
	if c.PollBackoffMaxInterval < 0 {
		errs = append(errs, errors.New("poll backoff: max interval cannot be negative"))
	}
	if c.PollBackoffInitialInterval > 0 && c.PollBackoffMaxInterval > 0 &&
		c.PollBackoffInitialInterval > c.PollBackoffMaxInterval {
		errs = append(errs, errors.New("poll backoff: initial interval cannot exceed max interval"))
	}
	if c.ResponseTimeout < 0 {
		errs = append(errs, errors.New("response timeout cannot be negative"))
	}
	return errs
}

func (c *Config) validatePorts() []error {
	var errs []error
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
