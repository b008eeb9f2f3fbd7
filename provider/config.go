package provider

import "fmt"

// Default generation parameters applied when a Config does not set them.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Temperature bounds accepted by the backends.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// Config bundles the generation parameters of one request. It is immutable
// after construction; build it with NewConfig.
//
// The zero Config is valid and resolves to the defaults with no model,
// meaning each provider picks its own default model.
type Config struct {
	model       string
	temperature *float64
	maxTokens   *int
	params      map[string]any
}

// ConfigOption adjusts a Config under construction.
type ConfigOption func(*Config)

// WithTemperature sets the sampling temperature. Valid range is [0, 2].
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.temperature = &t
	}
}

// WithMaxTokens caps the response length. Must be positive.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.maxTokens = &n
	}
}

// WithParam adds one backend-specific parameter passed through verbatim
// (e.g. "top_p", "presence_penalty"). Values are not validated.
func WithParam(key string, value any) ConfigOption {
	return func(c *Config) {
		if c.params == nil {
			c.params = make(map[string]any)
		}
		c.params[key] = value
	}
}

// WithParams adds a set of pass-through parameters. Later options win on
// key collisions.
func WithParams(params map[string]any) ConfigOption {
	return func(c *Config) {
		if len(params) == 0 {
			return
		}
		if c.params == nil {
			c.params = make(map[string]any, len(params))
		}
		for k, v := range params {
			c.params[k] = v
		}
	}
}

// NewConfig builds a validated Config. An empty model selects the
// provider's default model at request time. Temperature outside [0, 2] or
// a non-positive max token count fail with a ConfigError before any
// network interaction.
func NewConfig(model string, opts ...ConfigOption) (Config, error) {
	c := Config{model: model}
	for _, opt := range opts {
		opt(&c)
	}

	if c.temperature != nil && (*c.temperature < minTemperature || *c.temperature > maxTemperature) {
		return Config{}, &ConfigError{
			Msg: fmt.Sprintf("temperature %v out of range [%v, %v]", *c.temperature, minTemperature, maxTemperature),
		}
	}
	if c.maxTokens != nil && *c.maxTokens <= 0 {
		return Config{}, &ConfigError{
			Msg: fmt.Sprintf("max tokens must be positive, got %d", *c.maxTokens),
		}
	}

	return c, nil
}

// MustConfig is NewConfig for fixed configurations known at compile
// time; it panics on invalid options.
func MustConfig(model string, opts ...ConfigOption) Config {
	c, err := NewConfig(model, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Model returns the configured model name, empty for provider default.
func (c Config) Model() string {
	return c.model
}

// Temperature returns the configured temperature, or DefaultTemperature
// when unset.
func (c Config) Temperature() float64 {
	if c.temperature == nil {
		return DefaultTemperature
	}
	return *c.temperature
}

// MaxTokens returns the configured response cap, or DefaultMaxTokens when
// unset.
func (c Config) MaxTokens() int {
	if c.maxTokens == nil {
		return DefaultMaxTokens
	}
	return *c.maxTokens
}

// Params returns a copy of the pass-through parameters, nil when none are
// set.
func (c Config) Params() map[string]any {
	if len(c.params) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}
