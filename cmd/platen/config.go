package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platenhq/platen/prompt"
	"github.com/platenhq/platen/provider"
	"github.com/platenhq/platen/worker"
)

// DefaultConfigFile is looked up in the working directory when no
// --config flag is given.
const DefaultConfigFile = "platen.yaml"

// Config is the optional YAML config file. Command line flags win
// over its values. ${VAR} references are expanded from the
// environment before parsing.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Data     DataConfig     `yaml:"data"`
	Output   OutputConfig   `yaml:"output"`
}

type DefaultsConfig struct {
	Provider       string   `yaml:"provider"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      *int     `yaml:"max_tokens"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
	RequestTimeout string   `yaml:"request_timeout"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
}

type PromptConfig struct {
	Type               string `yaml:"type"`
	CustomInstructions string `yaml:"custom_instructions"`
	Template           string `yaml:"template"`
}

type DataConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	Limit   int    `yaml:"limit"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// loadConfig reads the config file at path. An empty path falls back
// to DefaultConfigFile, which may be absent; an explicit path must
// exist.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			return &Config{}, nil
		}
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &config, nil
}

func addWorkerFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "provider name (openai, anthropic, gemini)")
	cmd.Flags().String("model", "", "model name (empty for provider default)")
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().Int("max-tokens", 0, "response token cap")
	cmd.Flags().Int("concurrency", 0, "maximum concurrent requests")
	cmd.Flags().String("request-timeout", "", "per-request timeout (e.g. 30s)")
	cmd.Flags().Float64("rate-limit", 0, "maximum requests per second (0 disables)")
}

func addPromptFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "prompt type (analyze, classify, custom, extract, summarize)")
	cmd.Flags().String("instructions", "", "custom prompt instructions (required for --type custom)")
	cmd.Flags().String("template", "", "file with an override prompt template")
}

// stringSetting resolves flag > config > fallback.
func stringSetting(cmd *cobra.Command, name, configured, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if configured != "" {
		return configured
	}
	return fallback
}

func intSetting(cmd *cobra.Command, name string, configured, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	if configured != 0 {
		return configured
	}
	return fallback
}

// newWorker assembles a Worker from the config file and the command's
// flags.
func newWorker(cmd *cobra.Command, cfg *Config) (*worker.Worker, error) {
	temp := worker.DefaultTemperature
	if cfg.Defaults.Temperature != nil {
		temp = *cfg.Defaults.Temperature
	}
	if cmd.Flags().Changed("temperature") {
		temp, _ = cmd.Flags().GetFloat64("temperature")
	}

	maxTokens := worker.DefaultMaxTokens
	if cfg.Defaults.MaxTokens != nil {
		maxTokens = *cfg.Defaults.MaxTokens
	}
	if cmd.Flags().Changed("max-tokens") {
		maxTokens, _ = cmd.Flags().GetInt("max-tokens")
	}

	pcfg, err := provider.NewConfig(
		stringSetting(cmd, "model", cfg.Defaults.Model, ""),
		provider.WithTemperature(temp),
		provider.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, err
	}

	opts := []worker.Option{
		worker.WithProvider(stringSetting(cmd, "provider", cfg.Defaults.Provider, worker.DefaultProviderName)),
		worker.WithConfig(pcfg),
	}

	if n := intSetting(cmd, "concurrency", cfg.Defaults.MaxConcurrent, 0); n > 0 {
		opts = append(opts, worker.WithMaxConcurrent(n))
	}

	if raw := stringSetting(cmd, "request-timeout", cfg.Defaults.RequestTimeout, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing request timeout: %w", err)
		}
		opts = append(opts, worker.WithRequestTimeout(d))
	}

	rateLimit := cfg.Defaults.RateLimit
	if cmd.Flags().Changed("rate-limit") {
		rateLimit, _ = cmd.Flags().GetFloat64("rate-limit")
	}
	if rateLimit > 0 {
		burst := cfg.Defaults.RateBurst
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, worker.WithRateLimit(rateLimit, burst))
	}

	return worker.New(worker.DefaultRegistry(), opts...), nil
}

// newSelection assembles the prompt selection from the config file
// and the command's flags. The --template flag names a file holding
// the template; the config value carries it inline.
func newSelection(cmd *cobra.Command, cfg *Config) (prompt.Selection, error) {
	typ, err := prompt.ParseType(stringSetting(cmd, "type", cfg.Prompt.Type, string(prompt.TypeAnalyze)))
	if err != nil {
		return prompt.Selection{}, err
	}

	override := cfg.Prompt.Template
	if cmd.Flags().Changed("template") {
		path, _ := cmd.Flags().GetString("template")
		data, err := os.ReadFile(path)
		if err != nil {
			return prompt.Selection{}, fmt.Errorf("reading template: %w", err)
		}
		override = string(data)
	}

	return prompt.Selection{
		Type:               typ,
		CustomInstructions: stringSetting(cmd, "instructions", cfg.Prompt.CustomInstructions, ""),
		Override:           override,
	}, nil
}
