// Package config loads deployment configuration for the session engine:
// a YAML file for tunables and environment variables (optionally from a
// .env file) for provider credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete deployment configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Audio     AudioConfig     `yaml:"audio"`
	Providers ProvidersConfig `yaml:"providers"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig describes the listener accepting session connections.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// EngineConfig tunes turn taking and generation behaviour.
type EngineConfig struct {
	Instructions         string `yaml:"instructions"`
	GreetingInstructions string `yaml:"greeting_instructions"`
	SilenceThresholdMs   int    `yaml:"silence_threshold_ms"`
	InterruptDebounceMs  int    `yaml:"interrupt_debounce_ms"`
	ToolTimeoutMs        int    `yaml:"tool_timeout_ms"`
	IngestQueueSize      int    `yaml:"ingest_queue_size"`
	PreemptiveGeneration bool   `yaml:"preemptive_generation"`
}

// AudioConfig describes the session audio format.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Encoding   string `yaml:"encoding"`
}

// ProvidersConfig names the external speech and model services. API keys
// never live in the YAML file; they come from the environment.
type ProvidersConfig struct {
	LLMModel    string `yaml:"llm_model"`
	STTModel    string `yaml:"stt_model"`
	STTLanguage string `yaml:"stt_language"`
	TTSVoice    string `yaml:"tts_voice"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Credentials holds provider API keys pulled from the environment.
type Credentials struct {
	OpenAIKey   string
	GeminiKey   string
	DeepgramKey string
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadCredentials reads provider keys from the environment, honouring a
// .env file when one is present.
func LoadCredentials() Credentials {
	_ = godotenv.Load()

	return Credentials{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		DeepgramKey: os.Getenv("DEEPGRAM_API_KEY"),
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Engine.SilenceThresholdMs == 0 {
		c.Engine.SilenceThresholdMs = 700
	}
	if c.Engine.InterruptDebounceMs == 0 {
		c.Engine.InterruptDebounceMs = 120
	}
	if c.Engine.ToolTimeoutMs == 0 {
		c.Engine.ToolTimeoutMs = 10_000
	}
	if c.Engine.IngestQueueSize == 0 {
		c.Engine.IngestQueueSize = 64
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Encoding == "" {
		c.Audio.Encoding = "linear16"
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("providers config: %w", err)
	}
	return nil
}

// Validate checks that the provider identifiers a session cannot run without
// are present.
func (p *ProvidersConfig) Validate() error {
	if p.LLMModel == "" {
		return fmt.Errorf("llm_model must not be empty")
	}
	if p.TTSVoice == "" {
		return fmt.Errorf("tts_voice must not be empty")
	}
	return nil
}

// Validate validates engine tunables.
func (e *EngineConfig) Validate() error {
	if e.SilenceThresholdMs < 0 {
		return fmt.Errorf("silence_threshold_ms cannot be negative, got %d", e.SilenceThresholdMs)
	}
	if e.InterruptDebounceMs < 0 {
		return fmt.Errorf("interrupt_debounce_ms cannot be negative, got %d", e.InterruptDebounceMs)
	}
	if e.ToolTimeoutMs < 0 {
		return fmt.Errorf("tool_timeout_ms cannot be negative, got %d", e.ToolTimeoutMs)
	}
	if e.IngestQueueSize < 1 {
		return fmt.Errorf("ingest_queue_size must be at least 1, got %d", e.IngestQueueSize)
	}
	return nil
}

// Validate validates the audio format.
func (a *AudioConfig) Validate() error {
	switch a.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 24000, 32000, 48000], got %d", a.SampleRate)
	}

	switch a.Encoding {
	case "linear16", "alaw", "mulaw":
	default:
		return fmt.Errorf("encoding must be one of [linear16, alaw, mulaw], got %q", a.Encoding)
	}

	if (a.Encoding == "alaw" || a.Encoding == "mulaw") && a.SampleRate != 8000 {
		return fmt.Errorf("%s requires a sample rate of 8000 Hz, got %d", a.Encoding, a.SampleRate)
	}
	return nil
}

// SilenceThreshold returns the end-of-turn silence window as a Duration.
func (e *EngineConfig) SilenceThreshold() time.Duration {
	return time.Duration(e.SilenceThresholdMs) * time.Millisecond
}

// InterruptDebounce returns the barge-in debounce window as a Duration.
func (e *EngineConfig) InterruptDebounce() time.Duration {
	return time.Duration(e.InterruptDebounceMs) * time.Millisecond
}

// ToolTimeout returns the tool dispatch deadline as a Duration.
func (e *EngineConfig) ToolTimeout() time.Duration {
	return time.Duration(e.ToolTimeoutMs) * time.Millisecond
}
