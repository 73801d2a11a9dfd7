package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid configuration",
			config: Config{
				Engine: EngineConfig{
					SilenceThresholdMs:  700,
					InterruptDebounceMs: 120,
					ToolTimeoutMs:       10_000,
					IngestQueueSize:     64,
				},
				Audio: AudioConfig{
					SampleRate: 16000,
					Encoding:   "linear16",
				},
				Providers: ProvidersConfig{
					LLMModel: "gpt-4o-mini",
					TTSVoice: "aura-2-thalia-en",
				},
			},
			expectError: false,
		},
		{
			name: "missing llm model",
			config: Config{
				Engine:    EngineConfig{IngestQueueSize: 64},
				Audio:     AudioConfig{SampleRate: 16000, Encoding: "linear16"},
				Providers: ProvidersConfig{TTSVoice: "aura-2-thalia-en"},
			},
			expectError: true,
			errorMsg:    "llm_model must not be empty",
		},
		{
			name: "missing tts voice",
			config: Config{
				Engine:    EngineConfig{IngestQueueSize: 64},
				Audio:     AudioConfig{SampleRate: 16000, Encoding: "linear16"},
				Providers: ProvidersConfig{LLMModel: "gpt-4o-mini"},
			},
			expectError: true,
			errorMsg:    "tts_voice must not be empty",
		},
		{
			name: "negative silence threshold",
			config: Config{
				Engine: EngineConfig{
					SilenceThresholdMs: -100,
					IngestQueueSize:    64,
				},
				Audio: AudioConfig{SampleRate: 16000, Encoding: "linear16"},
			},
			expectError: true,
			errorMsg:    "silence_threshold_ms cannot be negative",
		},
		{
			name: "zero ingest queue",
			config: Config{
				Engine: EngineConfig{IngestQueueSize: 0},
				Audio:  AudioConfig{SampleRate: 16000, Encoding: "linear16"},
			},
			expectError: true,
			errorMsg:    "ingest_queue_size must be at least 1",
		},
		{
			name: "unsupported sample rate",
			config: Config{
				Engine: EngineConfig{IngestQueueSize: 64},
				Audio:  AudioConfig{SampleRate: 44100, Encoding: "linear16"},
			},
			expectError: true,
			errorMsg:    "sample_rate must be one of",
		},
		{
			name: "mulaw at wideband rate",
			config: Config{
				Engine: EngineConfig{IngestQueueSize: 64},
				Audio:  AudioConfig{SampleRate: 16000, Encoding: "mulaw"},
			},
			expectError: true,
			errorMsg:    "mulaw requires a sample rate of 8000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, "config.yaml")
	configYAML := `
engine:
  instructions: "You are a helpful phone agent."
  silence_threshold_ms: 900
audio:
  sample_rate: 8000
  encoding: mulaw
providers:
  llm_model: gpt-4o-mini
  stt_model: nova-3
  tts_voice: aura-2-thalia-en
metrics:
  enabled: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Engine.SilenceThreshold() != 900*time.Millisecond {
		t.Errorf("expected 900ms silence threshold, got %s", config.Engine.SilenceThreshold())
	}
	// Unset tunables fall back to defaults.
	if config.Engine.InterruptDebounce() != 120*time.Millisecond {
		t.Errorf("expected default 120ms debounce, got %s", config.Engine.InterruptDebounce())
	}
	if config.Engine.ToolTimeout() != 10*time.Second {
		t.Errorf("expected default 10s tool timeout, got %s", config.Engine.ToolTimeout())
	}
	if config.Engine.IngestQueueSize != 64 {
		t.Errorf("expected default ingest queue size 64, got %d", config.Engine.IngestQueueSize)
	}
	if config.Metrics.Address != ":9090" {
		t.Errorf("expected default metrics address :9090, got %q", config.Metrics.Address)
	}
	if config.Server.Address != ":8080" {
		t.Errorf("expected default server address :8080, got %q", config.Server.Address)
	}
	if config.Providers.TTSVoice != "aura-2-thalia-en" {
		t.Errorf("unexpected tts voice %q", config.Providers.TTSVoice)
	}
}

func TestConfigLoadRejectsInvalidFile(t *testing.T) {
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, "config.yaml")
	configYAML := `
engine:
  silence_threshold_ms: -5
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative silence threshold")
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
