package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 1200*time.Millisecond, cfg.Sequencer.StepDelay)
	assert.Equal(t, 800*time.Millisecond, cfg.Sequencer.ReportDelay)
	assert.Equal(t, PolicyAllow, cfg.Sequencer.RunPolicy)
	assert.Equal(t, RunnerCanned, cfg.Sequencer.AgentRunner)
	assert.Equal(t, 30*time.Minute, cfg.Sequencer.RunTTL)
	assert.Equal(t, "agenicai.runs.completed", cfg.NATS.Subject)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("STEP_DELAY", "10ms")
	t.Setenv("RUN_POLICY", "reject")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 10*time.Millisecond, cfg.Sequencer.StepDelay)
	assert.Equal(t, PolicyReject, cfg.Sequencer.RunPolicy)
}

func TestLoadConfigFileOverridesEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")

	path := filepath.Join(t.TempDir(), "agenicai.yaml")
	content := `
server:
  port: "9200"
sequencer:
  step_delay: 5ms
  max_active_runs: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Server.Port)
	assert.Equal(t, 5*time.Millisecond, cfg.Sequencer.StepDelay)
	assert.Equal(t, 3, cfg.Sequencer.MaxActiveRuns)
	// untouched keys keep their environment defaults
	assert.Equal(t, 800*time.Millisecond, cfg.Sequencer.ReportDelay)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "canned runner needs no key",
			mutate: func(c *Config) {},
		},
		{
			name:    "llm runner needs key",
			mutate:  func(c *Config) { c.Sequencer.AgentRunner = RunnerLLM },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "llm runner with key",
			mutate: func(c *Config) {
				c.Sequencer.AgentRunner = RunnerLLM
				c.OpenAI.APIKey = "sk-test"
			},
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Sequencer.RunPolicy = "queue" },
			wantErr: "unknown run policy",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Sequencer.StepDelay = -time.Second },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Sequencer: SequencerConfig{
					AgentRunner: RunnerCanned,
					RunPolicy:   PolicyAllow,
				},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
