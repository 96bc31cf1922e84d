package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	RunnerCanned = "canned"
	RunnerLLM    = "llm"

	PolicyAllow  = "allow"
	PolicyReject = "reject"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	NATS      NATSConfig      `mapstructure:"nats"`
}

type ServerConfig struct {
	Port         string        `envconfig:"SERVER_PORT" default:"8000" mapstructure:"port"`
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0" mapstructure:"host"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s" mapstructure:"write_timeout"`
}

type SequencerConfig struct {
	StepDelay     time.Duration `envconfig:"STEP_DELAY" default:"1200ms" mapstructure:"step_delay"`
	ReportDelay   time.Duration `envconfig:"REPORT_DELAY" default:"800ms" mapstructure:"report_delay"`
	RunPolicy     string        `envconfig:"RUN_POLICY" default:"allow" mapstructure:"run_policy"`
	MaxActiveRuns int           `envconfig:"MAX_ACTIVE_RUNS" default:"0" mapstructure:"max_active_runs"`
	RunTTL        time.Duration `envconfig:"RUN_TTL" default:"30m" mapstructure:"run_ttl"`
	AgentRunner   string        `envconfig:"AGENT_RUNNER" default:"canned" mapstructure:"agent_runner"`
}

type OpenAIConfig struct {
	Provider       string `envconfig:"OPENAI_PROVIDER" default:"openai" mapstructure:"provider"`
	APIKey         string `envconfig:"OPENAI_API_KEY" mapstructure:"api_key"`
	APIEndpoint    string `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1" mapstructure:"endpoint"`
	Model          string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini" mapstructure:"model"`
	DeploymentName string `envconfig:"OPENAI_DEPLOYMENT" default:"gpt-4o" mapstructure:"deployment"`
	APIVersion     string `envconfig:"OPENAI_API_VERSION" default:"2023-05-15" mapstructure:"api_version"`
}

type KnowledgeConfig struct {
	GraphQLEndpoint string        `envconfig:"KNOWLEDGE_GRAPHQL_ENDPOINT" mapstructure:"graphql_endpoint"`
	Timeout         time.Duration `envconfig:"KNOWLEDGE_TIMEOUT" default:"30s" mapstructure:"timeout"`
}

type NATSConfig struct {
	URL     string `envconfig:"NATS_URL" mapstructure:"url"`
	Subject string `envconfig:"NATS_SUBJECT" default:"agenicai.runs.completed" mapstructure:"subject"`
}

// LoadConfig reads the environment and, when path is non-empty, overlays the
// config file at path. Values in the file win over the environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		slog.Debug("config file applied", "path", v.ConfigFileUsed())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Sequencer.AgentRunner {
	case RunnerCanned:
	case RunnerLLM:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when AGENT_RUNNER=llm"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown agent runner %q", c.Sequencer.AgentRunner))
	}

	switch c.Sequencer.RunPolicy {
	case PolicyAllow, PolicyReject:
	default:
		errs = append(errs, fmt.Errorf("unknown run policy %q", c.Sequencer.RunPolicy))
	}

	if c.Sequencer.StepDelay < 0 || c.Sequencer.ReportDelay < 0 {
		errs = append(errs, errors.New("sequencer delays must not be negative"))
	}
	if c.Sequencer.MaxActiveRuns < 0 {
		errs = append(errs, errors.New("MAX_ACTIVE_RUNS must not be negative"))
	}

	return errors.Join(errs...)
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
