// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/core"
	"github.com/community-assistant/server/pkg/database"
	logx "github.com/community-assistant/server/pkg/logger"
	pkgredis "github.com/community-assistant/server/pkg/redis"
)

// Config is shared by the server and the indexer.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config
	SQL   database.Config

	LLM       model.LLMConfig
	Embedding model.EmbeddingConfig
	Data      model.DataConfig
	Retrieval model.RetrievalConfig
	Agent     model.AgentConfig
	TBA       model.TBAConfig
	Session   model.SessionConfig
	Server    model.ServerConfig
}

// Load reads envFile when present, then the process environment.
func Load(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		logx.Warn().Err(err).Str("file", envFile).Msg("could not load env file")
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// SessionTTL is the sliding lifetime of sessions and transcripts.
func (c *Config) SessionTTL() (time.Duration, error) {
	d, err := model.ParseDurationOr(c.Session.TTL, 24*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("invalid SESSION_TTL %q: %w", c.Session.TTL, err)
	}
	return d, nil
}

// RequestTimeout bounds one answered question.
func (c *Config) RequestTimeout() (time.Duration, error) {
	d, err := model.ParseDurationOr(c.Server.RequestTimeout, 120*time.Second)
	if err != nil {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", c.Server.RequestTimeout, err)
	}
	return d, nil
}
