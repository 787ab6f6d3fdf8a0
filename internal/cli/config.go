package cli

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deicod/ermquery/orm/pg"
	"github.com/deicod/ermquery/orm/runtime"
)

const (
	defaultConfigFile = "ermquery.yaml"
	defaultProfile    = "dev"

	envDatabaseURL = "ERMQUERY_DATABASE_URL"
	envProfile     = "ERMQUERY_ENV"
)

type projectConfig struct {
	Database struct {
		URL          string                         `yaml:"url"`
		Pool         pg.PoolConfig                  `yaml:"pool"`
		Environments map[string]databaseEnvironment `yaml:"environments"`
	} `yaml:"database"`
	Search struct {
		Mode string `yaml:"mode"`
	} `yaml:"search"`
	Observability struct {
		ORM struct {
			QueryLogging   bool  `yaml:"query_logging"`
			EmitSpans      bool  `yaml:"emit_spans"`
			CorrelationIDs *bool `yaml:"correlation_ids"`
		} `yaml:"orm"`
	} `yaml:"observability"`
}

type databaseEnvironment struct {
	URL string `yaml:"url"`
}

func (cfg projectConfig) QueryLoggingEnabled() bool { return cfg.Observability.ORM.QueryLogging }

func (cfg projectConfig) QuerySpansEnabled() bool { return cfg.Observability.ORM.EmitSpans }

// QueryCorrelationEnabled defaults to true when the file does not say otherwise.
func (cfg projectConfig) QueryCorrelationEnabled() bool {
	if cfg.Observability.ORM.CorrelationIDs == nil {
		return true
	}
	return *cfg.Observability.ORM.CorrelationIDs
}

func (cfg projectConfig) PoolOption() pg.Option {
	pc := cfg.Database.Pool
	if pc == (pg.PoolConfig{}) {
		return nil
	}
	return pg.WithPoolConfig(pc)
}

// ComposeMode parses search.mode. An unset mode is fail-open.
func (cfg projectConfig) ComposeMode() (runtime.ComposeMode, error) {
	return runtime.ParseComposeMode(cfg.Search.Mode)
}

// DSN resolves the connection string for the selected profile. The profile comes from
// name, then ERMQUERY_ENV, then "dev"; ERMQUERY_DATABASE_URL overrides everything.
func (cfg projectConfig) DSN(name string) (dsn, profile string) {
	profile = name
	if profile == "" {
		profile = os.Getenv(envProfile)
	}
	if profile == "" {
		profile = defaultProfile
	}
	dsn = cfg.Database.URL
	if envCfg, ok := cfg.Database.Environments[profile]; ok && envCfg.URL != "" {
		dsn = envCfg.URL
	}
	if override := os.Getenv(envDatabaseURL); override != "" {
		dsn = override
	}
	return dsn, profile
}

// loadProjectConfig reads path. A missing file yields the zero config so environment
// variables alone can drive the CLI.
func loadProjectConfig(path string) (projectConfig, error) {
	if path == "" {
		path = defaultConfigFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return projectConfig{}, nil
		}
		return projectConfig{}, err
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return projectConfig{}, err
	}
	return cfg, nil
}
