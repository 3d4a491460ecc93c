package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

type Config struct {
	ProjectID   string `env:"PROJECTID"`
	Region      string `env:"REGION" env-default:"us-central1"`
	LogLevel    string `env:"LOGLEVEL" env-default:"info"`
	Port        string `env:"PORT" env-default:"8080"`
	VertexModel string `env:"VERTEXMODEL" env-default:"gemini-2.0-flash"`

	// BI platform the reference widgets live on. The token is either given
	// directly or as a Secret Manager version name.
	BIURL         string `env:"BIURL" env-required:"true"`
	BIToken       string `env:"BITOKEN"`
	BITokenSecret string `env:"BITOKENSECRET"`

	StoreBackend string `env:"STOREBACKEND" env-default:"firestore"`
	DatabaseURL  string `env:"DATABASEURL"`

	AuthDisabled bool `env:"AUTHDISABLED" env-default:"false"`
}

// New reads the configuration from the environment. A missing BI setting
// is a ConfigError; the caller is expected to exit.
func New() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errs.NewConfigError("env", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BIURL == "" {
		return errs.NewConfigError("BIURL", "required")
	}
	if c.BIToken == "" && c.BITokenSecret == "" {
		return errs.NewConfigError("BITOKEN", "one of BITOKEN or BITOKENSECRET is required")
	}

	c.StoreBackend = strings.ToLower(c.StoreBackend)
	if c.StoreBackend == "" {
		c.StoreBackend = StoreFirestore
	}
	switch c.StoreBackend {
	case StoreFirestore:
		if c.ProjectID == "" {
			return errs.NewConfigError("PROJECTID", "required for the firestore store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errs.NewConfigError("DATABASEURL", "required for the postgres store")
		}
	default:
		return errs.NewConfigError("STOREBACKEND", fmt.Sprintf("unknown store backend %q", c.StoreBackend))
	}
	return nil
}
