// Package config handles configuration loading for the exchange server.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows sensitive values
// like database credentials and 1C account passwords to be injected at
// runtime.
//
// # Configuration Sections
//
//   - server: HTTP server settings (port, base path)
//   - auth: 1C exchange accounts (basic auth)
//   - storage: session store backend (memory, mongodb or postgres)
//   - exchange: upload directory and protocol parameters
//
// # Example Configuration
//
//	server:
//	  port: 8080
//	  basePath: /exchange
//
//	auth:
//	  users:
//	    - name: onec
//	      password: ${ONEC_PASSWORD}
//
//	storage:
//	  type: postgres
//	  postgres:
//	    dsn: ${DATABASE_DSN}
//
//	exchange:
//	  uploadRoot: /var/lib/cml/upload
//	  deleteFilesAfterImport: true
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Exchange ExchangeConfig `yaml:"exchange"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"basePath"`
}

// AuthConfig lists the accounts 1C may authenticate as
type AuthConfig struct {
	Users []UserConfig `yaml:"users"`
}

// UserConfig is one basic-auth account
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// StorageConfig selects and configures the session store backend
type StorageConfig struct {
	// Type is one of "memory", "mongodb" or "postgres"
	Type     string         `yaml:"type"`
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ExchangeConfig holds protocol parameters
type ExchangeConfig struct {
	// UploadRoot is the directory uploaded exchange files land in
	UploadRoot string `yaml:"uploadRoot"`
	// DeleteFilesAfterImport removes uploaded files once imported
	DeleteFilesAfterImport bool `yaml:"deleteFilesAfterImport"`
	// UseZip advertises zip support in the init reply
	UseZip bool `yaml:"useZip"`
	// FileLimit is the advertised upload limit in bytes, 0 = unlimited
	FileLimit int `yaml:"fileLimit"`
	// SessionCookie is the cookie name issued by checkauth
	SessionCookie string `yaml:"sessionCookie"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/exchange"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "cml"
	}
	if c.Storage.MongoDB.Collection == "" {
		c.Storage.MongoDB.Collection = "exchange_sessions"
	}
	if c.Exchange.UploadRoot == "" {
		c.Exchange.UploadRoot = "cml_upload"
	}
	if c.Exchange.SessionCookie == "" {
		c.Exchange.SessionCookie = "sessid"
	}
}

func (c *Config) validate() error {
	if len(c.Auth.Users) == 0 {
		return fmt.Errorf("auth.users must list at least one account")
	}
	for i, u := range c.Auth.Users {
		if u.Name == "" || u.Password == "" {
			return fmt.Errorf("auth.users[%d] needs both name and password", i)
		}
	}

	switch c.Storage.Type {
	case "memory":
	case "mongodb":
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("storage.mongodb.uri is required when type is 'mongodb'")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required when type is 'postgres'")
		}
	default:
		return fmt.Errorf("storage.type must be 'memory', 'mongodb' or 'postgres', got '%s'", c.Storage.Type)
	}

	return nil
}
