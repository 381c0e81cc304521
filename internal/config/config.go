// Package config loads the YAML configuration shared by the server, the CLI
// and the C bindings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/nickyhof/stressdb/internal/logging"
	"github.com/nickyhof/stressdb/load"
	"github.com/nickyhof/stressdb/ps"
	"gopkg.in/yaml.v3"
)

// MaxFileSize bounds the configuration file size.
const MaxFileSize = 1024 * 1024

// Source kinds a variant can be bound to.
const (
	SourceCSV      = "csv"
	SourceDuckDB   = "duckdb"
	SourcePostgres = "postgres"
	SourceGit      = "git"
)

type Config struct {
	Store    StoreConfig     `yaml:"store"`
	Server   ServerConfig    `yaml:"server"`
	Logging  logging.Config  `yaml:"logging"`
	S3       load.S3Config   `yaml:"s3"`
	Variants []VariantConfig `yaml:"variants"`
}

// StoreConfig locates the versioned table store. An empty BaseDir keeps
// the store in memory.
type StoreConfig struct {
	BaseDir string         `yaml:"baseDir"`
	GitURL  string         `yaml:"gitUrl"`
	Remote  string         `yaml:"remote"`
	Auth    *ps.RemoteAuth `yaml:"auth"`
}

type ServerConfig struct {
	Port        int        `yaml:"port"`
	MetricsAddr string     `yaml:"metricsAddr"`
	Auth        AuthConfig `yaml:"auth"`
}

// AuthConfig configures JWT authentication of server connections.
type AuthConfig struct {
	// Enabled requires every connection to send AUTH JWT <token> first.
	Enabled bool `yaml:"enabled"`

	// JWTSecret is the shared secret for HS256/384/512 validation.
	JWTSecret string `yaml:"jwtSecret"`

	// Issuer and Audience, when set, must match the token's claims.
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`

	// NameClaim and EmailClaim name the identity claims (default "name", "email").
	NameClaim  string `yaml:"nameClaim"`
	EmailClaim string `yaml:"emailClaim"`
}

// VariantConfig binds a table variant to a source. Title and Subtitle
// default to the built-in descriptor of the same id.
type VariantConfig struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Source   string `yaml:"source"`

	// csv and duckdb
	Path       string `yaml:"path"`
	NotesPath  string `yaml:"notesPath"`
	TableSheet string `yaml:"tableSheet"`
	NotesSheet string `yaml:"notesSheet"`

	// postgres
	DSN        string `yaml:"dsn"`
	TableQuery string `yaml:"tableQuery"`
	NotesQuery string `yaml:"notesQuery"`

	Layout load.Layout `yaml:"layout"`
}

// Default returns the configuration used when no file is given: an
// in-memory store serving the built-in variants from it.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 3306},
		Logging: logging.Config{Level: "info", Format: "console"},
		Store:   StoreConfig{Remote: "origin"},
		Variants: []VariantConfig{
			{ID: load.Ferrous.ID, Source: SourceGit},
			{ID: load.Bolting.ID, Source: SourceGit},
		},
	}
}

// Load reads and validates a configuration file. Environment variables in
// the file are expanded.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Variants = nil

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = Default().Variants
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Auth.Enabled && c.Server.Auth.JWTSecret == "" {
		result = multierror.Append(result, fmt.Errorf("server.auth.jwtSecret is required when auth is enabled"))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	seen := make(map[string]bool)
	for i, v := range c.Variants {
		where := fmt.Sprintf("variants[%d]", i)
		if v.ID == "" {
			result = multierror.Append(result, fmt.Errorf("%s: id is required", where))
		} else {
			where = fmt.Sprintf("variant %s", v.ID)
			if seen[v.ID] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate id", where))
			}
			seen[v.ID] = true
		}

		for _, err := range v.validate() {
			result = multierror.Append(result, fmt.Errorf("%s: %w", where, err))
		}
	}

	return result.ErrorOrNil()
}

func (v VariantConfig) validate() []error {
	var errs []error
	require := func(value, field string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required for %s sources", field, v.Source))
		}
	}

	switch v.Source {
	case SourceCSV:
		require(v.Path, "path")
	case SourceDuckDB:
		require(v.Path, "path")
		if strings.HasSuffix(strings.ToLower(v.Path), ".xlsx") {
			require(v.TableSheet, "tableSheet")
		}
	case SourcePostgres:
		require(v.DSN, "dsn")
		require(v.TableQuery, "tableQuery")
	case SourceGit:
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", v.Source))
	}

	if v.Layout.AxisStart < 0 || v.Layout.NoteCode < 0 || v.Layout.NoteDetail < 0 {
		errs = append(errs, fmt.Errorf("layout columns must not be negative"))
	}
	return errs
}
