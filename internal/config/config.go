// Package config loads normsd/normsctl settings from defaults, an optional
// YAML file and NORMS_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mind-engage/mindengage-norms/internal/db"
)

var ErrInvalidConfig = errors.New("invalid config")

// listKeys are read from the environment as comma-separated values.
var listKeys = map[string]bool{
	"cors_origins_online":  true,
	"cors_origins_offline": true,
}

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `koanf:"mode"`
	HTTPAddr string `koanf:"http_addr"`
	LogLevel string `koanf:"log_level"` // debug|info|warn|error

	DBDriver string `koanf:"db_driver"` // sqlite|postgres
	DBDSN    string `koanf:"db_dsn"`

	AuthHMACSecret string        `koanf:"auth_hmac_secret"`
	TokenTTL       time.Duration `koanf:"token_ttl"`

	AdminUser        string `koanf:"admin_user"`
	AdminPassHash    string `koanf:"admin_pass_hash"` // bcrypt
	ExaminerUser     string `koanf:"examiner_user"`
	ExaminerPassHash string `koanf:"examiner_pass_hash"` // bcrypt; empty disables examiner login

	CORSOriginsOnline  []string `koanf:"cors_origins_online"`
	CORSOriginsOffline []string `koanf:"cors_origins_offline"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
	// SeedFile is a YAML list of normative tables populated at startup.
	SeedFile string `koanf:"seed_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Mode:               ModeOffline,
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		DBDriver:           "sqlite",
		AuthHMACSecret:     "dev-secret-change-me",
		TokenTTL:           12 * time.Hour,
		AdminUser:          "admin",
		AdminPassHash:      "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji",
		ExaminerUser:       "examiner",
		CORSOriginsOnline:  []string{"https://norms.mindengage.ai"},
		CORSOriginsOffline: []string{"http://localhost:3000", "http://localhost:3010"},
		MetricsEnabled:     true,
	}
}

// Load layers, low to high: Default, the YAML file named by NORMS_CONFIG,
// NORMS_* env vars (NORMS_HTTP_ADDR -> http_addr).
func Load(ctx context.Context) (Config, error) {
	return LoadFile(ctx, os.Getenv("NORMS_CONFIG"))
}

// LoadFile is Load with an explicit file path; an empty path skips the file.
func LoadFile(_ context.Context, path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	envProvider := env.ProviderWithValue("NORMS_", ".", func(name, value string) (string, any) {
		key := strings.TrimPrefix(strings.ToLower(name), "norms_")
		if listKeys[key] {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOriginsOnline = trimAll(cfg.CORSOriginsOnline)
	cfg.CORSOriginsOffline = trimAll(cfg.CORSOriginsOffline)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("%w: mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: http_addr must not be empty", ErrInvalidConfig)
	}
	if _, err := db.ParseDriver(c.DBDriver); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.AuthHMACSecret == "" {
		return fmt.Errorf("%w: auth_hmac_secret must not be empty", ErrInvalidConfig)
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == Default().AuthHMACSecret {
		return fmt.Errorf("%w: auth_hmac_secret must be set in online mode", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// CORSOrigins returns the allowed origins for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
