package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPurposes is the built-in visit purpose catalog, used when no
// purpose file is configured.
var DefaultPurposes = []string{"訪問調査", "聞き取り", "場面観察", "FB", "その他"}

// Config captures environment driven configuration values for the
// coordination service.
type Config struct {
	HTTPPort          int           `env:"COORDINATOR_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN         string        `env:"COORDINATOR_SQLITE_DSN" envDefault:"file:coordinator.db?_foreign_keys=on"`
	FacilityLookupURL string        `env:"COORDINATOR_FACILITY_LOOKUP_URL"`
	PurposeFile       string        `env:"COORDINATOR_PURPOSE_FILE"`
	ShutdownTimeout   time.Duration `env:"COORDINATOR_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Purposes is the allowed visit purpose catalog, loaded from PurposeFile
	// when one is configured.
	Purposes []string
}

type purposeFile struct {
	Purposes []string `yaml:"purposes"`
}

// Load parses configuration values from the current process environment and,
// when configured, the purpose catalog file.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %w", err)
	}

	invalid := make([]string, 0, 2)
	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, "COORDINATOR_HTTP_PORT")
	}
	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, "COORDINATOR_SHUTDOWN_TIMEOUT")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	purposes, err := loadPurposes(cfg.PurposeFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Purposes = purposes

	return cfg, nil
}

func loadPurposes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return append([]string(nil), DefaultPurposes...), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("目的カタログを読み込めません: %w", err)
	}

	var file purposeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("目的カタログの形式が不正です: %w", err)
	}

	purposes := make([]string, 0, len(file.Purposes))
	for _, purpose := range file.Purposes {
		purpose = strings.TrimSpace(purpose)
		if purpose != "" {
			purposes = append(purposes, purpose)
		}
	}
	if len(purposes) == 0 {
		return nil, fmt.Errorf("目的カタログが空です: %s", path)
	}
	return purposes, nil
}
