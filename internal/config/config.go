// Package config loads runtime configuration from defaults, an optional YAML
// file and DIGITALROOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"digitalroom/internal/auth"
	"digitalroom/internal/blob"
	"digitalroom/internal/persistence"
)

// EnvPrefix prefixes environment overrides, e.g. DIGITALROOM_STORAGE_DRIVER.
const EnvPrefix = "DIGITALROOM"

// Config holds application configuration.
type Config struct {
	Log     LogConfig          `mapstructure:"log"`
	Storage persistence.Config `mapstructure:"storage"`
	Blob    blob.Config        `mapstructure:"blob"`
	Auth    auth.Config        `mapstructure:"auth"`
	HTTP    HTTPConfig         `mapstructure:"http"`
	Editor  EditorConfig       `mapstructure:"editor"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// HTTPConfig configures the read-only archive API.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EditorConfig tunes default sort orders.
type EditorConfig struct {
	SortGap      int64 `mapstructure:"sort_gap"`
	SortBaseline int64 `mapstructure:"sort_baseline"`
}

// DefaultPath is $HOME/.config/digitalroom/config.yaml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "digitalroom", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "digitalroom")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("storage.driver", string(persistence.DriverSQLite))
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "digitalroom.db"))
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", filepath.Join(dataDir, "blobs"))
	v.SetDefault("blob.public_base_url", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.public_base_url", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("auth.session_ttl", auth.DefaultSessionTTL)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("editor.sort_gap", 10)
	v.SetDefault("editor.sort_baseline", 10)
}

// Load reads configuration. path overrides DIGITALROOM_CONFIG; when neither is
// set the default path is used if it exists. An explicitly named file must
// be readable.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	explicit := path
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
