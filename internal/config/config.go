package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type RuntimeConfig struct {
	APIURL               string        `mapstructure:"api_url"`
	StateDir             string        `mapstructure:"state_dir"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RefreshSkew          time.Duration `mapstructure:"refresh_skew"`
	DesktopNotifications bool          `mapstructure:"desktop_notifications"`
	DarkMode             bool          `mapstructure:"dark_mode"`
	LogLevel             string        `mapstructure:"log_level"`
	DevAddr              string        `mapstructure:"dev_addr"`
	NotificationBuffer   int           `mapstructure:"notification_buffer"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		APIURL:               "http://localhost:8080",
		StateDir:             defaultStateDir(),
		RequestTimeout:       15 * time.Second,
		RefreshSkew:          30 * time.Second,
		DesktopNotifications: false,
		LogLevel:             "info",
		DevAddr:              ":8080",
		NotificationBuffer:   64,
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tasktree"
	}
	return filepath.Join(dir, "tasktree")
}

// DefaultConfigPath is where Load looks when no file is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultStateDir(), "config.yaml")
}

func (c RuntimeConfig) DatabasePath() string {
	return filepath.Join(c.StateDir, "tasktree.db")
}

func (c RuntimeConfig) LogPath() string {
	return filepath.Join(c.StateDir, "tasktree.log")
}

func (c RuntimeConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("config: api_url is required")
	}
	if strings.TrimSpace(c.StateDir) == "" {
		return errors.New("config: state_dir is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Load layers defaults, an optional YAML file and TASKTREE_* variables.
// An empty path means DefaultConfigPath; a missing default file is fine but
// an explicitly named file must exist.
func Load(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg = RuntimeConfigFromEnv(cfg)
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *RuntimeConfig) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("TASKTREE_API_URL"); ok {
		cfg.APIURL = v
	}
	if v, ok := getEnvString("TASKTREE_STATE_DIR"); ok {
		cfg.StateDir = v
	}
	if v, ok := getEnvDuration("TASKTREE_REQUEST_TIMEOUT"); ok && v > 0 {
		cfg.RequestTimeout = v
	}
	if v, ok := getEnvDuration("TASKTREE_REFRESH_SKEW"); ok && v >= 0 {
		cfg.RefreshSkew = v
	}
	if v, ok := getEnvBool("TASKTREE_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvBool("TASKTREE_DARK_MODE"); ok {
		cfg.DarkMode = v
	}
	if v, ok := getEnvString("TASKTREE_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvString("TASKTREE_DEV_ADDR"); ok {
		cfg.DevAddr = v
	}
	if v, ok := getEnvInt("TASKTREE_NOTIFICATION_BUFFER"); ok && v > 0 {
		cfg.NotificationBuffer = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
