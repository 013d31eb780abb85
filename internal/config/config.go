package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CRONOGRAMA_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server" toml:"server"`
	Artifacts ArtifactConfig `yaml:"artifacts" toml:"artifacts"`
	Schedule  ScheduleConfig `yaml:"schedule" toml:"schedule"`
	Download  DownloadConfig `yaml:"download" toml:"download"`
	DB        DBConfig       `yaml:"db" toml:"db"`
	Log       LogConfig      `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Host      string `yaml:"host" toml:"host"`
	Port      int    `yaml:"port" toml:"port"`
	Transport string `yaml:"transport" toml:"transport"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
}

type ArtifactConfig struct {
	OutputDir     string   `yaml:"output_dir" toml:"output_dir"`
	TTLMinutes    int      `yaml:"ttl_minutes" toml:"ttl_minutes"`
	SweepInterval Duration `yaml:"sweep_interval" toml:"sweep_interval"`
}

type ScheduleConfig struct {
	MaxRows       int    `yaml:"max_rows" toml:"max_rows"`
	FormatVersion string `yaml:"format_version" toml:"format_version"`
}

type DownloadConfig struct {
	Rate  float64 `yaml:"rate" toml:"rate"`
	Burst int     `yaml:"burst" toml:"burst"`
}

type DBConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	Path  string `yaml:"path" toml:"path"`
}

// Duration reads Go duration strings ("30s", "2m") from config files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8000,
			Transport: "http",
			BaseURL:   "http://localhost:8000",
		},
		Artifacts: ArtifactConfig{
			OutputDir:     "./outputs",
			TTLMinutes:    30,
			SweepInterval: Duration(30 * time.Second),
		},
		Schedule: ScheduleConfig{
			MaxRows:       500,
			FormatVersion: "1.0.0",
		},
		Download: DownloadConfig{
			Rate:  20,
			Burst: 40,
		},
		DB: DBConfig{
			Path: ":memory:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML or TOML file
// (CRONOGRAMA_CONFIG_PATH), a .env file and the environment, in that order.
func Load() (Config, error) {
	envFile := os.Getenv(envPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Transport != "http" && c.Server.Transport != "stdio" {
		errs = append(errs, fmt.Errorf("transport must be http or stdio, got %q", c.Server.Transport))
	}
	if strings.TrimSpace(c.Artifacts.OutputDir) == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if c.Artifacts.TTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("ttl minutes must be positive, got %d", c.Artifacts.TTLMinutes))
	}
	if c.Artifacts.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %s", time.Duration(c.Artifacts.SweepInterval)))
	}
	if c.Schedule.MaxRows <= 0 {
		errs = append(errs, fmt.Errorf("max rows must be positive, got %d", c.Schedule.MaxRows))
	}
	if c.Download.Rate < 0 || c.Download.Burst < 0 {
		errs = append(errs, errors.New("download rate and burst must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// TTL is the lifetime of a download link.
func (c Config) TTL() time.Duration {
	return time.Duration(c.Artifacts.TTLMinutes) * time.Minute
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "HTTP_HOST")
	setString(&cfg.Server.Transport, "TRANSPORT")
	setString(&cfg.Server.BaseURL, "BASE_URL")
	setString(&cfg.Artifacts.OutputDir, "OUTPUT_DIR")
	setString(&cfg.Schedule.FormatVersion, "FORMAT_VERSION")
	setString(&cfg.DB.Path, "DB_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Path, "LOG_PATH")

	ints := []struct {
		key string
		dst *int
	}{
		{"HTTP_PORT", &cfg.Server.Port},
		{"TTL_MINUTES", &cfg.Artifacts.TTLMinutes},
		{"MAX_ROWS", &cfg.Schedule.MaxRows},
		{"DOWNLOAD_BURST", &cfg.Download.Burst},
	}
	for _, v := range ints {
		raw := os.Getenv(envPrefix + v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, v.key, err)
		}
		*v.dst = n
	}

	if raw := os.Getenv(envPrefix + "DOWNLOAD_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("invalid %sDOWNLOAD_RATE: %w", envPrefix, err)
		}
		cfg.Download.Rate = rate
	}
	if raw := os.Getenv(envPrefix + "SWEEP_INTERVAL"); raw != "" {
		if err := cfg.Artifacts.SweepInterval.UnmarshalText([]byte(raw)); err != nil {
			return fmt.Errorf("invalid %sSWEEP_INTERVAL: %w", envPrefix, err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}
