package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/fitdash/internal/insight"
	"github.com/TobiSchelling/fitdash/internal/logging"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Dataset   Dataset         `yaml:"dataset"`
	Server    Server          `yaml:"server"`
	Insights  insight.Options `yaml:"insights"`
	Cache     Cache           `yaml:"cache"`
	Narration Narration       `yaml:"narration"`
	Logging   logging.Options `yaml:"logging"`
	Output    Output          `yaml:"output"`
}

type Dataset struct {
	// Path is the CSV/XLSX served by default. Empty falls back to the
	// default dataset in the store.
	Path        string `yaml:"path"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type Server struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure_cookies"`
}

type Cache struct {
	Views      int           `yaml:"views"`
	ViewTTL    time.Duration `yaml:"view_ttl"`
	Sessions   int           `yaml:"sessions"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Narration struct {
	Enabled     bool          `yaml:"enabled"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	OllamaURL   string        `yaml:"ollama_url"`
	OpenAIModel string        `yaml:"openai_model"`
	OpenAIURL   string        `yaml:"openai_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxTokens   int           `yaml:"max_tokens"`
	Attempts    uint          `yaml:"attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Output struct {
	DataDir     string `yaml:"data_dir"`
	PreviewRows int    `yaml:"preview_rows"`
	TopPairs    int    `yaml:"top_pairs"`
}

// ConfigDir returns the XDG config directory for fitdash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "fitdash")
}

// DataDir returns the XDG data directory for fitdash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "fitdash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/fitdash/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'fitdash init' to create a default config",
		xdgConfig,
	)
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none
// are named) into the environment. Missing files are skipped; variables
// already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err) // defaults are static
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Dataset:  Dataset{MaxUploadMB: 10},
		Server:   Server{Host: "127.0.0.1", Port: 8501},
		Insights: insight.DefaultOptions(),
		Cache: Cache{
			Views:      256,
			ViewTTL:    10 * time.Minute,
			Sessions:   1000,
			SessionTTL: 2 * time.Hour,
		},
		Narration: Narration{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   400,
			Attempts:    3,
			RetryDelay:  time.Second,
			Timeout:     60 * time.Second,
		},
		Logging: logging.Options{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Output: Output{PreviewRows: 10, TopPairs: 5},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Dataset.MaxUploadMB <= 0 {
		return fmt.Errorf("dataset.max_upload_mb must be positive")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return ExpandHome(c.Output.DataDir)
	}
	return DataDir()
}

// DBPath returns the path of the dataset store.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "fitdash.db")
}

// DatasetPath returns the configured default dataset with ~ expanded.
func (c *Config) DatasetPath() string {
	return ExpandHome(c.Dataset.Path)
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Dataset.MaxUploadMB) << 20
}

// Addr is the listen address of the web server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
