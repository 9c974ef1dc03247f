package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Google   GoogleConfig   `toml:"google"`
	Picker   PickerConfig   `toml:"picker"`
	Import   ImportConfig   `toml:"import"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	BaseURL          string   `toml:"base_url"`
	SessionSecret    string   `toml:"session_secret"`
	PostAuthRedirect string   `toml:"post_auth_redirect"`
	AllowedOrigins   []string `toml:"allowed_origins"`
}

// GoogleConfig contains the OAuth client registration and the on-disk token location.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// PickerConfig contains Google Photos Picker API settings.
type PickerConfig struct {
	APIBaseURL          string  `toml:"api_base_url"`
	MaxItems            int     `toml:"max_items"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
	PollIntervalSeconds int     `toml:"poll_interval_seconds"`
	PollBudgetSeconds   int     `toml:"poll_budget_seconds"`
}

// ImportConfig controls media downloads and image optimization.
type ImportConfig struct {
	MaxDownloadBytes   int64   `toml:"max_download_bytes"`
	DownloadsPerSecond float64 `toml:"downloads_per_second"`
	MaxDimension       int     `toml:"max_dimension"`
	JPEGQuality        int     `toml:"jpeg_quality"`
}

// StorageConfig selects where imported files are written.
type StorageConfig struct {
	Backend       string `toml:"backend"` // local or gcs
	UploadDir     string `toml:"upload_dir"`
	PublicBaseURL string `toml:"public_base_url"`
	GCSBucket     string `toml:"gcs_bucket"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults, and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides file values with environment variables where present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FAMILYBOOK_UPLOADS_PATH"); v != "" {
		c.Storage.UploadDir = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
}

// Addr returns the host:port pair the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
