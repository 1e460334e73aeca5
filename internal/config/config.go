package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Directory  Directory  `yaml:"directory"`
	OCR        OCR        `yaml:"ocr"`
	Extraction Extraction `yaml:"extraction"`
	Storage    Storage    `yaml:"storage"`
	Server     Server     `yaml:"server"`
	Sources    Sources    `yaml:"sources"`
	Logging    Logging    `yaml:"logging"`
}

type Directory struct {
	// Path to a YAML ticker file. Empty uses the built-in directory.
	Path string `yaml:"path"`
}

type OCR struct {
	Provider          string  `yaml:"provider"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	CredentialsFile   string  `yaml:"credentials_file"`
	Endpoint          string  `yaml:"endpoint"`
	GeminiModel       string  `yaml:"gemini_model"`
	GeminiAPIKeyEnv   string  `yaml:"gemini_api_key_env"`
	MaxLogos          int     `yaml:"max_logos"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type Extraction struct {
	MaxEvents          int `yaml:"max_events"`
	ExtractedTextChars int `yaml:"extracted_text_chars"`
	CalendarWindow     int `yaml:"calendar_window"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port        int    `yaml:"port"`
	APITokenEnv string `yaml:"api_token_env"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type Sources struct {
	Feeds    []Source `yaml:"feeds"`
	Pages    []Source `yaml:"pages"`
	DaysBack int      `yaml:"days_back"`
}

type Source struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// ConfigDir returns the XDG config directory for catalysts.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "catalysts")
}

// DataDir returns the XDG data directory for catalysts.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "catalysts")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/catalysts/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'catalysts init' to create a default config",
		xdgConfig,
	)
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
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		OCR: OCR{
			Provider:        "vision",
			APIKeyEnv:       "GOOGLE_VISION_API_KEY",
			GeminiModel:     "gemini-2.0-flash",
			GeminiAPIKeyEnv: "GEMINI_API_KEY",
			MaxLogos:        20,
		},
		Extraction: Extraction{
			MaxEvents:          20,
			ExtractedTextChars: 1000,
			CalendarWindow:     3,
		},
		Storage: Storage{Backend: BackendSQLite},
		Server: Server{
			Port:        8000,
			APITokenEnv: "CATALYSTS_API_TOKEN",
			MaxUploadMB: 10,
		},
		Sources: Sources{DaysBack: 7},
		Logging: Logging{Level: "INFO"},
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
	switch c.OCR.Provider {
	case "vision", "gemini":
	default:
		return fmt.Errorf("ocr.provider must be vision or gemini, got %q", c.OCR.Provider)
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be sqlite or badger, got %q", c.Storage.Backend)
	}
	if c.Extraction.MaxEvents < 0 {
		return fmt.Errorf("extraction.max_events must not be negative")
	}
	if c.Extraction.CalendarWindow < 0 {
		return fmt.Errorf("extraction.calendar_window must not be negative")
	}
	if c.OCR.RequestsPerSecond < 0 {
		return fmt.Errorf("ocr.requests_per_second must not be negative")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
