package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config is the persisted application configuration. The UI edits it through
// the API; unknown sections in the file are ignored and missing ones keep
// their defaults.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Shopify    ShopifyConfig    `json:"shopify"`
	Eniture    EnitureConfig    `json:"eniture"`
	Automation AutomationConfig `json:"automation"`
	Scraping   ScrapingConfig   `json:"scraping"`
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

type PathsConfig struct {
	ProcessFolder string `json:"process_folder"`
	FinalFolder   string `json:"final_folder"`
	UploadFolder  string `json:"upload_folder"`
}

type ShopifyConfig struct {
	ChannelName string `json:"channel_name"`
	StoreURL    string `json:"store_url"`
	APIToken    string `json:"api_token"`
}

type EnitureConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

type AutomationConfig struct {
	AutoScrape          bool `json:"auto_scrape"`
	AutoProcess         bool `json:"auto_process"`
	AutoUpload          bool `json:"auto_upload"`
	UpdateExistingFiles bool `json:"update_existing_files"`
}

type ScrapingConfig struct {
	VariationMode string `json:"variation_mode"`
	ModelColumn   string `json:"model_column"`
	Prefix        string `json:"prefix"`
	StartRow      int    `json:"start_row"`
	EndRow        int    `json:"end_row"`
	Headless      bool   `json:"headless"`
	TimeoutSecs   int    `json:"timeout_seconds"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Default returns the baseline configuration, with environment overrides for
// the deployment-level knobs.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			ProcessFolder: getEnv("VENDORFLOW_PROCESS_DIR", "./data/process"),
			FinalFolder:   getEnv("VENDORFLOW_FINAL_DIR", "./data/final"),
			UploadFolder:  getEnv("VENDORFLOW_UPLOAD_DIR", "./data/uploads"),
		},
		Shopify: ShopifyConfig{
			ChannelName: "Shopify",
		},
		Eniture: EnitureConfig{
			APIURL: "https://s-web-api.eniture.com",
		},
		Automation: AutomationConfig{
			AutoScrape:          true,
			UpdateExistingFiles: true,
		},
		Scraping: ScrapingConfig{
			VariationMode: "None",
			ModelColumn:   "Mfr Model",
			StartRow:      1,
			EndRow:        1000,
			Headless:      getEnvBool("BROWSER_HEADLESS", true),
			TimeoutSecs:   getEnvInt("BROWSER_TIMEOUT", 30),
		},
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8090),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scraping.StartRow < 1 {
		return fmt.Errorf("start row must be at least 1")
	}
	if c.Scraping.TimeoutSecs < 1 {
		return fmt.Errorf("browser timeout must be at least 1 second")
	}
	return nil
}

// Store loads and persists the JSON configuration file.
type Store struct {
	path string

	mu  sync.Mutex
	cfg Config
}

func NewStore(path string) *Store {
	return &Store{path: path, cfg: Default()}
}

// Load reads the config file, merging it over the defaults so partially
// written files keep working. A missing file is not an error.
func (s *Store) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	s.cfg = cfg
	return cfg, nil
}

// Get returns the current configuration snapshot.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Apply merges a raw JSON patch over the current configuration, persists the
// result and returns it. Fields absent from the patch are untouched.
func (s *Store) Apply(raw []byte) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config update: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	s.cfg = cfg
	return cfg, s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
