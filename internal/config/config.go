package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var defaultLanguages = []string{
	"Tamil",
	"English",
	"Hindi",
	"Malayalam",
	"Telugu",
}

const (
	defaultListenAddr        = "0.0.0.0:10000"
	defaultRefreshDebounceMS = 500
	defaultMaxBodyBytes      = 32 << 20
)

// ErrNoAPIKey is returned when neither a static key nor a key file is configured.
var ErrNoAPIKey = errors.New("an API key or API key file must be configured")

// Config is the process-wide configuration. It is resolved once at startup and
// treated as read-only afterwards.
type Config struct {
	ListenAddr        string
	APIKey            string
	APIKeyFile        string
	RequireAuthHeader bool
	Languages         []string
	ScratchDir        string
	MaxBodyBytes      int64
	RefreshDebounce   time.Duration
}

type configYAML struct {
	ListenAddr        string   `yaml:"listen_addr"`
	APIKey            string   `yaml:"api_key"`
	APIKeyFile        string   `yaml:"api_key_file"`
	RequireAuthHeader *bool    `yaml:"require_auth_header"`
	Languages         []string `yaml:"languages"`
	ScratchDir        string   `yaml:"scratch_dir"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes"`
}

// DefaultLanguages returns the languages accepted when none are configured.
func DefaultLanguages() []string {
	result := make([]string, len(defaultLanguages))
	copy(result, defaultLanguages)
	return result
}

// Resolve returns the service configuration after applying defaults, YAML
// configuration (when VOICE_CONFIG is set), and environment variable overrides.
func Resolve() (Config, error) {
	cfg := Config{
		ListenAddr:        defaultListenAddr,
		RequireAuthHeader: true,
		Languages:         DefaultLanguages(),
		ScratchDir:        os.TempDir(),
		MaxBodyBytes:      defaultMaxBodyBytes,
		RefreshDebounce:   RefreshDebounce(),
	}

	configPath := strings.TrimSpace(os.Getenv("VOICE_CONFIG"))
	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.APIKey == "" && cfg.APIKeyFile == "" {
		return Config{}, ErrNoAPIKey
	}
	if len(cfg.Languages) == 0 {
		return Config{}, errors.New("at least one supported language must be configured")
	}

	scratch, err := resolveDir(cfg.ScratchDir)
	if err != nil {
		return Config{}, fmt.Errorf("scratch dir: %w", err)
	}
	cfg.ScratchDir = scratch

	if cfg.APIKeyFile != "" {
		keyFile, err := ResolveKeyFile(cfg.APIKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("api key file: %w", err)
		}
		cfg.APIKeyFile = keyFile
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return err
	}

	var fileConfig configYAML
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("parse %s: %w", resolved, err)
	}

	if value := strings.TrimSpace(fileConfig.ListenAddr); value != "" {
		cfg.ListenAddr = value
	}
	if value := strings.TrimSpace(fileConfig.APIKey); value != "" {
		cfg.APIKey = value
	}
	if value := strings.TrimSpace(fileConfig.APIKeyFile); value != "" {
		cfg.APIKeyFile = value
	}
	if fileConfig.RequireAuthHeader != nil {
		cfg.RequireAuthHeader = *fileConfig.RequireAuthHeader
	}
	if languages := cleanList(fileConfig.Languages); len(languages) > 0 {
		cfg.Languages = languages
	}
	if value := strings.TrimSpace(fileConfig.ScratchDir); value != "" {
		cfg.ScratchDir = value
	}
	if fileConfig.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fileConfig.MaxBodyBytes
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value := strings.TrimSpace(os.Getenv("VOICE_LISTEN_ADDR")); value != "" {
		cfg.ListenAddr = value
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_API_KEY")); value != "" {
		cfg.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_API_KEY_FILE")); value != "" {
		cfg.APIKeyFile = value
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_REQUIRE_AUTH_HEADER")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("VOICE_REQUIRE_AUTH_HEADER: %w", err)
		}
		cfg.RequireAuthHeader = parsed
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_LANGUAGES")); value != "" {
		cfg.Languages = cleanList(strings.Split(value, ","))
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_SCRATCH_DIR")); value != "" {
		cfg.ScratchDir = value
	}
	if value := strings.TrimSpace(os.Getenv("VOICE_MAX_BODY_BYTES")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("VOICE_MAX_BODY_BYTES: invalid value %q", value)
		}
		cfg.MaxBodyBytes = parsed
	}
	return nil
}

// RefreshDebounce returns the duration to wait before reloading the API key
// file after file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("VOICE_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// ValidateListenAddr ensures the configured listen address is a host:port pair
// with a numeric port.
func ValidateListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// ResolveKeyFile returns the absolute path to the API key file. The file must
// already exist; an empty key file is allowed and simply authorizes nothing.
func ResolveKeyFile(path string) (string, error) {
	abs, err := expandPath(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	return abs, nil
}

func resolveDir(dir string) (string, error) {
	abs, err := expandPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", err
	}
	return abs, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}

func cleanList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}
	return result
}
