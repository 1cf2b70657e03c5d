// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Server    ServerConfig
	VendorID  VendorIDConfig
	Places    PlacesConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: {home}/stacks-registry/registry.db)
	Path string
	// SearchIndexPath is the bleve description index directory
	// (default: search.bleve next to the database file)
	SearchIndexPath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// VendorIDConfig holds DRM Vendor ID configuration.
type VendorIDConfig struct {
	// Name is the vendor name reported to clients (default: Palace)
	Name string
	// NodeValue seeds account identifier UUIDs. Hex ("0x...") or decimal,
	// at most 48 bits. Required.
	NodeValue string
	// Delegates are upstream vendor ID servers tried before decoding
	// tokens locally, in priority order.
	Delegates []string
}

// PlacesConfig holds place resolution configuration.
type PlacesConfig struct {
	// DefaultNation is the abbreviation assumed when a query names no
	// nation (default: US)
	DefaultNation string
	// ZipTablePath points at a city,state,zip CSV used as a fallback for
	// unincorporated communities. Optional.
	ZipTablePath string
}

// RateLimitConfig holds token-endpoint rate limiting configuration.
type RateLimitConfig struct {
	// TokenRPS is requests per second allowed per client (default: 10)
	TokenRPS int
	// TokenBurst is the burst size per client (default: 20)
	TokenBurst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := flag.String("db-path", "", "Path to the SQLite database file")
	searchIndexPath := flag.String("search-index-path", "", "Path to the description search index")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Vendor ID flags
	vendorName := flag.String("vendor-name", "", "Vendor name reported to DRM clients (default: Palace)")
	vendorNode := flag.String("vendor-node", "", "Node value for account identifier UUIDs (hex or decimal)")
	vendorDelegates := flag.String("vendor-delegates", "", "Comma-separated upstream vendor ID server URLs")

	// Place resolution flags
	defaultNation := flag.String("default-nation", "", "Nation abbreviation assumed in queries (default: US)")
	zipTablePath := flag.String("zip-table-path", "", "Path to a city,state,zip CSV fallback table")

	// Rate limit flags
	tokenRPS := flag.String("token-rps", "", "Token endpoint requests per second per client (default: 10)")
	tokenBurst := flag.String("token-burst", "", "Token endpoint burst per client (default: 20)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Path:            getConfigValue(*dbPath, "DATABASE_PATH", ""),
			SearchIndexPath: getConfigValue(*searchIndexPath, "SEARCH_INDEX_PATH", ""),
		},

		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},

		VendorID: VendorIDConfig{
			Name:      getConfigValue(*vendorName, "VENDOR_ID_NAME", "Palace"),
			NodeValue: getConfigValue(*vendorNode, "VENDOR_ID_NODE", ""),
			Delegates: splitList(getConfigValue(*vendorDelegates, "VENDOR_ID_DELEGATES", "")),
		},

		Places: PlacesConfig{
			DefaultNation: getConfigValue(*defaultNation, "DEFAULT_NATION", "US"),
			ZipTablePath:  getConfigValue(*zipTablePath, "ZIP_TABLE_PATH", ""),
		},

		RateLimit: RateLimitConfig{
			TokenRPS:   getIntConfigValue(*tokenRPS, "TOKEN_RPS", 10),
			TokenBurst: getIntConfigValue(*tokenBurst, "TOKEN_BURST", 20),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate the database path.
	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	// Expand the search index path (defaults to search.bleve next to the database).
	if err := cfg.expandSearchIndexPath(); err != nil {
		return nil, fmt.Errorf("invalid search index path: %w", err)
	}

	// Expand the zip table path if one was given.
	if err := cfg.expandZipTablePath(); err != nil {
		return nil, fmt.Errorf("invalid zip table path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.VendorID.NodeValue == "" {
		return errors.New("VENDOR_ID_NODE is required")
	}

	if c.Places.DefaultNation == "" {
		return errors.New("DEFAULT_NATION cannot be empty")
	}

	if c.RateLimit.TokenRPS <= 0 || c.RateLimit.TokenBurst <= 0 {
		return fmt.Errorf("token rate limit must be positive, got rps=%d burst=%d",
			c.RateLimit.TokenRPS, c.RateLimit.TokenBurst)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDatabasePath expands ~ and makes the path absolute.
func (c *Config) expandDatabasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "stacks-registry", "registry.db")

	expanded, err := expandPath(c.Database.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Database.Path = expanded
	return nil
}

// expandSearchIndexPath expands ~ and makes the path absolute.
// Defaults to search.bleve alongside the database file.
func (c *Config) expandSearchIndexPath() error {
	defaultPath := filepath.Join(filepath.Dir(c.Database.Path), "search.bleve")

	expanded, err := expandPath(c.Database.SearchIndexPath, defaultPath)
	if err != nil {
		return err
	}
	c.Database.SearchIndexPath = expanded
	return nil
}

// expandZipTablePath expands ~ and makes the path absolute.
// If empty, leaves it empty; the fallback table is optional.
func (c *Config) expandZipTablePath() error {
	if c.Places.ZipTablePath == "" {
		return nil
	}

	expanded, err := expandPath(c.Places.ZipTablePath, "")
	if err != nil {
		return err
	}
	c.Places.ZipTablePath = expanded
	return nil
}

// splitList splits a comma-separated value into trimmed non-empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
