package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultMaxBodySize is applied when server.max_body_size is empty.
const DefaultMaxBodySize = 1048576 // 1 MB

// Load reads and parses configuration from a file.
// Environment variable references of the form ${VAR} are expanded before
// parsing. If a .checksums file exists next to the config, the config file
// is integrity-verified against it and load fails on mismatch.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	expanded := expandEnvVars(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Integrity check is enforced only once a lock has been taken
	// (config lock writes the .checksums file).
	checksumPath := filepath.Join(filepath.Dir(absPath), checksumFilename)
	if _, statErr := os.Stat(checksumPath); statErr == nil {
		if err := VerifyChecksums(absPath); err != nil {
			return nil, fmt.Errorf("config integrity check failed: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// validate checks the configuration for structural errors.
func validate(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}

	switch cfg.Secrets.Backend {
	case "static", "sqlite", "remote":
	default:
		return fmt.Errorf("secrets.backend must be one of static, sqlite, remote (got %q)", cfg.Secrets.Backend)
	}

	if cfg.Secrets.Backend == "remote" && cfg.Secrets.Remote.BaseURL == "" {
		return fmt.Errorf("secrets.remote.base_url is required for the remote backend")
	}

	switch cfg.Secrets.Cache.Backend {
	case "", "memory", "redis", "none":
	default:
		return fmt.Errorf("secrets.cache.backend must be one of memory, redis, none (got %q)", cfg.Secrets.Cache.Backend)
	}

	if cfg.Secrets.Cache.Backend == "redis" && cfg.Secrets.Cache.RedisAddr == "" {
		return fmt.Errorf("secrets.cache.redis_addr is required for the redis cache")
	}

	if cfg.Auth.DevMode.Enabled && cfg.Auth.DevMode.FixedSecret == "" {
		return fmt.Errorf("auth.dev_mode.fixed_secret is required when dev mode is enabled")
	}

	if _, err := ParseMaxBodySize(cfg.Server.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}

	for i, tok := range cfg.Auth.Tokens {
		if tok.Token == "" {
			return fmt.Errorf("auth.tokens[%d]: token is empty", i)
		}
		if tok.Subject == "" {
			return fmt.Errorf("auth.tokens[%d]: subject is empty", i)
		}
	}

	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	return nil
}

// ParseMaxBodySize parses size strings like "1MB", "512KB", "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func ParseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(size)
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		size = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
