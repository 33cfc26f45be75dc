package config

import "time"

// Config represents the complete trellis-gw configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Secrets SecretsConfig `yaml:"secrets"`
	Storage StorageConfig `yaml:"storage"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`

	// MaxBodySize bounds webhook payloads before hashing.
	// Accepts "1MB", "512KB" or a raw byte count. Default: 1MB.
	MaxBodySize string `yaml:"max_body_size,omitempty"`

	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`

	// DispatchTimeout bounds downstream event handling per delivery.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout,omitempty"`
}

// AuthConfig defines bearer token authentication settings.
type AuthConfig struct {
	// SigningKey verifies signed tokens. Usually "${TRELLIS_SIGNING_KEY}".
	SigningKey string `yaml:"signing_key,omitempty"`

	// Tokens is a list of static bearer tokens.
	Tokens []TokenConfig `yaml:"tokens,omitempty"`

	// Revoked lists tokens that must be rejected even if otherwise valid.
	Revoked []string `yaml:"revoked,omitempty"`

	DevMode DevModeConfig `yaml:"dev_mode"`
}

// TokenConfig defines a static bearer token and its grants.
type TokenConfig struct {
	Token      string     `yaml:"token"`
	Subject    string     `yaml:"subject"`
	ProjectKey string     `yaml:"project,omitempty"`
	Scopes     []string   `yaml:"scopes,omitempty"`
	ExpiresAt  *time.Time `yaml:"expires_at,omitempty"`
}

// DevModeConfig relaxes authentication for local development.
// Never enable in production.
type DevModeConfig struct {
	Enabled             bool   `yaml:"enabled"`
	FixedSecret         string `yaml:"fixed_secret,omitempty"`
	TokenExpiryMinutes  int    `yaml:"token_expiry_minutes,omitempty"`
	SecretExpiryMinutes int    `yaml:"secret_expiry_minutes,omitempty"`
}

// SecretsConfig defines webhook secret resolution settings.
type SecretsConfig struct {
	// Backend selects the secret store: "static", "sqlite" or "remote".
	Backend string `yaml:"backend"`

	// LookupTimeout bounds a single secret resolution. Timeouts are
	// treated as not-found (fail closed).
	LookupTimeout time.Duration `yaml:"lookup_timeout,omitempty"`

	Cache  CacheConfig         `yaml:"cache"`
	Remote RemoteSecretsConfig `yaml:"remote,omitempty"`

	// Static maps project key -> source -> secret.
	Static map[string]map[string]string `yaml:"static,omitempty"`
}

// CacheConfig defines the resolved-secret cache.
type CacheConfig struct {
	// Backend selects the cache: "memory", "redis" or "none".
	Backend string        `yaml:"backend,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`

	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// RemoteSecretsConfig defines the remote secret service lookup.
type RemoteSecretsConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
}

// StorageConfig defines SQLite storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "trellis-gw",
			LogLevel: "INFO",
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			MaxBodySize:     "1MB",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			DispatchTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			DevMode: DevModeConfig{
				Enabled:             false,
				TokenExpiryMinutes:  60,
				SecretExpiryMinutes: 5,
			},
		},
		Secrets: SecretsConfig{
			Backend:       "static",
			LookupTimeout: 2 * time.Second,
			Cache: CacheConfig{
				Backend: "memory",
				TTL:     5 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Path: "trellis-gw.db",
		},
	}
}
