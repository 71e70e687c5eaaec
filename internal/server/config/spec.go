package config

import "time"

// ServerConfig is the root configuration for statehttpd-server.
type ServerConfig struct {
	HTTPD   HTTPDSection   `koanf:"httpd"`
	Session SessionSection `koanf:"session"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// HTTPDSection configures the HTTP server and its authentication.
type HTTPDSection struct {
	Addr      string `koanf:"addr" validate:"required,hostname_port"`
	URIPrefix string `koanf:"uri_prefix" validate:"omitempty,startswith=/"`

	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	// TLSReload re-reads the certificate pair when either file changes.
	TLSReload bool `koanf:"tls_reload"`

	Username string `koanf:"username" validate:"required"`
	// Password is compared in constant time. PasswordHash, an argon2id
	// PHC string, is used instead when set.
	Password     string `koanf:"password"`
	PasswordHash string `koanf:"password_hash" validate:"omitempty,startswith=$argon2id$"`
	Realm        string `koanf:"realm" validate:"required"`

	SessionCookie  string        `koanf:"session_cookie" validate:"required,cookie_name"`
	SessionTimeout time.Duration `koanf:"session_timeout" validate:"gt=0"`

	ServeFiles  bool              `koanf:"serve_files"`
	StaticDirs  []StaticDir       `koanf:"static_dirs" validate:"dive"`
	Aliases     []Alias           `koanf:"aliases" validate:"dive"`
	MimeTypes   map[string]string `koanf:"mime_types"`
	DefaultMime string            `koanf:"default_mime" validate:"required"`

	AllowedOrigins []string `koanf:"allowed_origins"`
	// TrustedProxies lists peers (addresses or CIDRs) whose
	// X-Forwarded-For and X-Real-IP headers identify the client.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
	// RateLimit is requests per second per client address. Zero disables.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=0"`
}

// StaticDir maps a URL prefix onto a directory.
type StaticDir struct {
	Prefix string `koanf:"prefix" validate:"required,startswith=/"`
	Path   string `koanf:"path" validate:"required"`
}

// Alias rewrites requests for Alias (or below it) onto Dest.
type Alias struct {
	Alias string `koanf:"alias" validate:"required,startswith=/"`
	Dest  string `koanf:"dest" validate:"required,startswith=/"`
}

// SessionSection configures session persistence.
type SessionSection struct {
	// Store selects the repository: file, badger or none.
	Store     string `koanf:"store" validate:"oneof=file badger none"`
	File      string `koanf:"file"`
	BadgerDir string `koanf:"badger_dir"`
	// EncryptionKey is 64 hex characters; seals the session file.
	EncryptionKey string `koanf:"encryption_key" validate:"omitempty,hexadecimal,len=64"`
	// SweepInterval enables periodic purging of expired sessions.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=0"`
}

// MetricsSection configures the /metrics endpoint.
type MetricsSection struct {
	Enabled      bool `koanf:"enabled"`
	AuthRequired bool `koanf:"auth_required"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json text console"`
}
