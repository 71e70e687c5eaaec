package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr       = "127.0.0.1:2501"
	DefaultUsername       = "admin"
	DefaultRealm          = "statehttpd"
	DefaultSessionCookie  = "KISMET"
	DefaultSessionTimeout = 7200 * time.Second
	DefaultMimeType       = "text/html"

	DefaultSessionStore = "file"
	DefaultSessionFile  = "/var/lib/statehttpd/sessions.json"
	DefaultBadgerDir    = "/var/lib/statehttpd/sessions.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration. It has no password
// and therefore does not pass Verify until credentials are configured.
func Default() *ServerConfig {
	return &ServerConfig{
		HTTPD: HTTPDSection{
			Addr:           DefaultHTTPAddr,
			Username:       DefaultUsername,
			Realm:          DefaultRealm,
			SessionCookie:  DefaultSessionCookie,
			SessionTimeout: DefaultSessionTimeout,
			DefaultMime:    DefaultMimeType,
		},
		Session: SessionSection{
			Store:     DefaultSessionStore,
			File:      DefaultSessionFile,
			BadgerDir: DefaultBadgerDir,
		},
		Metrics: MetricsSection{
			Enabled:      true,
			AuthRequired: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
