package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.HTTPD.Password != "" {
		sanitized.HTTPD.Password = maskSecret(sanitized.HTTPD.Password)
	}
	if sanitized.HTTPD.PasswordHash != "" {
		sanitized.HTTPD.PasswordHash = maskSecret(sanitized.HTTPD.PasswordHash)
	}
	if sanitized.Session.EncryptionKey != "" {
		sanitized.Session.EncryptionKey = maskSecret(sanitized.Session.EncryptionKey)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
