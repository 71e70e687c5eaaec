package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Verify validates the configuration: struct tags first, then rules that
// span fields.
func Verify(cfg *ServerConfig) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("cookie_name", validateCookieName); err != nil {
		return fmt.Errorf("register cookie_name validator: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}

	if err := verifyCredentials(&cfg.HTTPD); err != nil {
		return err
	}
	if err := verifyTLS(&cfg.HTTPD); err != nil {
		return err
	}
	return verifySession(&cfg.Session)
}

func verifyCredentials(cfg *HTTPDSection) error {
	switch {
	case cfg.Password == "" && cfg.PasswordHash == "":
		return errors.New("httpd: password or password_hash is required")
	case cfg.Password != "" && cfg.PasswordHash != "":
		return errors.New("httpd: specify password OR password_hash, not both")
	}
	return nil
}

func verifyTLS(cfg *HTTPDSection) error {
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("httpd: tls_cert_file and tls_key_file must be set together")
	}
	if cfg.TLSReload && cfg.TLSCertFile == "" {
		return errors.New("httpd: tls_reload requires tls_cert_file")
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	switch cfg.Store {
	case "file":
		if cfg.File == "" {
			return errors.New("session: file is required when store is file")
		}
	case "badger":
		if cfg.BadgerDir == "" {
			return errors.New("session: badger_dir is required when store is badger")
		}
		if cfg.EncryptionKey != "" {
			return errors.New("session: encryption_key is only supported with the file store")
		}
	}
	return nil
}

// validateCookieName accepts RFC 6265 token characters.
func validateCookieName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return true
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleValidationError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatSingleValidationError(e validator.FieldError) string {
	field := configPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "hostname_port":
		return field + " must be host:port"
	case "cookie_name":
		return field + " is not a valid cookie name"
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// configPath turns "ServerConfig.HTTPD.SessionTimeout" into a readable path.
func configPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
