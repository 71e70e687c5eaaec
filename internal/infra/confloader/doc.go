// Package confloader loads layered configuration with koanf.
//
// Sources, later overriding earlier: struct defaults, YAML file,
// environment, explicit overrides (command-line flags). Environment keys
// use a double underscore between levels so single underscores stay part
// of the key: STATEHTTPD_HTTPD__SESSION_TIMEOUT -> httpd.session_timeout.
//
// Watcher reports edits to the configuration file via fsnotify.
package confloader
