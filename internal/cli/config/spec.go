package config

// CLIConfig is the configuration for statehttpd-cli.
type CLIConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// CAFile adds a PEM bundle to the system roots.
	CAFile   string `yaml:"ca_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`

	Output string `yaml:"output"` // table, json, yaml

	// SessionFile stores the session cookie issued by login.
	SessionFile string `yaml:"session_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://localhost:2501",
		Output: "table",
	}
}
