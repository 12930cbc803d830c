// Package config handles configuration loading from YAML, CLI flags, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Proxy    ProxyConfig    `yaml:"proxy"`
	CA       CAConfig       `yaml:"ca"`
	Targets  TargetsConfig  `yaml:"targets"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Auth     SocksAuthConfig `yaml:"auth"`
}

// ProxyConfig configures the SOCKS5 front end.
type ProxyConfig struct {
	SocksListen string `yaml:"socks_listen"` // e.g., "localhost:1080"
	Host        string `yaml:"host"`         // Bind host (alternative to SocksListen)
	Port        int    `yaml:"port"`         // Bind port (alternative to SocksListen)
}

// CAConfig locates the interception root's key and certificate PEM files.
type CAConfig struct {
	KeyPath  string `yaml:"key_path"`
	CertPath string `yaml:"cert_path"`
}

// TargetsConfig restricts which CONNECT destinations get intercepted.
// Intercept and PassThrough are domain suffixes a la mitm.MatchDomainSuffix.
// An empty Intercept list means "intercept every CONNECT to port 443/80
// unless it matches PassThrough"; a non-empty list means "intercept only
// these, regardless of PassThrough".
type TargetsConfig struct {
	Intercept   []string `yaml:"intercept"`
	PassThrough []string `yaml:"passthrough"`
}

// ShutdownConfig controls how the proxy drains in-flight connections on exit.
type ShutdownConfig struct {
	Graceful bool          `yaml:"graceful"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SocksAuthConfig configures RFC 1929 username/password SOCKS5
// authentication. Username empty means no authentication is required.
type SocksAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultConfig returns a Config with secure defaults.
func DefaultConfig() *Config {
	return &Config{
		Proxy: ProxyConfig{
			SocksListen: "localhost:1080",
		},
		Targets: TargetsConfig{},
		Shutdown: ShutdownConfig{
			Graceful: true,
			Timeout:  10 * time.Second,
		},
	}
}

// ConfigDir returns the platform-specific config directory.
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "skunk"), nil
	default: // linux, darwin, etc.
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, ".config", "skunk"), nil
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultCAKeyPath returns the default CA private key path.
func DefaultCAKeyPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ca.key.pem"), nil
}

// DefaultCACertPath returns the default CA certificate path.
func DefaultCACertPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ca.cert.pem"), nil
}

// Load loads configuration from path, with environment variable overrides.
// If path does not exist, defaults (with platform-specific CA paths) are
// returned and no file is written.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	keyPath, err := DefaultCAKeyPath()
	if err != nil {
		return nil, fmt.Errorf("getting default CA key path: %w", err)
	}
	certPath, err := DefaultCACertPath()
	if err != nil {
		return nil, fmt.Errorf("getting default CA cert path: %w", err)
	}
	cfg.CA.KeyPath = keyPath
	cfg.CA.CertPath = certPath

	if path == "" {
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting default config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to the specified path with secure permissions.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKUNK_SOCKS_LISTEN"); v != "" {
		c.Proxy.SocksListen = v
	}
	if v := os.Getenv("SKUNK_CA_KEY_PATH"); v != "" {
		c.CA.KeyPath = v
	}
	if v := os.Getenv("SKUNK_CA_CERT_PATH"); v != "" {
		c.CA.CertPath = v
	}
	if v := os.Getenv("SKUNK_SOCKS_USERNAME"); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv("SKUNK_SOCKS_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
}

// SocksListenAddr returns the SOCKS5 listen address, handling host:port
// vs SocksListen field.
func (c *ProxyConfig) SocksListenAddr() string {
	if c.SocksListen != "" {
		return c.SocksListen
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 1080
	}
	return fmt.Sprintf("%s:%d", host, port)
}
