package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Session     SessionConfig     `toml:"session"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// AuthURL, TokenURL and APIURL are empty in normal use and fall back to Spotify's public endpoints.
type SpotifyConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RedirectURI    string `toml:"redirect_uri"`
	AuthURL        string `toml:"auth_url,omitempty"`
	TokenURL       string `toml:"token_url,omitempty"`
	APIURL         string `toml:"api_url,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout for calls to Spotify.
func (s SpotifyConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// SessionConfig contains settings for the signed session cookie.
type SessionConfig struct {
	Secret string `toml:"secret"`
	Name   string `toml:"name"`
	MaxAge int    `toml:"max_age"` // seconds
	Secure bool   `toml:"secure"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Burst             int    `toml:"burst"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SetAddr sets host and port from a host:port string.
func (s *ServerConfig) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: address %q: %v", ErrInvalidConfig, addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, port)
	}
	s.Host, s.Port = host, p
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// Load resolves the runtime configuration.
//
// The TOML file at path is optional; a missing file yields [DefaultConfig]. Environment variables are applied last.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
//
// Missing files are skipped and existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, f, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration values from the environment using lookup (normally [os.LookupEnv]).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := lookup("SPOTIFY_CLIENT_ID"); ok {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := lookup("SPOTIFY_CLIENT_SECRET"); ok {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := lookup("SPOTIFY_REDIRECT_URI"); ok {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v, ok := lookup("TOPTRACKS_ADDR"); ok && v != "" {
		if err := c.Server.SetAddr(v); err != nil {
			return fmt.Errorf("TOPTRACKS_ADDR: %w", err)
		}
	}
	return nil
}

// Validate reports the first missing value the web server cannot start without.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session secret (SESSION_SECRET)", ErrMissingConfig)
	}

	s := c.Credentials.Spotify
	switch {
	case s.ClientID == "":
		return fmt.Errorf("%w: spotify client_id (SPOTIFY_CLIENT_ID)", ErrMissingCredentials)
	case s.ClientSecret == "":
		return fmt.Errorf("%w: spotify client_secret (SPOTIFY_CLIENT_SECRET)", ErrMissingCredentials)
	case s.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri (SPOTIFY_REDIRECT_URI)", ErrMissingCredentials)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy of the config with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Session.Secret = mask(c.Session.Secret)
	c.Credentials.Spotify.ClientSecret = mask(c.Credentials.Spotify.ClientSecret)
	return c
}
