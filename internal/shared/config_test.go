package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected addr 127.0.0.1:3000, got %s", config.Server.Addr())
		}
		if config.Session.Name != "toptracks" {
			t.Errorf("expected session name toptracks, got %s", config.Session.Name)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Credentials.Spotify.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.Credentials.Spotify.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Server.Port != DefaultConfig().Server.Port {
			t.Errorf("created config port doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[session]
secret = "s3cret"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Session.Name != "toptracks" {
			t.Errorf("unset values should keep defaults, got session name %q", config.Session.Name)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("LoadConfig with invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Load without a file uses defaults", func(t *testing.T) {
		config, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides credentials and secret", func(t *testing.T) {
		config := DefaultConfig()
		err := config.ApplyEnv(envMap(map[string]string{
			"SESSION_SECRET":        "from-env",
			"SPOTIFY_CLIENT_ID":     "id",
			"SPOTIFY_CLIENT_SECRET": "secret",
			"SPOTIFY_REDIRECT_URI":  "http://example.com/callback",
			"TOPTRACKS_ADDR":        "0.0.0.0:9000",
		}))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Session.Secret != "from-env" {
			t.Errorf("expected secret from env, got %s", config.Session.Secret)
		}
		if config.Credentials.Spotify.ClientID != "id" || config.Credentials.Spotify.ClientSecret != "secret" {
			t.Errorf("expected credentials from env, got %+v", config.Credentials.Spotify)
		}
		if config.Credentials.Spotify.RedirectURI != "http://example.com/callback" {
			t.Errorf("expected redirect uri from env, got %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Server.Addr() != "0.0.0.0:9000" {
			t.Errorf("expected addr from env, got %s", config.Server.Addr())
		}
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		config := DefaultConfig()
		err := config.ApplyEnv(envMap(map[string]string{"TOPTRACKS_ADDR": "nope"}))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("leaves unset values alone", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.ApplyEnv(envMap(nil)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.Session.Secret = "secret"
		c.Credentials.Spotify.ClientID = "id"
		c.Credentials.Spotify.ClientSecret = "secret"
		return c
	}

	tc := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Session.Secret = "" }, want: ErrMissingConfig},
		{name: "missing client id", mutate: func(c *Config) { c.Credentials.Spotify.ClientID = "" }, want: ErrMissingCredentials},
		{name: "missing client secret", mutate: func(c *Config) { c.Credentials.Spotify.ClientSecret = "" }, want: ErrMissingCredentials},
		{name: "missing redirect uri", mutate: func(c *Config) { c.Credentials.Spotify.RedirectURI = "" }, want: ErrMissingCredentials},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	c := DefaultConfig()
	c.Session.Secret = "secret"
	c.Credentials.Spotify.ClientSecret = "client-secret"
	c.Credentials.Spotify.ClientID = "id"

	r := c.Redacted()
	if r.Session.Secret == "secret" || r.Credentials.Spotify.ClientSecret == "client-secret" {
		t.Error("expected secrets to be masked")
	}
	if r.Credentials.Spotify.ClientID != "id" {
		t.Error("client id should not be masked")
	}
	if c.Session.Secret != "secret" {
		t.Error("original config should be unchanged")
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is skipped", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("loads variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "TOPTRACKS_TEST_NEW=loaded\nTOPTRACKS_TEST_SET=from-file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("TOPTRACKS_TEST_SET", "from-process")
		t.Setenv("TOPTRACKS_TEST_NEW", "")
		os.Unsetenv("TOPTRACKS_TEST_NEW")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := os.Getenv("TOPTRACKS_TEST_NEW"); got != "loaded" {
			t.Errorf("expected loaded, got %q", got)
		}
		if got := os.Getenv("TOPTRACKS_TEST_SET"); got != "from-process" {
			t.Errorf("existing variable should win, got %q", got)
		}
	})
}
