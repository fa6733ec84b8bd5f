package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MARKS_CONFIG_FILE", "")
	t.Setenv("MARKS_PUBLIC_URL", "https://marks.domain.ext/")
	t.Setenv("MARKS_OAUTH_CLIENT_ID", "client-id")
	t.Setenv("MARKS_OAUTH_CLIENT_SECRET", "client-secret")
	t.Setenv("MARKS_STORE_DRIVER", "badger")
	t.Setenv("MARKS_BADGER_PATH", t.TempDir())
	t.Setenv("MARKS_LOG_LEVEL", "error")
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := source{}.requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestSourcePrecedence(t *testing.T) {
	src := source{file: map[string]string{
		"TEST_FROM_FILE": "file",
		"TEST_BOTH":      "file",
		"TEST_EMPTY_ENV": "file",
	}}
	t.Setenv("TEST_BOTH", "env")
	t.Setenv("TEST_EMPTY_ENV", "")
	t.Setenv("TEST_FROM_FILE", "")
	if err := os.Unsetenv("TEST_FROM_FILE"); err != nil {
		t.Fatalf("failed to unset TEST_FROM_FILE: %v", err)
	}

	if got := src.getenv("TEST_FROM_FILE", "def"); got != "file" {
		t.Errorf("getenv(TEST_FROM_FILE) = %q, want %q", got, "file")
	}
	if got := src.getenv("TEST_BOTH", "def"); got != "env" {
		t.Errorf("getenv(TEST_BOTH) = %q, want %q", got, "env")
	}
	if got := src.getenv("TEST_EMPTY_ENV", "def"); got != "def" {
		t.Errorf("getenv(TEST_EMPTY_ENV) = %q, want %q: a set but empty variable masks the file", got, "def")
	}
	if got := src.getenv("TEST_NOWHERE", "def"); got != "def" {
		t.Errorf("getenv(TEST_NOWHERE) = %q, want %q", got, "def")
	}
}

func TestParseFile(t *testing.T) {
	data := []byte(`
MARKS_LISTEN_PORT: ":9090"
MARKS_PRETTY_LOG: false
MARKS_REDIS_DB: 2
MARKS_ALLOWED_HOSTS:
  - marks.domain.ext
  - "*.domain.ext"
MARKS_EMPTY:
`)

	values, err := parseFile(data)
	if err != nil {
		t.Fatalf("parseFile() error = %v", err)
	}

	want := map[string]string{
		"MARKS_LISTEN_PORT":   ":9090",
		"MARKS_PRETTY_LOG":    "false",
		"MARKS_REDIS_DB":      "2",
		"MARKS_ALLOWED_HOSTS": "marks.domain.ext,*.domain.ext",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("values[%s] = %q, want %q", k, values[k], v)
		}
	}
	if _, ok := values["MARKS_EMPTY"]; ok {
		t.Error("null values should be skipped")
	}
}

func TestParseFileRejectsNested(t *testing.T) {
	if _, err := parseFile([]byte("redis:\n  addr: localhost:6379\n")); err == nil {
		t.Error("parseFile() should reject nested mappings")
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			result := source{}.mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			result := source{}.mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a.ext , "b.ext",, 'c.ext' `)
	want := []string{"a.ext", "b.ext", "c.ext"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadBadger(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MARKS_VIEW_IDLE_TTL", "10m")
	t.Setenv("MARKS_ALLOWED_HOSTS", "marks.domain.ext, *.domain.ext")

	cfg := Load()

	if cfg.StoreDriver != StoreBadger {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, StoreBadger)
	}
	if cfg.PublicURL != "https://marks.domain.ext" {
		t.Errorf("PublicURL = %q, trailing slash should be trimmed", cfg.PublicURL)
	}
	if cfg.ViewIdleTTL != 10*time.Minute {
		t.Errorf("ViewIdleTTL = %v, want 10m", cfg.ViewIdleTTL)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v, want default 168h", cfg.SessionTTL)
	}
	if len(cfg.AllowedHosts) != 2 {
		t.Errorf("AllowedHosts = %v, want 2 entries", cfg.AllowedHosts)
	}
	if got := cfg.OAuthRedirectURL("google"); got != "https://marks.domain.ext/auth/callback/google" {
		t.Errorf("OAuthRedirectURL() = %q", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "marks.yaml")
	content := "MARKS_LISTEN_PORT: \":9191\"\nMARKS_OAUTH_CLIENT_ID: from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("MARKS_CONFIG_FILE", path)

	cfg := Load()

	if cfg.ListenPort != ":9191" {
		t.Errorf("ListenPort = %q, want value from file", cfg.ListenPort)
	}
	if cfg.OAuthClientID != "client-id" {
		t.Errorf("OAuthClientID = %q, environment should win over file", cfg.OAuthClientID)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{
			name: "unknown driver",
			setup: func(t *testing.T) {
				t.Setenv("MARKS_STORE_DRIVER", "postgres")
			},
		},
		{
			name: "redis without address",
			setup: func(t *testing.T) {
				t.Setenv("MARKS_STORE_DRIVER", "redis")
				t.Setenv("MARKS_REDIS_ADDR", "")
			},
		},
		{
			name: "redis without required password",
			setup: func(t *testing.T) {
				t.Setenv("MARKS_STORE_DRIVER", "redis")
				t.Setenv("MARKS_REDIS_ADDR", "localhost:6379")
				t.Setenv("MARKS_REDIS_PASSWORD", "")
				t.Setenv("MARKS_REDIS_PASSWORD_REQUIRED", "true")
			},
		},
		{
			name: "relative public url",
			setup: func(t *testing.T) {
				t.Setenv("MARKS_PUBLIC_URL", "/marks")
			},
		},
		{
			name: "missing oauth secret",
			setup: func(t *testing.T) {
				t.Setenv("MARKS_OAUTH_CLIENT_SECRET", "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			tt.setup(t)

			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}
