package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	PublicURL string // external base URL, used to build the OAuth redirect (ex: https://marks.domain.ext)

	// OAuth (Google)
	OAuthClientID     string
	OAuthClientSecret string
	SessionTTL        time.Duration // lifetime of a signed-in session (default: 7 days)

	// Views
	ViewIdleTTL      time.Duration // drop a browser's view after this much inactivity
	ViewReapInterval time.Duration // how often idle views are collected
	CookieSecure     bool          // mark the client cookie Secure (set behind https)

	// Storage
	StoreDriver      string        // "redis" | "badger"
	BadgerPath       string        // directory of the embedded database
	BadgerGCInterval time.Duration // value log GC interval

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict healthz/readyz to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	AuthRateBurst  int // sign-in/out requests allowed in a burst per IP
	AuthRatePerMin int // refill rate per IP
}

func Load() *Config {
	src := newSource(os.Getenv("MARKS_CONFIG_FILE"))

	cfg := &Config{
		// Server settings
		ListenPort:      src.getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: src.mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  src.getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: src.mustBool("MARKS_PRETTY_LOG", true),

		PublicURL: normalizeBaseURL(src.requireEnv("MARKS_PUBLIC_URL")),

		// OAuth
		OAuthClientID:     src.requireEnv("MARKS_OAUTH_CLIENT_ID"),
		OAuthClientSecret: src.requireEnv("MARKS_OAUTH_CLIENT_SECRET"),
		SessionTTL:        src.mustDuration("MARKS_SESSION_TTL", 7*24*time.Hour),

		// Views
		ViewIdleTTL:      src.mustDuration("MARKS_VIEW_IDLE_TTL", 30*time.Minute),
		ViewReapInterval: src.mustDuration("MARKS_VIEW_REAP_INTERVAL", time.Minute),
		CookieSecure:     src.mustBool("MARKS_COOKIE_SECURE", false),

		// Storage
		StoreDriver:      strings.ToLower(src.getenv("MARKS_STORE_DRIVER", StoreRedis)),
		BadgerPath:       src.getenv("MARKS_BADGER_PATH", "./data/badger"),
		BadgerGCInterval: src.mustDuration("MARKS_BADGER_GC_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisAddr:             src.getenv("MARKS_REDIS_ADDR", ""),
		RedisUser:             src.getenv("MARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: src.mustBool("MARKS_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         src.getenv("MARKS_REDIS_PASSWORD", ""),
		RedisDB:               src.getenvInt("MARKS_REDIS_DB", 0),
		RedisDT:               src.mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               src.mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               src.mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          src.mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      src.mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         src.getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   src.mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    src.mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    src.getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(src.getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(src.getenv("MARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   src.mustBool("MARKS_TRUST_PROXY", true),

		AuthRateBurst:  src.getenvInt("MARKS_AUTH_RATE_BURST", 10),
		AuthRatePerMin: src.getenvInt("MARKS_AUTH_RATE_PER_MIN", 30),
	}

	switch cfg.StoreDriver {
	case StoreRedis:
		if cfg.RedisAddr == "" {
			panic("❌ FATAL: MARKS_REDIS_ADDR is required when MARKS_STORE_DRIVER=redis")
		}
		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: MARKS_REDIS_PASSWORD is required when MARKS_REDIS_PASSWORD_REQUIRED=true")
		}
	case StoreBadger:
		if cfg.BadgerPath == "" {
			panic("❌ FATAL: MARKS_BADGER_PATH must not be empty when MARKS_STORE_DRIVER=badger")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown MARKS_STORE_DRIVER %q (want %q or %q)", cfg.StoreDriver, StoreRedis, StoreBadger))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.OAuthClientSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// OAuthRedirectURL is the callback URL registered with the provider.
func (c *Config) OAuthRedirectURL(provider string) string {
	return c.PublicURL + "/auth/callback/" + provider
}

// source resolves keys from the environment first, then from the optional YAML file.
type source struct {
	file map[string]string
}

// newSource reads a flat YAML mapping of KEY: value. An empty path means env only.
func newSource(path string) source {
	src := source{file: map[string]string{}}
	if path == "" {
		return src
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot read config file %s: %v", path, err))
	}

	values, err := parseFile(data)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid config file %s: %v", path, err))
	}
	src.file = values
	return src
}

func parseFile(data []byte) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			values[k] = strings.Join(parts, ",")
		case map[string]interface{}:
			return nil, fmt.Errorf("key %s: nested mappings are not supported", k)
		default:
			values[k] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// lookup prefers the environment whenever the variable is set, even to "",
// so an empty variable masks the file and falls back to the default.
func (s source) lookup(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return s.file[key]
}

// helpers
func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) requireEnv(key string) string {
	v := s.lookup(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func (s source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func normalizeBaseURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: MARKS_PUBLIC_URL must be an absolute URL, got %q", raw))
	}
	return strings.TrimRight(u.String(), "/")
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
