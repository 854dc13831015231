package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// minJWTKeyLen is the shortest HS256 key accepted (256 bits).
const minJWTKeyLen = 32

// Config holds all runtime configuration values. It is built once by Load at
// process start and passed by pointer to every component that needs it; no
// package reads the environment on its own after that.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBDriver    string // "mysql" or "postgres"
	DatabaseURL string // driver specific connection string
	DBMigrate   bool   // apply embedded migrations on startup

	JWTKey           string // symmetric key used to sign tokens
	JWTIssuer        string // iss claim
	JWTAudience      string // aud claim
	JWTExpireMinutes int    // token lifetime in minutes

	PasswordHasher string // "argon2id" or "bcrypt"
	BcryptCost     int    // bcrypt cost factor, used when PasswordHasher is bcrypt

	CORSOrigins []string // origins allowed to call the API from a browser

	LogLevel  string // debug, info, warn, error
	LogFormat string // json or text

	Cache  CacheConfig
	Redis  RedisConfig
	Events EventsConfig
}

// loader accumulates problems so that a misconfigured deployment reports
// every missing key at once instead of one per restart.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
		return ""
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
		return 0
	}
	return n
}

func (l *loader) fail(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

// Load reads configuration values from environment variables and returns a
// Config. Any missing or malformed required value makes Load return an error;
// callers treat it as fatal.
func Load() (*Config, error) {
	l := &loader{}
	cfg := &Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8080"),

		DBDriver:    strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DatabaseURL: l.must("DATABASE_URL"),
		DBMigrate:   envBool("DB_MIGRATE", true),

		JWTKey:           l.must("JWT_KEY"),
		JWTIssuer:        l.must("JWT_ISSUER"),
		JWTAudience:      l.must("JWT_AUDIENCE"),
		JWTExpireMinutes: l.mustInt("JWT_EXPIRE_MINUTES"),

		PasswordHasher: strings.ToLower(envStr("PASSWORD_HASHER", "argon2id")),
		BcryptCost:     envInt("BCRYPT_COST", 12),

		CORSOrigins: splitList(envStr("CORS_ORIGINS", "http://localhost:3000")),

		LogLevel:  strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envStr("LOG_FORMAT", "json")),

		Cache:  LoadCacheConfig(),
		Redis:  LoadRedisConfig(),
		Events: LoadEventsConfig(),
	}

	switch cfg.DBDriver {
	case "mysql", "postgres":
	default:
		l.fail("invalid DB_DRIVER %q: want mysql or postgres", cfg.DBDriver)
	}
	if cfg.JWTKey != "" && len(cfg.JWTKey) < minJWTKeyLen {
		l.fail("JWT_KEY must be at least %d bytes", minJWTKeyLen)
	}
	if _, ok := os.LookupEnv("JWT_EXPIRE_MINUTES"); ok && cfg.JWTExpireMinutes <= 0 {
		l.fail("JWT_EXPIRE_MINUTES must be positive")
	}
	switch cfg.PasswordHasher {
	case "argon2id", "bcrypt":
	default:
		l.fail("invalid PASSWORD_HASHER %q: want argon2id or bcrypt", cfg.PasswordHasher)
	}

	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
