// Package config loads runtime configuration from environment variables.
// A .env file is honored when present (godotenv). Required values are
// enforced at startup: the process refuses to boot with a missing database
// or a missing/short signing secret rather than failing per request later.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. The JWT secret is immutable for the
// process lifetime and read concurrently without synchronization.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string        // secret used to sign tokens, min 32 bytes
	AccessTTL      time.Duration // access token lifetime
	RefreshTTL     time.Duration // refresh token lifetime
	BcryptCost     int
	CookieSecure   bool   // set Secure on auth cookies (TLS deployments)
	AdminPassword  string // initial password for the seeded admin account
	SeedAdmin      bool   // create the default admin account at startup
}

// Load reads the environment and returns a validated Config. Missing or
// malformed required values are fatal.
func Load() Config {
	_ = godotenv.Load()

	secret := must("JWT_SECRET")
	if len(secret) < 32 {
		log.Fatalf("JWT_SECRET must be at least 32 bytes, got %d", len(secret))
	}

	return Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     secret,
		AccessTTL:     time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL:    time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:    envInt("BCRYPT_COST", 12),
		CookieSecure:  envBool("COOKIE_SECURE", false),
		AdminPassword: envStr("ADMIN_PASSWORD", "admin@123456"),
		SeedAdmin:     envBool("SEED_ADMIN", true),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
