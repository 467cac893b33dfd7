package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds the core runtime configuration.  Optional feature blocks
// (cache, rate limit, redis, queue, slips, tracing) have their own
// loaders in this package.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// AdminHorizonDays is the default window of admin calendar reads
	// and of seeding.
	AdminHorizonDays int
	// PublicHorizonDays is the default window of public calendar reads.
	PublicHorizonDays int
}

// Load reads configuration values from environment variables.  Missing
// required variables are fatal.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"), // empty allowed
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:    mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:        mustInt("BCRYPT_COST"),
		AdminHorizonDays:  intOr("AVAILABILITY_HORIZON_DAYS", 60),
		PublicHorizonDays: intOr("PUBLIC_HORIZON_DAYS", 30),
	}
}

// LoadDB reads only the database settings; used by CLI commands that do
// not serve HTTP.
func LoadDB() Config {
	return Config{
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		BcryptCost: intOr("BCRYPT_COST", 12),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func intOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
