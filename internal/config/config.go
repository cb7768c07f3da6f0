package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strings" // strings normalizes enum-like values
    "time"    // time parses durations

    "github.com/joho/godotenv"    // godotenv loads a local .env file into the environment
    "github.com/sirupsen/logrus" // logrus reports configuration errors and halts execution
)

// Storage backends accepted in STORE.
const (
    StoreMySQL  = "mysql"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// timers, ints for token lifetimes.
type Config struct {
    Env              string        // application environment (e.g. "dev", "prod")
    Port             string        // HTTP port to listen on
    Store            string        // storage backend: "mysql" or "memory"
    DBUser           string        // database username
    DBPass           string        // database password (optional)
    DBHost           string        // database host address
    DBPort           string        // database port number
    DBName           string        // database name
    HoldTTL          time.Duration // how long a seat hold lasts
    SweepInterval    time.Duration // pause between expiry sweeps
    JWTSecret        string        // secret used to verify bearer tokens; empty disables auth
    AccessTTLMin     int           // access token time-to-live in minutes (token command)
    AMQPURL          string        // broker URL; empty disables event publishing
    ConsumerEnabled  bool          // run the booking log consumer inside serve
    BookingLogPath   string        // file the consumer appends to
    LogLevel         string        // logrus level
    LogFormat        string        // "json" or "text"
}

// Load reads a .env file when present and then the environment.  MySQL
// settings are required only when STORE is mysql; missing values cause the
// program to exit with a fatal log message.
func Load() Config {
    // A missing .env is normal outside local development.
    _ = godotenv.Load()

    cfg := Config{
        Env:             envStr("APP_ENV", "dev"),
        Port:            envStr("APP_PORT", "8080"),
        Store:           strings.ToLower(envStr("STORE", StoreMySQL)),
        DBPass:          os.Getenv("DB_PASS"),
        HoldTTL:         envDur("HOLD_TTL", 5*time.Minute),
        SweepInterval:   envDur("SWEEP_INTERVAL", 30*time.Second),
        JWTSecret:       os.Getenv("JWT_SECRET"),
        AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 60),
        AMQPURL:         amqpURL(),
        ConsumerEnabled: envBool("BOOKING_CONSUMER_ENABLED", false),
        BookingLogPath:  envStr("BOOKING_LOG_PATH", "logs/booking.log"),
        LogLevel:        envStr("LOG_LEVEL", "info"),
        LogFormat:       envStr("LOG_FORMAT", "json"),
    }
    switch cfg.Store {
    case StoreMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case StoreMemory:
    default:
        logrus.Fatalf("invalid STORE %q: want %q or %q", cfg.Store, StoreMySQL, StoreMemory)
    }
    if cfg.HoldTTL <= 0 {
        logrus.Fatalf("invalid HOLD_TTL %s", cfg.HoldTTL)
    }
    if cfg.SweepInterval <= 0 {
        logrus.Fatalf("invalid SWEEP_INTERVAL %s", cfg.SweepInterval)
    }
    return cfg
}

// AuthEnabled reports whether bearer tokens are required on mutating routes.
func (c Config) AuthEnabled() bool { return c.JWTSecret != "" }

func amqpURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
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
