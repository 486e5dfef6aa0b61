package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Booking    BookingConfig
	Credential CredentialConfig
}

type AppConfig struct {
	Port          string
	Env           string
	LogLevel      string
	MigrationsDir string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	TimeZone     string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// BookingConfig bounds the booking horizon and tunes the per-(doctor, date) lock.
type BookingConfig struct {
	HorizonDays        int
	FirstVisitMinQueue int
	FirstVisitMaxQueue int
	LockTTL            time.Duration
	LockRetries        int
	LockRetryDelay     time.Duration
}

type CredentialConfig struct {
	PickupTTL time.Duration
}

// LoadConfig reads configuration from the given .env file and the environment.
// A missing file is not an error; environment variables and defaults still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	config := &Config{
		App: AppConfig{
			Port:          v.GetString("APP_PORT"),
			Env:           v.GetString("APP_ENV"),
			LogLevel:      v.GetString("LOG_LEVEL"),
			MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		},
		DB: DBConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			TimeZone:     v.GetString("DB_TIMEZONE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: v.GetDuration("JWT_ACCESS_EXPIRY"),
		},
		Booking: BookingConfig{
			HorizonDays:        v.GetInt("BOOKING_HORIZON_DAYS"),
			FirstVisitMinQueue: v.GetInt("BOOKING_FIRST_VISIT_MIN_QUEUE"),
			FirstVisitMaxQueue: v.GetInt("BOOKING_FIRST_VISIT_MAX_QUEUE"),
			LockTTL:            v.GetDuration("BOOKING_LOCK_TTL"),
			LockRetries:        v.GetInt("BOOKING_LOCK_RETRIES"),
			LockRetryDelay:     v.GetDuration("BOOKING_LOCK_RETRY_DELAY"),
		},
		Credential: CredentialConfig{
			PickupTTL: v.GetDuration("CREDENTIAL_PICKUP_TTL"),
		},
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "clinic")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")

	v.SetDefault("BOOKING_HORIZON_DAYS", 30)
	v.SetDefault("BOOKING_FIRST_VISIT_MIN_QUEUE", 1)
	v.SetDefault("BOOKING_FIRST_VISIT_MAX_QUEUE", 50)
	v.SetDefault("BOOKING_LOCK_TTL", "5s")
	v.SetDefault("BOOKING_LOCK_RETRIES", 20)
	v.SetDefault("BOOKING_LOCK_RETRY_DELAY", "25ms")

	v.SetDefault("CREDENTIAL_PICKUP_TTL", "72h")
}

// Validate checks settings the service cannot run without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Booking.HorizonDays < 0 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must not be negative, got %d", c.Booking.HorizonDays)
	}
	if c.Booking.FirstVisitMinQueue < 1 || c.Booking.FirstVisitMinQueue > c.Booking.FirstVisitMaxQueue {
		return fmt.Errorf("invalid first visit queue range [%d,%d]", c.Booking.FirstVisitMinQueue, c.Booking.FirstVisitMaxQueue)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

// MigrationURL is the pgx/v5 URL understood by golang-migrate.
func (c DBConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
