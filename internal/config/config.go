package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"clinic-bot/internal/slots"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values come from env, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Clinic       ClinicConfig
	Followup     FollowupConfig
	Conversation ConversationConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// AutoMigrate applies embedded migrations at boot.
	AutoMigrate bool
}

// RedisConfig is optional. Without a host the process uses in-process
// caller locks.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type ClinicConfig struct {
	Name  string
	Slots []string
}

type FollowupConfig struct {
	// After is how old an appointment must be before it gets a follow-up.
	After time.Duration
	// Interval > 0 runs the scheduler in-process on that period.
	Interval time.Duration
}

type ConversationConfig struct {
	LockTTL time.Duration
}

const (
	DefaultPort          = 5000
	DefaultClinicName    = "ABC Clinic"
	DefaultFollowupAfter = 24 * time.Hour
	DefaultLockTTL       = 10 * time.Second
)

// LoadDotEnv loads path into the environment if it exists. Variables
// already set win over the file.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func Load() (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT", DefaultPort)
	c.App.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	if c.DB.Password == "" {
		c.DB.Password = os.Getenv("DB_PASS")
	}
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.AutoMigrate, parseErrs = optionalBool(parseErrs, "DB_AUTO_MIGRATE", true)

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", 6379)

	var err error
	c.Auth, err = loadAuth()
	if err != nil {
		parseErrs = append(parseErrs, err)
	}

	c.Clinic.Name = strings.TrimSpace(os.Getenv("CLINIC_NAME"))
	c.Clinic.Slots = splitList(os.Getenv("SLOT_CATALOG"))

	c.Followup.After, parseErrs = optionalDuration(parseErrs, "FOLLOWUP_AFTER")
	c.Followup.Interval, parseErrs = optionalDuration(parseErrs, "FOLLOWUP_INTERVAL")
	c.Conversation.LockTTL, parseErrs = optionalDuration(parseErrs, "CALLER_LOCK_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadAuth reads only the JWT settings, for tools that mint tokens.
func LoadAuth() (AuthConfig, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return AuthConfig{}, fmt.Errorf("load .env: %w", err)
	}
	a, err := loadAuth()
	if err != nil {
		return AuthConfig{}, err
	}
	a.applyDefaults()
	if a.JWTSecret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is required")
	}
	return a, nil
}

func loadAuth() (AuthConfig, error) {
	var errs []error
	a := AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
	}
	a.AccessTokenTTL, errs = optionalDuration(errs, "JWT_ACCESS_TTL")
	a.RefreshTokenTTL, errs = optionalDuration(errs, "JWT_REFRESH_TTL")
	return a, joinErrors(errs)
}

// Enabled reports whether the /v1 admin API should require bearer tokens.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

func (a *AuthConfig) applyDefaults() {
	if a.AccessTokenTTL <= 0 {
		a.AccessTokenTTL = 15 * time.Minute
	}
	if a.RefreshTokenTTL <= 0 {
		a.RefreshTokenTTL = 30 * 24 * time.Hour
	}
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.RedisEnabled() && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.Enabled() {
		if c.IsProduction() {
			if c.Auth.JWTIssuer == "" {
				errs = append(errs, errors.New("JWT_ISSUER is required in production"))
			}
			if c.Auth.JWTAudience == "" {
				errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
			}
		}
		c.Auth.applyDefaults()
		if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
			errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	if c.Clinic.Name == "" {
		c.Clinic.Name = DefaultClinicName
	}
	if len(c.Clinic.Slots) == 0 {
		c.Clinic.Slots = append([]string(nil), slots.DefaultCatalog...)
	}

	if c.Followup.After <= 0 {
		c.Followup.After = DefaultFollowupAfter
	}
	if c.Followup.Interval < 0 {
		errs = append(errs, fmt.Errorf("FOLLOWUP_INTERVAL must not be negative, got %s", c.Followup.Interval))
	}
	if c.Conversation.LockTTL <= 0 {
		c.Conversation.LockTTL = DefaultLockTTL
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// PostgresURL is the DSN in URL form, as golang-migrate expects.
func (c Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     "/" + c.DB.Name,
		RawQuery: url.Values{"sslmode": {c.DB.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalBool(errs []error, key string, def bool) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

// optionalDuration returns 0 when unset; defaults are applied in Validate.
func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
