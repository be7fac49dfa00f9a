package config

import (
	"fmt"  // For DSN formatting
	"time" // For durations

	"github.com/joho/godotenv" // For loading .env files
	"github.com/spf13/viper"   // For typed environment lookups with defaults
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	PlatformWalletID string // Wallet receiving every donation
	PlatformUsername string // Owner of the platform wallet
	PlatformEmail    string // Email of the platform owner

	PasswordMinLength    int // Minimum password length
	DescriptionMinLength int // Minimum length of donation description and about-me texts

	OTPTTL         time.Duration // Lifetime of a one-time code
	OTPMaxAttempts int           // Wrong guesses allowed before a code is discarded
	ResetTTL       time.Duration // Lifetime of a password reset grant
	SessionTTL     time.Duration // Lifetime of a sign-in token
	RememberTTL    time.Duration // Lifetime of a sign-in token with "remember me"
	CacheTTL       time.Duration // Lifetime of cached wallet and history reads

	MailHost     string // SMTP host, empty means log mail instead of sending
	MailPort     int    // SMTP port
	MailUsername string // SMTP user
	MailPassword string // SMTP password
	MailSender   string // From address
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present

	v := viper.New() // Isolated viper instance
	v.AutomaticEnv() // Read every key from the environment
	setDefaults(v)

	return &Config{
		AppPort:    v.GetString("APP_PORT"),    // Application port
		DBUser:     v.GetString("DB_USER"),     // Database user
		DBPassword: v.GetString("DB_PASSWORD"), // Database password
		DBHost:     v.GetString("DB_HOST"),     // Database host
		DBPort:     v.GetString("DB_PORT"),     // Database port
		DBName:     v.GetString("DB_NAME"),     // Database name
		JWTSecret:  v.GetString("JWT_SECRET"),  // JWT secret key
		RedisAddr:  v.GetString("REDIS_ADDR"),  // Redis server address
		RedisPass:  v.GetString("REDIS_PASS"),  // Redis password
		RedisDB:    v.GetInt("REDIS_DB"),       // Redis database number
		IsProd:     v.GetBool("IS_PROD"),       // Is production environment

		PlatformWalletID: v.GetString("PLATFORM_WALLET_ID"),
		PlatformUsername: v.GetString("PLATFORM_USERNAME"),
		PlatformEmail:    v.GetString("PLATFORM_EMAIL"),

		PasswordMinLength:    v.GetInt("PASSWORD_MIN_LENGTH"),
		DescriptionMinLength: v.GetInt("DESCRIPTION_MIN_LENGTH"),

		OTPTTL:         v.GetDuration("OTP_TTL"),
		OTPMaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
		ResetTTL:       v.GetDuration("RESET_TTL"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		RememberTTL:    v.GetDuration("REMEMBER_TTL"),
		CacheTTL:       v.GetDuration("CACHE_TTL"),

		MailHost:     v.GetString("MAIL_HOST"),
		MailPort:     v.GetInt("MAIL_PORT"),
		MailUsername: v.GetString("MAIL_USERNAME"),
		MailPassword: v.GetString("MAIL_PASSWORD"),
		MailSender:   v.GetString("MAIL_SENDER"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PLATFORM_USERNAME", "eco-donate")
	v.SetDefault("PLATFORM_EMAIL", "platform@eco-donate.local")
	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("DESCRIPTION_MIN_LENGTH", 20)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("RESET_TTL", "10m")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("REMEMBER_TTL", "720h")
	v.SetDefault("CACHE_TTL", "60s")
	v.SetDefault("MAIL_PORT", 465)
	v.SetDefault("MAIL_SENDER", "no-reply@eco-donate.local")
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	// clientFoundRows makes guarded balance updates report matched rows, not changed rows
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local&clientFoundRows=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
