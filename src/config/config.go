package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// const dsn = "host=localhost user=postgres password=password dbname=tourbook port=5432 sslmode=disable TimeZone=UTC"

var v = newViper()

func newViper() *viper.Viper {
	cfg := viper.New()
	cfg.AutomaticEnv()
	cfg.SetDefault("API_ENV", "local")
	cfg.SetDefault("PORT", "8080")
	cfg.SetDefault("DATABASE_HOST", "localhost")
	cfg.SetDefault("DATABASE_PORT", "5432")
	cfg.SetDefault("DATABASE_SSLMODE", "disable")
	cfg.SetDefault("DATABASE_TIMEZONE", "UTC")
	cfg.SetDefault("DATABASE_USER", "postgres")
	cfg.SetDefault("DATABASE_NAME", "tourbook")
	cfg.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	cfg.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	cfg.SetDefault("DATABASE_SLOW_QUERY", "500ms")
	cfg.SetDefault("PAYMENT_CURRENCY", "usd")
	cfg.SetDefault("CANCELLATION_CUTOFF", "24h")
	cfg.SetDefault("GATEWAY_TIMEOUT", "15s")
	cfg.SetDefault("DATASTORE_TIMEOUT", "10s")
	cfg.SetDefault("EVENTS_BROKER", "none")
	cfg.SetDefault("EVENTS_TOPIC", "BookingLifecycle")
	cfg.SetDefault("SQS_QUEUE_NAME", "booking-lifecycle")
	cfg.SetDefault("SMTP_PORT", 587)
	cfg.SetDefault("MAIL_FROM", "no-reply@tourbook.local")
	cfg.SetDefault("MAINTENANCE_MODE", false)
	cfg.SetDefault("LOG_DIR", "./logs")
	cfg.SetDefault("APP_HOST", "http://localhost:3000")
	return cfg
}

// Reload re-reads the process environment. Used after godotenv has
// populated it and by tests that change variables.
func Reload() {
	v = newViper()
}

func Set(key string, value any) {
	v.Set(key, value)
}

func GetDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		v.GetString("DATABASE_HOST"),
		v.GetString("DATABASE_USER"),
		v.GetString("DATABASE_PASSWORD"),
		v.GetString("DATABASE_NAME"),
		v.GetString("DATABASE_PORT"),
		v.GetString("DATABASE_SSLMODE"),
		v.GetString("DATABASE_TIMEZONE"),
	)
}

func Env() string {
	return strings.ToLower(v.GetString("API_ENV"))
}

func IsDevelopment() bool {
	env := Env()
	return env == "local" || env == "development"
}

func DBMaxOpenConns() int { return v.GetInt("DATABASE_MAX_OPEN_CONNS") }
func DBMaxIdleConns() int { return v.GetInt("DATABASE_MAX_IDLE_CONNS") }
func DBSlowQuery() time.Duration { return v.GetDuration("DATABASE_SLOW_QUERY") }
func Port() string { return v.GetString("PORT") }
func JWTSecret() string { return v.GetString("JWT_SECRET") }
func StripeSecretKey() string { return v.GetString("STRIPE_SECRET_KEY") }
func StripeWebhookSecret() string { return v.GetString("STRIPE_WEBHOOK_SECRET") }
func PaymentCurrency() string { return strings.ToLower(v.GetString("PAYMENT_CURRENCY")) }
func CancellationCutoff() time.Duration { return v.GetDuration("CANCELLATION_CUTOFF") }
func GatewayTimeout() time.Duration { return v.GetDuration("GATEWAY_TIMEOUT") }
func DatastoreTimeout() time.Duration { return v.GetDuration("DATASTORE_TIMEOUT") }
func RedisURL() string { return v.GetString("REDIS_HOST") }
func EventsBroker() string { return strings.ToLower(v.GetString("EVENTS_BROKER")) }
func KafkaBroker() string { return v.GetString("KAFKA_BROKER") }
func EventsTopic() string { return v.GetString("EVENTS_TOPIC") }
func SQSQueueName() string { return v.GetString("SQS_QUEUE_NAME") }
func SMTPHost() string { return v.GetString("SMTP_HOST") }
func SMTPPort() int { return v.GetInt("SMTP_PORT") }
func SMTPUsername() string { return v.GetString("SMTP_USERNAME") }
func SMTPPassword() string { return v.GetString("SMTP_PASSWORD") }
func MailFrom() string { return v.GetString("MAIL_FROM") }
func MaintenanceMode() bool { return v.GetBool("MAINTENANCE_MODE") }
func LogDir() string { return v.GetString("LOG_DIR") }
func AppHost() string { return v.GetString("APP_HOST") }

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"
