package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Stripe   StripeConfig
	Email    EmailConfig
	SMS      SMSConfig
	Site     SiteConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr     string
	EventTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	ReservationCreated   string
	ReservationCancelled string
	OrderFinalized       string
}

// StorageConfig holds the object storage (Supabase storage API) settings.
type StorageConfig struct {
	URL        string // e.g. https://<project>.supabase.co/storage/v1
	ServiceKey string
	Bucket     string
}

type StripeConfig struct {
	SecretKey string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
}

type SMSConfig struct {
	APIURL     string // provider messages endpoint
	AccountSID string
	AuthToken  string
	FromNumber string
}

type SiteConfig struct {
	BaseURL string // public site URL embedded in QR confirmation links
}

type AuthConfig struct {
	OIDCIssuer  string
	GuestSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			EventTTL: time.Duration(getEnvInt("EVENT_CACHE_TTL_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				ReservationCreated:   getEnv("KAFKA_TOPIC_RESERVATION_CREATED", "nightlife.reservation.created"),
				ReservationCancelled: getEnv("KAFKA_TOPIC_RESERVATION_CANCELLED", "nightlife.reservation.cancelled"),
				OrderFinalized:       getEnv("KAFKA_TOPIC_ORDER_FINALIZED", "nightlife.order.finalized"),
			},
		},
		Storage: StorageConfig{
			URL:        getEnv("STORAGE_URL", ""),
			ServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "event-marketing"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("SMTP_FROM", "no-reply@velvetroom.club"),
		},
		SMS: SMSConfig{
			APIURL:     getEnv("SMS_API_URL", ""),
			AccountSID: getEnv("SMS_ACCOUNT_SID", ""),
			AuthToken:  getEnv("SMS_AUTH_TOKEN", ""),
			FromNumber: getEnv("SMS_FROM_NUMBER", ""),
		},
		Site: SiteConfig{
			BaseURL: getEnv("SITE_BASE_URL", "http://localhost:3000"),
		},
		Auth: AuthConfig{
			OIDCIssuer:  getEnv("OIDC_ISSUER", ""),
			GuestSecret: getEnv("GUEST_JWT_SECRET", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
