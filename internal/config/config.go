package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	Production bool

	MongoURI string
	MongoDB  string

	RedisAddr string

	RabbitURL      string
	RabbitExchange string

	// RSA signing keys for session tokens. Empty ActiveKeyPath generates an ephemeral key.
	ActiveKid     string
	ActiveKeyPath string
	NextKid       string
	NextKeyPath   string
	SessionTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	OAuthStateSecret   string

	// Where the emailed verification link sends the user back to.
	ContinueURL string
	PublicURL   string

	CatalogPath string

	VerifyCooldown    time.Duration
	VerifyMaxAttempts int
	VerifyResetWindow time.Duration
	// Server-side throttle for verification and reset mails, per identity.
	SendLimitPerHour int

	PageIdleTTL time.Duration

	// cmd/notifier
	NotifyQueue   string
	NotifyWorkers int

	// cmd/digest
	DigestSchedule    string
	DigestMaxAge      time.Duration
	DigestWorkers     int
	BoardTimeout      time.Duration
	DigestMetricsAddr string
}

func Load() Config {
	return Config{
		Port:       getenv("APP_PORT", "8080"),
		Production: getenv("APP_ENV", "dev") == "prod",

		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "dailyjobs"),

		RedisAddr: getenv("REDIS_ADDR", ""),

		RabbitURL:      getenv("RABBIT_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "dailyjobs.events"),

		ActiveKid:     getenv("JWT_ACTIVE_KID", "k1"),
		ActiveKeyPath: getenv("JWT_ACTIVE_KEY", ""),
		NextKid:       getenv("JWT_NEXT_KID", ""),
		NextKeyPath:   getenv("JWT_NEXT_KEY", ""),
		SessionTTL:    duration(getenv("SESSION_TTL", "1h"), time.Hour),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		OAuthStateSecret:   getenv("OAUTH_STATE_SECRET", "dev_state_secret"),

		ContinueURL: getenv("CONTINUE_URL", "https://advaitlad.github.io/DailyJobs/"),
		PublicURL:   getenv("PUBLIC_URL", "http://localhost:8080"),

		CatalogPath: getenv("CATALOG_PATH", "config/catalog.yaml"),

		VerifyCooldown:    duration(getenv("VERIFY_COOLDOWN", "60s"), time.Minute),
		VerifyMaxAttempts: atoi(getenv("VERIFY_MAX_ATTEMPTS", "3")),
		VerifyResetWindow: duration(getenv("VERIFY_RESET_WINDOW", "1h"), time.Hour),
		SendLimitPerHour:  atoi(getenv("SEND_LIMIT_PER_HOUR", "5")),

		PageIdleTTL: duration(getenv("PAGE_IDLE_TTL", "30m"), 30*time.Minute),

		NotifyQueue:   getenv("NOTIFY_QUEUE", "dailyjobs.mail"),
		NotifyWorkers: atoi(getenv("NOTIFY_WORKERS", "4")),

		DigestSchedule:    getenv("DIGEST_SCHEDULE", "0 8 * * *"),
		DigestMaxAge:      duration(getenv("DIGEST_MAX_AGE", "72h"), 72*time.Hour),
		DigestWorkers:     atoi(getenv("DIGEST_WORKERS", "4")),
		BoardTimeout:      duration(getenv("BOARD_TIMEOUT", "10s"), 10*time.Second),
		DigestMetricsAddr: getenv("DIGEST_METRICS_ADDR", ":9102"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func duration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
