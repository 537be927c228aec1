package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	OTPStore      string // "dynamo" | "redis" | "memory"
	OTPTTL        time.Duration
	OTPRateLimit  float64 // requests/second per client IP
	OTPRateBurst  int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdentityProvider        string // "firebase" | "local"
	FirebaseCredentialsFile string
	FirebaseProjectID       string
	LocalIDPPrivateKeyPath  string
	LocalIDPPublicKeyPath   string
	LocalIDPTokenExpiry     time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	MailBrand    string

	DefaultProfilePicture  string
	RegistrationIDAttempts int

	SNSRegion              string
	ReconciliationTopicARN string // empty disables SNS alerts; failures are still logged

	AllowedOrigins []string // CORS allowed origins
	TrustedProxies []string // IPs or CIDRs whose X-Forwarded-For / X-Real-Ip are honoured
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	UserEmails    string
	OTPChallenges string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			UserEmails:    getEnv("DYNAMO_TABLE_USER_EMAILS", "user_emails"),
			OTPChallenges: getEnv("DYNAMO_TABLE_OTP_CHALLENGES", "otp_challenges"),
		},
		OTPStore:      getEnv("OTP_STORE", "dynamo"),
		OTPTTL:        getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPRateLimit:  getEnvFloat("OTP_RATE_LIMIT", 1),
		OTPRateBurst:  getEnvInt("OTP_RATE_BURST", 3),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		IdentityProvider:        getEnv("IDENTITY_PROVIDER", "firebase"),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		LocalIDPPrivateKeyPath:  getEnv("LOCAL_IDP_PRIVATE_KEY_PATH", "./private_key.pem"),
		LocalIDPPublicKeyPath:   getEnv("LOCAL_IDP_PUBLIC_KEY_PATH", "./public_key.pem"),
		LocalIDPTokenExpiry:     getEnvDuration("LOCAL_IDP_TOKEN_EXPIRY", time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailBrand:    getEnv("MAIL_BRAND_NAME", "Marketplace"),

		DefaultProfilePicture:  getEnv("DEFAULT_PROFILE_PICTURE", "https://cdn-icons-png.flaticon.com/512/1361/1361913.png"),
		RegistrationIDAttempts: getEnvInt("REGISTRATION_ID_ATTEMPTS", 5),

		SNSRegion:              getEnv("SNS_REGION", "us-east-1"),
		ReconciliationTopicARN: getEnv("RECONCILIATION_TOPIC_ARN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustedProxies: strings.Split(getEnv("TRUSTED_PROXIES", ""), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration syntax ("10m", "90s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
