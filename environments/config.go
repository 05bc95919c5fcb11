package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Phone     PhoneConfig
	Relay     RelayConfig
	Scheduler SchedulerConfig
	Bulk      BulkConfig
	Alert     AlertConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GatewayConfig holds the messaging gateway credentials. AccessToken and
// PhoneNumberID are required before any outbound call is attempted.
type GatewayConfig struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	BusinessID    string
	AccessToken   string
	VerifyToken   string
	Timeout       time.Duration
}

type PhoneConfig struct {
	DefaultCountryCode string
	TrunkPrefix        string
	MobilePrefix       string
}

// RelayConfig points at the fire-and-forget email/SMS relay endpoints.
type RelayConfig struct {
	EmailURL string
	SMSURL   string
	AuthKey  string
	Timeout  time.Duration
}

type SchedulerConfig struct {
	TickInterval time.Duration
	MaxAttempts  int
}

type BulkConfig struct {
	MaxRecipients int
	SendDelay     time.Duration
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	APIKey          string
	SchedulerAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "crm"),
			Password: GetEnv("DB_PASSWORD", "crm123"),
			DBName:   GetEnv("DB_NAME", "crm_notifier"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			BaseURL:       GetEnv("GATEWAY_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    GetEnv("GATEWAY_API_VERSION", "v23.0"),
			PhoneNumberID: GetEnv("GATEWAY_PHONE_NUMBER_ID", ""),
			BusinessID:    GetEnv("GATEWAY_BUSINESS_ID", ""),
			AccessToken:   GetEnv("GATEWAY_ACCESS_TOKEN", ""),
			VerifyToken:   GetEnv("GATEWAY_VERIFY_TOKEN", ""),
			Timeout:       time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Phone: PhoneConfig{
			DefaultCountryCode: GetEnv("PHONE_DEFAULT_COUNTRY_CODE", "54"),
			TrunkPrefix:        GetEnv("PHONE_TRUNK_PREFIX", "0"),
			MobilePrefix:       GetEnv("PHONE_MOBILE_PREFIX", "9"),
		},
		Relay: RelayConfig{
			EmailURL: GetEnv("EMAIL_RELAY_URL", ""),
			SMSURL:   GetEnv("SMS_RELAY_URL", ""),
			AuthKey:  GetEnv("RELAY_AUTH_KEY", ""),
			Timeout:  time.Duration(GetEnvAsInt("RELAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			TickInterval: GetEnvAsDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			MaxAttempts:  GetEnvAsInt("SCHEDULER_MAX_ATTEMPTS", 3),
		},
		Bulk: BulkConfig{
			MaxRecipients: GetEnvAsInt("BULK_MAX_RECIPIENTS", 100),
			SendDelay:     GetEnvAsDuration("BULK_SEND_DELAY", 200*time.Millisecond),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			APIKey:          GetEnv("API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
