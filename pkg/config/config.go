package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MarkReadScopeGlobal       = "global"
	MarkReadScopeConversation = "conversation"
)

type Config struct {
	ServerPort         string
	FirebaseProject    string
	ServiceAccountJSON string
	ServiceAccountPath string
	Environment        string
	StorageBucket      string

	AMQPURL      string
	AMQPExchange string

	Chat ChatConfig
}

// ChatConfig holds the tunables of the synchronization sessions.
type ChatConfig struct {
	PageSize           int
	MarkReadScope      string
	SendRatePerMinute  int
	ListenerMaxRetries uint64
	SessionIdleTimeout time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", "./firebase-adminsdk.json"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "quillchat.events"),
		Chat: ChatConfig{
			PageSize:           int(getEnvAsInt64("CHAT_PAGE_SIZE", 50)),
			MarkReadScope:      getMarkReadScope("CHAT_MARK_READ_SCOPE"),
			SendRatePerMinute:  int(getEnvAsInt64("CHAT_SEND_RATE_PER_MINUTE", 30)),
			ListenerMaxRetries: uint64(getEnvAsInt64("CHAT_LISTENER_MAX_RETRIES", 5)),
			SessionIdleTimeout: getEnvAsDuration("CHAT_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		},
	}

	return config, nil
}

// DefaultChatConfig returns the chat settings used when no environment is loaded.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		PageSize:           50,
		MarkReadScope:      MarkReadScopeGlobal,
		SendRatePerMinute:  30,
		ListenerMaxRetries: 5,
		SessionIdleTimeout: 30 * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getMarkReadScope(key string) string {
	switch strings.ToLower(getEnv(key, MarkReadScopeGlobal)) {
	case MarkReadScopeConversation:
		return MarkReadScopeConversation
	default:
		return MarkReadScopeGlobal
	}
}
