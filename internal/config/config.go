package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIServerConfig 保存 API 服务器特有的配置。
type APIServerConfig struct {
	Host string     `mapstructure:"HOST"`
	Port string     `mapstructure:"PORT"`
	CORS CORSConfig `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig    `mapstructure:"SERVER"`     // ChatServer 的配置
	APIServer  APIServerConfig `mapstructure:"API_SERVER"` // API 服务器配置
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Storage    StorageConfig   `mapstructure:"STORAGE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Feed       FeedConfig      `mapstructure:"FEED"`
	Swipes     SwipesConfig    `mapstructure:"SWIPES"`
	Payments   PaymentsConfig  `mapstructure:"PAYMENTS"`
}

// ServerConfig holds configuration for the chat HTTP server.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"BROKERS"`
	ClientID        string   `mapstructure:"CLIENT_ID"`
	ChatEventsTopic string   `mapstructure:"CHAT_EVENTS_TOPIC"` // 新消息、新会话，推送给在线的参与者
	ConsumerGroup   string   `mapstructure:"CONSUMER_GROUP"`    // ChatServer 消费者组
	Protocol        string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
	// Path is used when Type is "sqlite".
	Path string `mapstructure:"PATH"`
}

// StorageConfig holds configuration for cover, audio and profile picture storage.
type StorageConfig struct {
	Type           string `mapstructure:"TYPE"` // "local"
	LocalPath      string `mapstructure:"LOCAL_PATH"`
	BaseURL        string `mapstructure:"BASE_URL"`
	MaxImageSizeMB int64  `mapstructure:"MAX_IMAGE_SIZE_MB"`
	MaxAudioSizeMB int64  `mapstructure:"MAX_AUDIO_SIZE_MB"`
}

// AuthConfig holds configuration for authentication (e.g., JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int     `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int     `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int     `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int     `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
	MessagesPerSecond   float64 `mapstructure:"MESSAGES_PER_SECOND"`
	MessageBurst        int     `mapstructure:"MESSAGE_BURST"`
}

// FeedConfig bounds the swipe feed.
type FeedConfig struct {
	PageSize    int `mapstructure:"PAGE_SIZE"`
	MaxPageSize int `mapstructure:"MAX_PAGE_SIZE"`
}

// SwipesConfig 控制撤销历史。
type SwipesConfig struct {
	UndoHistorySize int           `mapstructure:"UNDO_HISTORY_SIZE"`
	UndoHistoryTTL  time.Duration `mapstructure:"UNDO_HISTORY_TTL"`
}

// PaymentsConfig 保存支付回调相关配置。
type PaymentsConfig struct {
	SongPriceCents int64  `mapstructure:"SONG_PRICE_CENTS"`
	Currency       string `mapstructure:"CURRENCY"`
	WebhookSecret  string `mapstructure:"WEBHOOK_SECRET"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "Muse")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")

	// Server Defaults (ChatServer)
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws/chat")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	// APIServer Defaults
	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "8081")
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:8081", "http://localhost:19006"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300) // 5 minutes

	// Kafka Defaults
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "muse-go-client")
	v.SetDefault("KAFKA.CHAT_EVENTS_TOPIC", "muse-chat-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "muse-chat-server-group")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")

	// Database Defaults
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "muse_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.PATH", "muse.db")

	// Storage Defaults (limits from the mobile pickers: 5 MB images, 20 MB audio)
	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_IMAGE_SIZE_MB", 5)
	v.SetDefault("STORAGE.MAX_AUDIO_SIZE_MB", 20)

	// Auth Defaults
	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 24*time.Hour)

	// Redis Defaults
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// WebSocket Defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 4096)
	v.SetDefault("WEBSOCKET.MESSAGES_PER_SECOND", 5.0)
	v.SetDefault("WEBSOCKET.MESSAGE_BURST", 10)

	// Feed / Swipes / Payments
	v.SetDefault("FEED.PAGE_SIZE", 50)
	v.SetDefault("FEED.MAX_PAGE_SIZE", 200)
	v.SetDefault("SWIPES.UNDO_HISTORY_SIZE", 50)
	v.SetDefault("SWIPES.UNDO_HISTORY_TTL", 24*time.Hour)
	v.SetDefault("PAYMENTS.SONG_PRICE_CENTS", 2500) // $25.00
	v.SetDefault("PAYMENTS.CURRENCY", "USD")
	v.SetDefault("PAYMENTS.WEBHOOK_SECRET", "change_me_payment_webhook_secret")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// 环境变量覆盖，例如 SERVER_PORT 覆盖 Server.Port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return
		}
		// 没有配置文件时使用默认值
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
