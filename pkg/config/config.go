package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	LLM       LLMConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Session   SessionConfig
	Metrics   MetricFetchConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

type LLMConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	MaxTokens       int
	TopP            float32
	ReasoningEffort string
	TimeoutSec      int
	Stream          bool
}

type RedisConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Password      string
	DB            int
	SessionTTLMin int
}

type SQLiteConfig struct {
	Path string
}

type SessionConfig struct {
	Window int
}

type MetricFetchConfig struct {
	TimeoutSec  int
	MaxAttempts int
}

type CORSConfig struct {
	Origins string
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mx32-chat")

	viper.SetEnvPrefix("MX32")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("firestore.projectId", "mx32-76c52")
	viper.SetDefault("firestore.credentialsFile", "")

	viper.SetDefault("llm.model", "gpt-oss-120b")
	viper.SetDefault("llm.baseUrl", "https://api.cerebras.ai/v1")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxTokens", 2000)
	viper.SetDefault("llm.topP", 1.0)
	viper.SetDefault("llm.reasoningEffort", "high")
	viper.SetDefault("llm.timeoutSec", 60)
	viper.SetDefault("llm.stream", false)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.sessionTTLMin", 1440)

	viper.SetDefault("sqlite.path", "./data/mx32chat.db")

	viper.SetDefault("session.window", 20)

	viper.SetDefault("metrics.timeoutSec", 10)
	viper.SetDefault("metrics.maxAttempts", 2)

	viper.SetDefault("cors.origins", "http://localhost:3000,http://localhost:3001")

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
