package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Password PasswordConfig
}

// PostgresConfig holds the user store connection settings. An empty DSN
// selects the in-memory store.
type PostgresConfig struct {
	DSN string
}

// RedisConfig holds identifier reservation settings. An empty URL disables
// reservations.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit streaming settings. Empty brokers disable the
// Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PasswordConfig carries the length bounds handed to the credential
// pipeline. Zero values take the pipeline defaults.
type PasswordConfig struct {
	MinLength int
	MaxLength int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CREDGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if raw := os.Getenv("CREDGATE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("CREDGATE_KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "credgate.audit"
	}

	return Server{
		Addr: addr,
		Postgres: PostgresConfig{
			DSN: os.Getenv("CREDGATE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CREDGATE_REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		Password: PasswordConfig{
			MinLength: envInt("CREDGATE_PASSWORD_MIN_LENGTH"),
			MaxLength: envInt("CREDGATE_PASSWORD_MAX_LENGTH"),
		},
	}
}

func envInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
