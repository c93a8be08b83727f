package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN              string
	MongoURI           string
	RedisAddr          string
	RabbitURL          string
	RoomLockTTL        time.Duration
	CompletionInterval time.Duration
	OTLPEndpoint       string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	lockTTL, _ := time.ParseDuration(os.Getenv("ROOM_LOCK_TTL"))
	if lockTTL == 0 {
		lockTTL = 30 * time.Second
	}

	completionInterval, _ := time.ParseDuration(os.Getenv("COMPLETION_INTERVAL"))
	if completionInterval == 0 {
		completionInterval = time.Hour
	}

	return &Config{
		DBDSN:              os.Getenv("DB_DSN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RabbitURL:          os.Getenv("RABBIT_URL"),
		RoomLockTTL:        lockTTL,
		CompletionInterval: completionInterval,
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
