package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl          string
	Port           string
	RedisAddr      string
	RedisPassword  string
	NotifyWebhook  string
	PaymentGateway string
	USDTExpiry     time.Duration
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	expiryMinutes := 30
	if v := os.Getenv("USDT_EXPIRY_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			expiryMinutes = n
		}
	}

	return Config{
		DBUrl:          os.Getenv("DB_URL"),
		Port:           port,
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		NotifyWebhook:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		PaymentGateway: os.Getenv("PAYMENT_GATEWAY_URL"),
		USDTExpiry:     time.Duration(expiryMinutes) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
