package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Domain API
	APIBaseURL     string
	RequestTimeout time.Duration

	// Identity Provider
	IDPTokenURL string
	IDPAPIKey   string

	// Cache
	CacheTTL time.Duration // 0は明示的な無効化まで新鮮とみなす

	// Outbound rate limit
	OutboundRatePerSec float64
	OutboundBurst      int

	// Image host
	ImageHostURL    string
	ImageHostAPIKey string
	ImageMaxSize    int64

	// devserver
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	cfg.IDPTokenURL = os.Getenv("IDP_TOKEN_URL")
	if cfg.IDPTokenURL == "" {
		missing = append(missing, "IDP_TOKEN_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.IDPAPIKey = getEnvString("IDP_API_KEY", "")
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 0)
	cfg.OutboundRatePerSec = getEnvFloat("OUTBOUND_RATE_PER_SEC", 10)
	cfg.OutboundBurst = getEnvInt("OUTBOUND_BURST", 20)
	cfg.ImageHostURL = getEnvString("IMAGE_HOST_URL", "https://api.imgbb.com/1/upload")
	cfg.ImageHostAPIKey = getEnvString("IMAGE_HOST_API_KEY", "")
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
