// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Push gateways.
const (
	GatewayExpo = "expo"
	GatewayFCM  = "fcm"
	GatewayAuto = "auto"
)

// Config holds application configuration.
type Config struct {
	Port string

	FirebaseProjectID            string
	GoogleApplicationCredentials string
	StoreBackend                 string

	InviteCodeLength      int
	InviteCodeMaxAttempts int
	LinkMaxAttempts       int

	PushGateway        string
	ExpoPushURL        string
	ExpoAccessToken    string
	PushSendTimeout    time.Duration
	PushMaxConcurrency int

	RedisURL string

	CORSAllowedOrigins []string
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:                         getEnv("PORT", "8080"),
		FirebaseProjectID:            firstEnv("FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		GoogleApplicationCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		StoreBackend:                 strings.ToLower(getEnv("STORE_BACKEND", StoreFirestore)),
		PushGateway:                  strings.ToLower(getEnv("PUSH_GATEWAY", GatewayAuto)),
		ExpoPushURL:                  os.Getenv("EXPO_PUSH_URL"),
		ExpoAccessToken:              os.Getenv("EXPO_ACCESS_TOKEN"),
		RedisURL:                     os.Getenv("REDIS_URL"),
		CORSAllowedOrigins:           getList("CORS_ALLOWED_ORIGINS", "*"),
	}

	var err error
	if cfg.InviteCodeLength, err = getInt("INVITE_CODE_LENGTH", 6); err != nil {
		return nil, err
	}
	if cfg.InviteCodeMaxAttempts, err = getInt("INVITE_CODE_MAX_ATTEMPTS", 7); err != nil {
		return nil, err
	}
	if cfg.LinkMaxAttempts, err = getInt("LINK_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.PushMaxConcurrency, err = getInt("PUSH_MAX_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.PushSendTimeout, err = getDuration("PUSH_SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend)
	}
	switch c.PushGateway {
	case GatewayExpo, GatewayFCM, GatewayAuto:
	default:
		return fmt.Errorf("PUSH_GATEWAY: unknown gateway %q", c.PushGateway)
	}
	if c.InviteCodeLength < 4 || c.InviteCodeLength > 64 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be between 4 and 64, got %d", c.InviteCodeLength)
	}
	if c.InviteCodeMaxAttempts < 1 {
		return fmt.Errorf("INVITE_CODE_MAX_ATTEMPTS must be positive, got %d", c.InviteCodeMaxAttempts)
	}
	if c.LinkMaxAttempts < 1 {
		return fmt.Errorf("LINK_MAX_ATTEMPTS must be positive, got %d", c.LinkMaxAttempts)
	}
	if c.PushMaxConcurrency < 1 {
		return fmt.Errorf("PUSH_MAX_CONCURRENCY must be positive, got %d", c.PushMaxConcurrency)
	}
	if c.PushSendTimeout <= 0 {
		return fmt.Errorf("PUSH_SEND_TIMEOUT must be positive, got %s", c.PushSendTimeout)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getList splits a comma-separated variable, dropping blank entries.
func getList(key, def string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
