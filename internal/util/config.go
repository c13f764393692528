package util

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/signinable/signind/internal/service"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultBearerTTL  = 15 * time.Minute
	defaultRefreshTTL = 2 * time.Hour
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

// SigninConfig is the session policy read from the environment. Restrictions
// come in as a comma-separated list, e.g. SIGNIN_RESTRICTIONS=ip,user_agent.
type SigninConfig struct {
	Secret        []byte
	BearerTTL     time.Duration
	RefreshTTL    time.Duration
	SingleSession bool
	Restrictions  []service.RestrictionField
}

func NewSigninConfig() *SigninConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	restrictions, err := service.ParseRestrictionFields(os.Getenv("SIGNIN_RESTRICTIONS"))
	if err != nil {
		log.Fatalf("Invalid SIGNIN_RESTRICTIONS: %v", err)
	}

	return &SigninConfig{
		Secret:        []byte(secret),
		BearerTTL:     parseDurationOrDefault("BEARER_TOKEN_TTL", defaultBearerTTL),
		RefreshTTL:    parseDurationOrDefault("REFRESH_TTL", defaultRefreshTTL),
		SingleSession: parseBoolOrDefault("SINGLE_SESSION", false),
		Restrictions:  restrictions,
	}
}

func GetWebhookURL() string {
	return os.Getenv("WEBHOOK_URL")
}

func GetAPIKey() string {
	return os.Getenv("SIGNIND_API_KEY")
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseBoolOrDefault(varName string, def bool) bool {
	if v := os.Getenv(varName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("Invalid bool in %s: %s, using default %t", varName, v, def)
	}
	return def
}
