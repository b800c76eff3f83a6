package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	DefaultAuthURL     = "https://api.amazon.com/auth/o2/token"
	DefaultTokenCache  = "/share/.alexa-gateway.token"
	DefaultHTTPAddr    = ":8080"
	DefaultMQTTBroker  = "tcp://localhost:1883"
	DefaultTopicPrefix = "alexa-gateway"
)

type Config struct {
	EventURL     string
	AuthURL      string
	ClientID     string
	ClientSecret string
	TokenCache   string

	HTTPAddr string

	// RequestCounter is an optional counter entity incremented for every
	// directive.
	RequestCounter string

	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	TopicPrefix  string

	LogLevel  string
	LogFormat string
}

// Load reads .env when present and builds the configuration from the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		EventURL:       getenv("ALEXA_EVENT_URL"),
		AuthURL:        getenv("ALEXA_AUTH_URL"),
		ClientID:       getenv("ALEXA_CLIENT_ID"),
		ClientSecret:   getenv("ALEXA_CLIENT_SECRET"),
		TokenCache:     getenv("TOKEN_CACHE"),
		HTTPAddr:       getenv("HTTP_ADDR"),
		RequestCounter: getenv("REQUEST_COUNTER"),
		MQTTBroker:     getenv("MQTT_BROKER"),
		MQTTClientID:   getenv("MQTT_CLIENT_ID"),
		MQTTUsername:   getenv("MQTT_USERNAME"),
		MQTTPassword:   getenv("MQTT_PASSWORD"),
		TopicPrefix:    getenv("MQTT_TOPIC_PREFIX"),
		LogLevel:       getenv("LOG_LEVEL"),
		LogFormat:      getenv("LOG_FORMAT"),
	}

	if cfg.EventURL == "" {
		return nil, fmt.Errorf("ALEXA_EVENT_URL is required")
	}

	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenCache == "" {
		cfg.TokenCache = DefaultTokenCache
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.MQTTBroker == "" {
		cfg.MQTTBroker = DefaultMQTTBroker
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}

	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = generateClientID()
	}

	return cfg, nil
}

var invalidClientIDChars = regexp.MustCompile(`[^a-zA-Z0-9:_-]`)

func generateClientID() string {
	// Brokers commonly restrict client ids to [a-zA-Z0-9:_-]
	id := invalidClientIDChars.ReplaceAllString(uuid.New().String(), "-")
	return fmt.Sprintf("alexa-gateway-%s", id)
}
