package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   string
	NatsURL        string
	JaegerEndpoint string
	Port           string
	Storage        string

	MerchantKey     string
	MerchantName    string
	MerchantCity    string
	ReferencePrefix string

	ConfirmGrace        time.Duration
	SweepInterval       time.Duration
	NotifyRetryInterval time.Duration

	// OperatorTokens maps a bearer token to the operator it identifies.
	OperatorTokens map[string]string
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	storage := os.Getenv("STORAGE")
	if storage == "" {
		storage = "postgres"
	}

	prefix, ok := os.LookupEnv("PIX_REFERENCE_PREFIX")
	if !ok {
		prefix = "ES"
	}

	grace, err := durationEnv("PIX_CONFIRM_GRACE", 0)
	if err != nil {
		return nil, err
	}
	sweep, err := durationEnv("PIX_SWEEP_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	retry, err := durationEnv("PIX_NOTIFY_RETRY_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	tokens, err := parseOperatorTokens(os.Getenv("PIX_OPERATOR_TOKENS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		NatsURL:             natsURL,
		JaegerEndpoint:      os.Getenv("JAEGER_ENDPOINT"),
		Port:                port,
		Storage:             storage,
		MerchantKey:         os.Getenv("PIX_MERCHANT_KEY"),
		MerchantName:        os.Getenv("PIX_MERCHANT_NAME"),
		MerchantCity:        os.Getenv("PIX_MERCHANT_CITY"),
		ReferencePrefix:     strings.ToUpper(prefix),
		ConfirmGrace:        grace,
		SweepInterval:       sweep,
		NotifyRetryInterval: retry,
		OperatorTokens:      tokens,
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE %q", c.Storage))
	}
	if c.MerchantKey == "" {
		errs = append(errs, errors.New("PIX_MERCHANT_KEY is required"))
	}
	if c.MerchantName == "" {
		errs = append(errs, errors.New("PIX_MERCHANT_NAME is required"))
	}
	if c.MerchantCity == "" {
		errs = append(errs, errors.New("PIX_MERCHANT_CITY is required"))
	}
	if c.ConfirmGrace < 0 {
		errs = append(errs, errors.New("PIX_CONFIRM_GRACE must not be negative"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("PIX_SWEEP_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseOperatorTokens reads "token:operator,token:operator".
func parseOperatorTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, operator, ok := strings.Cut(pair, ":")
		token, operator = strings.TrimSpace(token), strings.TrimSpace(operator)
		if !ok || token == "" || operator == "" {
			return nil, fmt.Errorf("invalid PIX_OPERATOR_TOKENS entry %q", pair)
		}
		tokens[token] = operator
	}
	return tokens, nil
}
