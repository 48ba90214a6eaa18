package main

import (
	"chat-relay/errors"
	"fmt"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config defines the peer-side environment variables.
type Config struct {
	RelayAddr      string `env:"RELAY_ADDR,default=127.0.0.1:8081" validate:"required,hostname_port"`
	MulticastGroup string `env:"MULTICAST_GROUP,default=239.255.255.250:9000" validate:"omitempty,hostname_port"`
	LogLevel       string `env:"LOG_LEVEL,default=WARN" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	NoColor        bool   `env:"NO_COLOR,default=false"`
}

func loadConfig() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return config, nil
}
