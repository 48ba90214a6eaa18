package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RelayStreamAddr string `envconfig:"RELAY_STREAM_ADDR"`
	// RELAY_DATAGRAM_ADDR defaults to the stream address, both endpoints share the port
	RelayDatagramAddr string `envconfig:"RELAY_DATAGRAM_ADDR"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if cfg.RelayDatagramAddr == "" {
		cfg.RelayDatagramAddr = cfg.RelayStreamAddr
	}
	return cfg, err
}
