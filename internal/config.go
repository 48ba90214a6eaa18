package internal

import (
	"chat-relay/errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config is the relay configuration, read from the environment.
// Both endpoints share Host and Port: the stream and datagram sockets are distinct.
type Config struct {
	Host                 string        `env:"RELAY_HOST,default=127.0.0.1" validate:"required"`
	Port                 int           `env:"RELAY_PORT,default=8081" validate:"gte=0,lte=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024" validate:"gt=0"`
	ReadBufferSize       int           `env:"READ_BUFFER_SIZE,default=1024" validate:"gte=64"`
	OutboxSize           int           `env:"OUTBOX_SIZE,default=64" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=2s" validate:"gt=0"`
	ReadRetryMaxElapsed  time.Duration `env:"READ_RETRY_MAX_ELAPSED,default=5s" validate:"gt=0"`
	DatagramPeerTTL      time.Duration `env:"DATAGRAM_PEER_TTL,default=0s" validate:"gte=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16" validate:"gte=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig(files ...string) (Config, error) {
	// A missing .env file is not an error, the environment may be enough
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

// Address is the local address bound by both relay endpoints.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
