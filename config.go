package sender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Protocol selects the transport used to reach the carbon endpoint.
type Protocol string

const (
	ProtocolStream   Protocol = "stream"
	ProtocolDatagram Protocol = "datagram"
)

const (
	DefaultServer      = "localhost"
	DefaultPort        = 2003
	DefaultDialTimeout = 2 * time.Second
)

func (p Protocol) network() string {
	if p == ProtocolDatagram {
		return "udp"
	}
	return "tcp"
}

// Dialer opens the underlying socket. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config lists every option recognized by NewClient. Start from DefaultConfig.
type Config struct {
	Server string `mapstructure:"graphite_server" yaml:"graphite_server" validate:"required"`
	Port   int    `mapstructure:"graphite_port" yaml:"graphite_port" validate:"gte=1,lte=65535"`

	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	Suffix     string `mapstructure:"suffix" yaml:"suffix"`
	SystemName string `mapstructure:"system_name" yaml:"system_name"`
	Group      string `mapstructure:"group" yaml:"group"`
	// FQDNSquash replaces the dots of an auto detected host name with underscores.
	FQDNSquash bool `mapstructure:"fqdn_squash" yaml:"fqdn_squash"`

	LowercaseMetricNames bool `mapstructure:"lowercase_metric_names" yaml:"lowercase_metric_names"`

	Protocol     Protocol      `mapstructure:"protocol" yaml:"protocol" validate:"oneof=stream datagram"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`

	// DryRun formats messages without opening a socket or writing anything.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	Hostname HostnameFunc       `mapstructure:"-" yaml:"-" validate:"-"`
	Dialer   Dialer             `mapstructure:"-" yaml:"-" validate:"-"`
	Logger   logrus.FieldLogger `mapstructure:"-" yaml:"-" validate:"-"`
	Clock    func() time.Time   `mapstructure:"-" yaml:"-" validate:"-"`
}

func DefaultConfig() Config {
	return Config{
		Server:      DefaultServer,
		Port:        DefaultPort,
		SystemName:  SystemNameAuto,
		Protocol:    ProtocolStream,
		DialTimeout: DefaultDialTimeout,
	}
}

// Address returns the host:port of the carbon endpoint.
func (c Config) Address() string {
	return net.JoinHostPort(c.Server, fmt.Sprint(c.Port))
}

func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid graphite configuration: %w", err)
	}
	return nil
}

// ConfigFromMap decodes keyword style options on top of DefaultConfig. Unknown options are an error.
func ConfigFromMap(options map[string]any) (Config, error) {
	config := DefaultConfig()
	if len(options) == 0 {
		return config, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &config,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(options); err != nil {
		return Config{}, fmt.Errorf("error decoding graphite options: %w", err)
	}

	return config, nil
}

// ReadConfig decodes a YAML document on top of DefaultConfig. Unknown keys are an error.
func ReadConfig(fileBytes []byte) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(fileBytes))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error decoding config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}
