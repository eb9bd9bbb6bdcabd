package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	TransportMemory = "memory"
	TransportAMQP   = "amqp"

	StorageMemory = "memory"
	StorageDisk   = "disk"
)

type TransportConfig struct {
	Kind           string
	Address        string
	Exchange       string
	DeleteExchange bool // remove the exchange from the broker on shutdown
}

type StorageConfig struct {
	Kind string
	Path string
}

type Config struct {
	ID              string
	Namespace       string
	LogLevel        string
	LogEnv          string
	Port            int
	Path            string
	Echo            bool
	HealthCheckPort int
	PingInterval    time.Duration
	Transport       TransportConfig
	Storage         StorageConfig
}

func (c Config) String() string {
	return fmt.Sprintf(
		"[CONFIG: ID: %s | Namespace: %s | Port: %d | Path: %s | LogLevel: %s | Transport: %s | Storage: %s | PingInterval: %s]",
		c.ID,
		c.Namespace,
		c.Port,
		c.Path,
		c.LogLevel,
		c.Transport.Kind,
		c.Storage.Kind,
		c.PingInterval,
	)
}

const CONFIG_FILE_PATH = "./config.yaml"

func InitConfig() (*Config, error) {
	return InitConfigWithPath(CONFIG_FILE_PATH)
}

// InitConfigWithPath reads path when it exists; environment variables always win.
func InitConfigWithPath(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = godotenv.Load(".env")
	v.AutomaticEnv()

	v.SetDefault("id", "relay")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "production")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.path", "/socket")
	v.SetDefault("server.echo", false)
	v.SetDefault("healthcheck.port", 8081)
	v.SetDefault("heartbeat.interval", 25)
	v.SetDefault("transport.kind", TransportMemory)
	v.SetDefault("middleware.exchange", "relay_exchange")
	v.SetDefault("middleware.delete_exchange", false)
	v.SetDefault("storage.kind", StorageMemory)
	v.SetDefault("storage.path", "storage")

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	v.BindEnv("id", "ID")
	v.BindEnv("namespace", "NAMESPACE")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.env", "LOG_ENV")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.path", "SERVER_PATH")
	v.BindEnv("server.echo", "SERVER_ECHO")
	v.BindEnv("healthcheck.port", "HEALTHCHECK_PORT")
	v.BindEnv("heartbeat.interval", "HEARTBEAT_INTERVAL")
	v.BindEnv("transport.kind", "TRANSPORT_KIND")
	v.BindEnv("middleware.address", "MIDDLEWARE_ADDRESS")
	v.BindEnv("middleware.exchange", "MIDDLEWARE_EXCHANGE")
	v.BindEnv("middleware.delete_exchange", "MIDDLEWARE_DELETE_EXCHANGE")
	v.BindEnv("storage.kind", "STORAGE_KIND")
	v.BindEnv("storage.path", "STORAGE_PATH")

	config := &Config{
		ID:              v.GetString("id"),
		Namespace:       v.GetString("namespace"),
		LogLevel:        v.GetString("log.level"),
		LogEnv:          v.GetString("log.env"),
		Port:            v.GetInt("server.port"),
		Path:            v.GetString("server.path"),
		Echo:            v.GetBool("server.echo"),
		HealthCheckPort: v.GetInt("healthcheck.port"),
		PingInterval:    time.Duration(v.GetInt("heartbeat.interval")) * time.Second,
		Transport: TransportConfig{
			Kind:           v.GetString("transport.kind"),
			Address:        v.GetString("middleware.address"),
			Exchange:       v.GetString("middleware.exchange"),
			DeleteExchange: v.GetBool("middleware.delete_exchange"),
		},
		Storage: StorageConfig{
			Kind: v.GetString("storage.kind"),
			Path: v.GetString("storage.path"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportMemory:
	case TransportAMQP:
		if c.Transport.Address == "" {
			return errors.New("middleware.address is required for the amqp transport")
		}
	default:
		return errors.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	switch c.Storage.Kind {
	case StorageMemory:
	case StorageDisk:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for disk storage")
		}
	default:
		return errors.Errorf("unknown storage kind %q", c.Storage.Kind)
	}

	if c.PingInterval <= 0 {
		return errors.Errorf("heartbeat.interval must be positive, got %s", c.PingInterval)
	}
	return nil
}
