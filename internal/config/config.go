package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	redisstorage "github.com/AntonioRosa312/312-SuperSeniors/internal/storage/redis"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/web/ws"
)

// EnvPrefix prefixes every environment override, e.g. GOLF_SERVER_PORT
const EnvPrefix = "GOLF"

// Config is the server configuration
type Config struct {
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Storage struct {
		Type  string `mapstructure:"type"`
		Redis struct {
			URL            string        `mapstructure:"url"`
			PoolSize       int           `mapstructure:"pool_size"`
			MinIdleConns   int           `mapstructure:"min_idle_conns"`
			GuestPlayerTTL time.Duration `mapstructure:"guest_player_ttl"`
		} `mapstructure:"redis"`
	} `mapstructure:"storage"`

	Auth struct {
		SessionDuration time.Duration `mapstructure:"session_duration"`
		CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	} `mapstructure:"auth"`

	Websocket struct {
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		PingInterval   time.Duration `mapstructure:"ping_interval"`
		MaxMessageSize int64         `mapstructure:"max_message_size"`
		SendBufferSize int           `mapstructure:"send_buffer_size"`
	} `mapstructure:"websocket"`

	Game struct {
		Room string `mapstructure:"room"`
	} `mapstructure:"game"`
}

// Load reads configuration from defaults, an optional YAML file at path, and
// GOLF_* environment variables, in increasing precedence
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// Env overrides: server.port -> GOLF_SERVER_PORT
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.redis.url", EnvPrefix+"_STORAGE_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("storage.type", EnvPrefix+"_STORAGE_TYPE", "STORAGE_TYPE")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	srv := api.DefaultServerConfig()
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.level", "info")

	rd := redisstorage.DefaultConfig()
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.redis.url", rd.URL)
	v.SetDefault("storage.redis.pool_size", rd.PoolSize)
	v.SetDefault("storage.redis.min_idle_conns", rd.MinIdleConns)
	v.SetDefault("storage.redis.guest_player_ttl", rd.GuestPlayerTTL)

	v.SetDefault("auth.session_duration", auth.DefaultConfig().SessionDuration)
	v.SetDefault("auth.cleanup_interval", 5*time.Minute)

	wsc := ws.DefaultConfig()
	v.SetDefault("websocket.write_timeout", wsc.WriteTimeout)
	v.SetDefault("websocket.read_timeout", wsc.ReadTimeout)
	v.SetDefault("websocket.ping_interval", wsc.PingInterval)
	v.SetDefault("websocket.max_message_size", wsc.MaxMessageSize)
	v.SetDefault("websocket.send_buffer_size", wsc.SendBufferSize)

	v.SetDefault("game.room", "main")
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required (set GOLF_STORAGE_REDIS_URL or REDIS_URL)")
		}
	default:
		return fmt.Errorf("storage.type must be memory or redis, got %q", c.Storage.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// ServerConfig returns the HTTP server settings
func (c *Config) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// RedisConfig returns the Redis store settings
func (c *Config) RedisConfig() redisstorage.Config {
	return redisstorage.Config{
		URL:            c.Storage.Redis.URL,
		PoolSize:       c.Storage.Redis.PoolSize,
		MinIdleConns:   c.Storage.Redis.MinIdleConns,
		GuestPlayerTTL: c.Storage.Redis.GuestPlayerTTL,
	}
}

// AuthConfig returns the auth service settings
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{SessionDuration: c.Auth.SessionDuration}
}

// WebsocketConfig returns the websocket transport settings
func (c *Config) WebsocketConfig() ws.Config {
	wsc := ws.DefaultConfig()
	wsc.WriteTimeout = c.Websocket.WriteTimeout
	wsc.ReadTimeout = c.Websocket.ReadTimeout
	wsc.PingInterval = c.Websocket.PingInterval
	wsc.MaxMessageSize = c.Websocket.MaxMessageSize
	wsc.SendBufferSize = c.Websocket.SendBufferSize
	wsc.AllowedOrigins = c.Server.AllowedOrigins
	return wsc
}
