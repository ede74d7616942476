package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"feewatch/internal/logging"
)

// Alert channel identifiers accepted in alerting.channels.
const (
	ChannelSound    = "sound"
	ChannelTelegram = "telegram"
	ChannelRedis    = "redis"
	ChannelKafka    = "kafka"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// FeedConfig covers the mempool websocket endpoint.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	MaxReadErrors  int           `mapstructure:"max_read_errors"`
	CoinSymbol     string        `mapstructure:"coin_symbol"`
	StatusInterval time.Duration `mapstructure:"status_interval"` // zero disables the status log
	StaleAfter     time.Duration `mapstructure:"stale_after"`
}

// AlertingConfig defines the fee threshold, lookahead window and routing.
type AlertingConfig struct {
	ThresholdFeeRate float64        `mapstructure:"threshold_fee_rate"`
	WindowSize       int            `mapstructure:"window_size"`
	Channels         []string       `mapstructure:"channels"`
	Sound            SoundConfig    `mapstructure:"sound"`
	Telegram         TelegramConfig `mapstructure:"telegram"`
	Redis            RedisConfig    `mapstructure:"redis"`
	Kafka            KafkaConfig    `mapstructure:"kafka"`
}

// SoundConfig points at the local alert asset.
type SoundConfig struct {
	Path   string  `mapstructure:"path"`
	Volume float64 `mapstructure:"volume"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig routes alert events to a pub/sub channel.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// KafkaConfig routes alert events to a topic.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig exposes Prometheus collectors over HTTP when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxBlocks int `mapstructure:"max_blocks"`
}

// Load builds configuration from .env, config file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("FEEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv seeds the process environment from ./.env; a missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "feewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("feed.url", "wss://mempool.fractalbitcoin.io/api/v1/ws")
	v.SetDefault("feed.dial_timeout", "15s")
	v.SetDefault("feed.read_limit", int64(4<<20))
	v.SetDefault("feed.max_read_errors", 3)
	v.SetDefault("feed.coin_symbol", "FB")
	v.SetDefault("feed.status_interval", "1m")
	v.SetDefault("feed.stale_after", "2m")

	v.SetDefault("alerting.threshold_fee_rate", 560.0)
	v.SetDefault("alerting.window_size", 2)
	v.SetDefault("alerting.channels", []string{ChannelSound})
	v.SetDefault("alerting.sound.path", "assets/alert.wav")
	v.SetDefault("alerting.sound.volume", 1.0)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")
	v.SetDefault("alerting.redis.addr", "localhost:6379")
	v.SetDefault("alerting.redis.channel", "feewatch:alerts")
	v.SetDefault("alerting.kafka.topic", "feewatch.alerts")
	v.SetDefault("alerting.kafka.write_timeout", "10s")

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("export.max_blocks", 8)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must be configured")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must use ws:// or wss://, got %q", c.Feed.URL)
	}
	if c.Feed.MaxReadErrors <= 0 {
		return fmt.Errorf("feed.max_read_errors must be greater than zero")
	}
	if c.Feed.StatusInterval < 0 || c.Feed.StaleAfter < 0 {
		return fmt.Errorf("feed.status_interval and feed.stale_after cannot be negative")
	}
	if c.Alerting.ThresholdFeeRate < 0 {
		return fmt.Errorf("alerting.threshold_fee_rate cannot be negative")
	}
	if c.Alerting.WindowSize <= 0 {
		return fmt.Errorf("alerting.window_size must be greater than zero")
	}
	if c.Alerting.Sound.Volume < 0 || c.Alerting.Sound.Volume > 1 {
		return fmt.Errorf("alerting.sound.volume must be within [0, 1]")
	}
	if c.Export.MaxBlocks <= 0 {
		return fmt.Errorf("export.max_blocks must be greater than zero")
	}

	for _, channel := range c.Alerting.Channels {
		switch strings.ToLower(strings.TrimSpace(channel)) {
		case ChannelSound:
			if c.Alerting.Sound.Path == "" {
				return fmt.Errorf("alerting.sound.path 必须配置")
			}
		case ChannelTelegram:
			if c.Alerting.Telegram.BotToken == "" {
				return fmt.Errorf("alerting.telegram.bot_token 必须配置")
			}
			if c.Alerting.Telegram.ChatID == "" {
				return fmt.Errorf("alerting.telegram.chat_id 必须配置")
			}
		case ChannelRedis:
			if c.Alerting.Redis.Addr == "" || c.Alerting.Redis.Channel == "" {
				return fmt.Errorf("alerting.redis.addr and alerting.redis.channel are required")
			}
		case ChannelKafka:
			if len(c.Alerting.Kafka.Brokers) == 0 || c.Alerting.Kafka.Topic == "" {
				return fmt.Errorf("alerting.kafka.brokers and alerting.kafka.topic are required")
			}
		case "":
		default:
			return fmt.Errorf("unknown alert channel %q", channel)
		}
	}
	return nil
}

// HasChannel reports whether the named alert channel is enabled.
func (c *Config) HasChannel(name string) bool {
	for _, channel := range c.Alerting.Channels {
		if strings.EqualFold(strings.TrimSpace(channel), name) {
			return true
		}
	}
	return false
}

// ResolveMaxBlocks returns either the CLI override or config default.
func (c *Config) ResolveMaxBlocks(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxBlocks
}
