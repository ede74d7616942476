package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "wss://mempool.fractalbitcoin.io/api/v1/ws", cfg.Feed.URL)
	assert.Equal(t, 15*time.Second, cfg.Feed.DialTimeout)
	assert.Equal(t, 3, cfg.Feed.MaxReadErrors)
	assert.Equal(t, "FB", cfg.Feed.CoinSymbol)
	assert.Equal(t, time.Minute, cfg.Feed.StatusInterval)
	assert.Equal(t, 2*time.Minute, cfg.Feed.StaleAfter)
	assert.Equal(t, 560.0, cfg.Alerting.ThresholdFeeRate)
	assert.Equal(t, 2, cfg.Alerting.WindowSize)
	assert.Equal(t, []string{ChannelSound}, cfg.Alerting.Channels)
	assert.Equal(t, "assets/alert.wav", cfg.Alerting.Sound.Path)
	assert.Equal(t, 8, cfg.Export.MaxBlocks)
	assert.True(t, cfg.HasChannel("SOUND"))
	assert.False(t, cfg.HasChannel(ChannelKafka))
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feewatch.yaml")
	content := `
feed:
  url: ws://127.0.0.1:9000/api/v1/ws
  dial_timeout: 2s
alerting:
  threshold_fee_rate: 12.5
  window_size: 4
  channels: [sound, redis]
  redis:
    addr: redis:6379
    channel: fees
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000/api/v1/ws", cfg.Feed.URL)
	assert.Equal(t, 2*time.Second, cfg.Feed.DialTimeout)
	assert.Equal(t, 12.5, cfg.Alerting.ThresholdFeeRate)
	assert.Equal(t, 4, cfg.Alerting.WindowSize)
	assert.Equal(t, []string{"sound", "redis"}, cfg.Alerting.Channels)
	assert.Equal(t, "redis:6379", cfg.Alerting.Redis.Addr)
	assert.Equal(t, "fees", cfg.Alerting.Redis.Channel)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FEEWATCH_ALERTING_THRESHOLD_FEE_RATE", "3.5")
	t.Setenv("FEEWATCH_ALERTING_WINDOW_SIZE", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3.5, cfg.Alerting.ThresholdFeeRate)
	assert.Equal(t, 5, cfg.Alerting.WindowSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Feed:     FeedConfig{URL: "wss://example.org/ws", MaxReadErrors: 1},
			Alerting: AlertingConfig{ThresholdFeeRate: 1, WindowSize: 1, Channels: []string{ChannelSound}, Sound: SoundConfig{Path: "a.wav", Volume: 1}},
			Export:   ExportConfig{MaxBlocks: 1},
		}
	}

	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"http url":          func(c *Config) { c.Feed.URL = "https://example.org" },
		"empty url":         func(c *Config) { c.Feed.URL = "" },
		"negative fee":      func(c *Config) { c.Alerting.ThresholdFeeRate = -1 },
		"zero window":       func(c *Config) { c.Alerting.WindowSize = 0 },
		"loud volume":       func(c *Config) { c.Alerting.Sound.Volume = 2 },
		"no sound path":     func(c *Config) { c.Alerting.Sound.Path = "" },
		"unknown channel":   func(c *Config) { c.Alerting.Channels = []string{"pager"} },
		"telegram no token": func(c *Config) { c.Alerting.Channels = []string{ChannelTelegram} },
		"kafka no brokers":  func(c *Config) { c.Alerting.Channels = []string{ChannelKafka} },
		"zero read errors":  func(c *Config) { c.Feed.MaxReadErrors = 0 },
		"zero export":       func(c *Config) { c.Export.MaxBlocks = 0 },
		"negative status":   func(c *Config) { c.Feed.StatusInterval = -time.Second },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveMaxBlocks(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxBlocks: 8}}
	assert.Equal(t, 8, cfg.ResolveMaxBlocks(0))
	assert.Equal(t, 3, cfg.ResolveMaxBlocks(3))
}
