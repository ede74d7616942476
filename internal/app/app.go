package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"feewatch/internal/alerting"
	"feewatch/internal/audio"
	"feewatch/internal/config"
	"feewatch/internal/feed"
	"feewatch/internal/metrics"
	"feewatch/internal/service"
	"feewatch/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) feedOptions() feed.Options {
	return feed.Options{
		URL:           a.Config.Feed.URL,
		DialTimeout:   a.Config.Feed.DialTimeout,
		ReadLimit:     a.Config.Feed.ReadLimit,
		MaxReadErrors: a.Config.Feed.MaxReadErrors,
		UserAgent:     version.UserAgent(),
	}
}

// newNotifier builds the fan-out over every configured channel. The returned
// closer releases audio devices and broker connections.
func (a *App) newNotifier(ctx context.Context) (*alerting.Multi, func()) {
	multi := alerting.NewMulti(a.Logger)
	var closers []func()

	if a.Config.HasChannel(config.ChannelSound) {
		cfg := a.Config.Alerting.Sound
		player := audio.NewPlayer(cfg.Volume, a.Logger)
		if err := player.Preload(cfg.Path); err != nil {
			a.Logger.Warn().Err(err).Str("path", cfg.Path).Msg("alert sound unavailable; alerts will only be logged until it loads")
		}
		multi.Add(config.ChannelSound, alerting.NewSoundNotifier(player, cfg.Path, a.Logger))
		closers = append(closers, player.Close)
	}

	if a.Config.HasChannel(config.ChannelTelegram) {
		cfg := a.Config.Alerting.Telegram
		multi.Add(config.ChannelTelegram, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger))
	}

	if a.Config.HasChannel(config.ChannelRedis) {
		cfg := a.Config.Alerting.Redis
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis not reachable; alert publishing may fail")
		}
		cancel()
		multi.Add(config.ChannelRedis, alerting.NewRedisNotifier(client, cfg.Channel, a.Logger))
		closers = append(closers, func() { _ = client.Close() })
	}

	if a.Config.HasChannel(config.ChannelKafka) {
		cfg := a.Config.Alerting.Kafka
		notifier := alerting.NewKafkaNotifier(alerting.NewKafkaWriter(cfg.Brokers, cfg.Topic, cfg.WriteTimeout), cfg.WriteTimeout, a.Logger)
		multi.Add(config.ChannelKafka, notifier)
		closers = append(closers, func() { _ = notifier.Close() })
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return multi, closeAll
}

func (a *App) startMetrics() func() {
	addr := a.Config.Metrics.ListenAddr
	if addr == "" {
		return func() {}
	}

	srv := metrics.NewServer(addr, a.Logger)
	srv.Start()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("metrics server shutdown failed")
		}
	}
}

// Run monitors the feed with the configured threshold and window.
func (a *App) Run(ctx context.Context) error {
	return a.Monitor(ctx, a.Config.Alerting.ThresholdFeeRate, a.Config.Alerting.WindowSize)
}

// Monitor streams projected blocks and alerts whenever one of the next window
// blocks has a minimum fee rate below threshold. It returns once the feed closes;
// only connection and handshake failures are errors.
func (a *App) Monitor(ctx context.Context, threshold float64, window int) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier, closeNotifier := a.newNotifier(ctx)
	defer closeNotifier()

	stopMetrics := a.startMetrics()
	defer stopMetrics()

	a.Logger.Info().
		Float64("threshold_fee_rate", threshold).
		Int("window_size", window).
		Strs("channels", notifier.Channels()).
		Msg("starting mempool fee monitor")

	svc := service.New(service.Options{
		ThresholdFeeRate: threshold,
		WindowSize:       window,
		CoinSymbol:       a.Config.Feed.CoinSymbol,
	}, notifier, a.Logger)

	a.startStatusReporter(ctx, svc)

	client := feed.NewClient(a.feedOptions(), a.Logger)
	if err := client.Run(ctx, svc); err != nil {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("mempool fee monitor stopped")
	return nil
}

// ExportOptions hold parameters for exporting the current projection.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxBlocks int
	Timeout   time.Duration
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	Timeout time.Duration
}
