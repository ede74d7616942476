package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feewatch/internal/config"
	"feewatch/internal/mempool"
	"feewatch/internal/service"
)

const projectionPayload = `{"mempool-blocks":[` +
	`{"medianFee":600,"feeRange":[580,900],"totalFees":250000000,"nTx":12345},` +
	`{"medianFee":500,"feeRange":[450,700],"totalFees":120000000,"nTx":800},` +
	`{"medianFee":100,"feeRange":[1,200],"totalFees":5000000,"nTx":42}]}`

// newProjectionServer 完成握手后推送给定消息并正常关闭连接。
func newProjectionServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept websocket: %v", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for i := 0; i < 2; i++ {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
		for _, frame := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(feedURL string) *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{
			URL:           feedURL,
			DialTimeout:   time.Second,
			MaxReadErrors: 3,
			CoinSymbol:    "FB",
		},
		Alerting: config.AlertingConfig{
			ThresholdFeeRate: 560,
			WindowSize:       2,
		},
		Export: config.ExportConfig{MaxBlocks: 8},
	}
}

func newTestApp(cfg *config.Config) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a, out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestMonitorReturnsNilWhenFeedCloses(t *testing.T) {
	srv := newProjectionServer(t, `garbage`, projectionPayload)
	a, _ := newTestApp(testConfig(wsURL(srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Monitor(ctx, 560, 2))
}

func TestMonitorReturnsDialError(t *testing.T) {
	a, _ := newTestApp(testConfig("ws://127.0.0.1:1/api/v1/ws"))

	err := a.Monitor(context.Background(), 560, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial feed")
}

func TestShowPrintsProjectionTable(t *testing.T) {
	srv := newProjectionServer(t, `{"conversions":{}}`, projectionPayload)
	a, out := newTestApp(testConfig(wsURL(srv)))

	require.NoError(t, a.Show(context.Background(), ShowOptions{Limit: 2, Timeout: 5 * time.Second}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, "表头加两行区块: %q", out.String())
	assert.Contains(t, lines[0], "Total (FB)")
	assert.Contains(t, lines[1], "12,345")
	assert.NotContains(t, lines[1], "*", "580 不低于 560, 不应标记")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "*"), "450 < 560 应标记: %q", lines[2])
}

func TestShowWithoutProjection(t *testing.T) {
	srv := newProjectionServer(t, `{"mempool-blocks":[]}`)
	a, _ := newTestApp(testConfig(wsURL(srv)))

	err := a.Show(context.Background(), ShowOptions{Timeout: 5 * time.Second})
	assert.ErrorIs(t, err, ErrNoProjection)
}

func TestExportWritesCSV(t *testing.T) {
	srv := newProjectionServer(t, projectionPayload)
	a, _ := newTestApp(testConfig(wsURL(srv)))

	path := filepath.Join(t.TempDir(), "out", "blocks.csv")
	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: path, MaxBlocks: 2, Timeout: 5 * time.Second}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"captured_at", "position", "median_fee", "min_fee", "max_fee", "total_fee", "tx_count"}, records[0])
	assert.Equal(t, []string{"0", "600", "580", "900", "2.5", "12345"}, records[1][1:])
	assert.Equal(t, "1", records[2][1])
}

func TestExportRequiresOutput(t *testing.T) {
	a, _ := newTestApp(testConfig("ws://unused"))
	assert.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestWriteBlocksPNGNeedsTwoBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	err := writeBlocksPNG(path, []mempool.BlockFeeSummary{{Position: 0}}, 560)
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteBlocksPNG(t *testing.T) {
	blocks, err := mempool.DecodeMessage([]byte(projectionPayload))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, writeBlocksPNG(path, blocks, 560))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestSyntheticUpdateDecodes(t *testing.T) {
	payload, err := syntheticUpdate(100, 2)
	require.NoError(t, err)

	blocks, err := mempool.DecodeMessage(payload)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 100.0, blocks[0].FeeRange.Min)
	assert.Equal(t, 400.0, blocks[0].FeeRange.Max)
	assert.Equal(t, 0.25, blocks[0].TotalFee)
	assert.Equal(t, 1, blocks[1].Position)
}

func TestSimulateAlertRequiresChannel(t *testing.T) {
	a, _ := newTestApp(testConfig("ws://unused"))
	assert.Error(t, a.SimulateAlert(context.Background(), 100))
}

func TestSimulateAlertSendsTelegram(t *testing.T) {
	var (
		mu   sync.Mutex
		text string
	)
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		text = body.Text
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer tg.Close()

	cfg := testConfig("ws://unused")
	cfg.Alerting.Channels = []string{config.ChannelTelegram}
	cfg.Alerting.Telegram = config.TelegramConfig{BotToken: "token", ChatID: "chat", APIBase: tg.URL, Timeout: time.Second}
	a, _ := newTestApp(cfg)

	require.NoError(t, a.SimulateAlert(context.Background(), 100))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, text, "+0: min 100.00 sat/vB")
}

func TestSimulateAlertRejectsFeeAboveThreshold(t *testing.T) {
	cfg := testConfig("ws://unused")
	cfg.Alerting.Channels = []string{config.ChannelTelegram}
	cfg.Alerting.Telegram = config.TelegramConfig{BotToken: "token", ChatID: "chat"}
	a, _ := newTestApp(cfg)

	assert.Error(t, a.SimulateAlert(context.Background(), 600))
}

func TestReportStatusStaleness(t *testing.T) {
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	logger := zerolog.Nop()

	assert.False(t, reportStatus(logger, service.Stats{}, started, started.Add(time.Minute), 2*time.Minute))
	assert.True(t, reportStatus(logger, service.Stats{}, started, started.Add(3*time.Minute), 2*time.Minute))

	fresh := service.Stats{Updates: 4, LastUpdate: started.Add(5 * time.Minute), Blocks: 8, LowestMinFee: 12}
	assert.False(t, reportStatus(logger, fresh, started, started.Add(6*time.Minute), 2*time.Minute))
	assert.False(t, reportStatus(logger, service.Stats{}, started, started.Add(time.Hour), 0), "stale_after 为 0 时不告警")
}
