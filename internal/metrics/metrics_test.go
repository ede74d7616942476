package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestServerExposesCollectors(t *testing.T) {
	AlertsTotal.Inc()
	BlockMinFeeRate.WithLabelValues("0").Set(3.5)

	srv := httptest.NewServer(NewServer(":0", zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("请求 /metrics 失败: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("读取响应失败: %v", err)
	}

	for _, name := range []string{"feewatch_alerts_total", `feewatch_block_min_fee_rate{position="0"} 3.5`} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics 输出缺少 %s", name)
		}
	}
}

func TestServerHealthz(t *testing.T) {
	srv := httptest.NewServer(NewServer(":0", zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("请求 /healthz 失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d", resp.StatusCode)
	}
}
