package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"feewatch/internal/mempool"
	"feewatch/internal/service"
)

// SimulateAlert 构造一条合成的 mempool-blocks 消息, 走完整告警流程。
func (a *App) SimulateAlert(ctx context.Context, minFee float64) error {
	notifier, closeNotifier := a.newNotifier(ctx)
	defer closeNotifier()
	if notifier.Len() == 0 {
		return errors.New("未配置任何告警通道")
	}

	threshold := a.Config.Alerting.ThresholdFeeRate
	if minFee >= threshold {
		return fmt.Errorf("--min-fee %.2f 不低于阈值 %.2f, 不会触发告警", minFee, threshold)
	}

	payload, err := syntheticUpdate(minFee, a.Config.Alerting.WindowSize)
	if err != nil {
		return err
	}

	blocks, err := mempool.DecodeMessage(payload)
	if err != nil {
		return err
	}

	svc := service.New(service.Options{
		ThresholdFeeRate: threshold,
		WindowSize:       a.Config.Alerting.WindowSize,
		CoinSymbol:       a.Config.Feed.CoinSymbol,
	}, notifier, a.Logger)

	if !svc.Process(ctx, blocks) {
		return errors.New("模拟消息未触发告警")
	}
	return nil
}

// syntheticUpdate 生成与真实推送同结构的消息, 首个区块最低费率为 minFee。
func syntheticUpdate(minFee float64, window int) ([]byte, error) {
	if window <= 0 {
		window = 1
	}
	blocks := make([]map[string]any, 0, window)
	for i := 0; i < window; i++ {
		low := minFee * float64(i+1)
		blocks = append(blocks, map[string]any{
			"medianFee": low * 1.5,
			"feeRange":  []float64{low, low * 2, low * 4},
			"totalFees": 25_000_000 * (i + 1),
			"nTx":       1200 + 300*i,
		})
	}
	return json.Marshal(map[string]any{mempool.BlocksKey: blocks})
}
