// Package worker はバックグラウンドジョブの定期実行を提供する。
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Job は1回分の処理を実行する。
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc は関数をJobとして扱うアダプタ。
type JobFunc func(ctx context.Context) error

// Run はJobを実行する。
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// RunPeriodic は起動直後に1回、その後interval間隔でjobを実行する。
// コンテキストがキャンセルされるまでブロックする。ジョブのエラーはログに記録して継続する。
func RunPeriodic(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, job Job) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("job scheduler started",
		slog.String("job", name),
		slog.Duration("interval", interval),
	)

	runOnce(ctx, logger, name, job)

	for {
		select {
		case <-ctx.Done():
			logger.Info("job scheduler stopped", slog.String("job", name))
			return
		case <-ticker.C:
			runOnce(ctx, logger, name, job)
		}
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, name string, job Job) {
	if err := job.Run(ctx); err != nil {
		logger.Error("job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
}
